package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/movie_reviews/internal/models"
)

var ErrCorruptStore = errors.New("credential store is corrupt")

// UserStore persists the whole user collection at once. Callers load, mutate
// and save under their own lock; stores do not merge concurrent writes.
type UserStore interface {
	LoadAll(ctx context.Context) ([]models.User, error)
	SaveAll(ctx context.Context, users []models.User) error
}

// FindByUsername matches case-insensitively. It returns nil and -1 when absent.
func FindByUsername(users []models.User, username string) (*models.User, int) {
	for i := range users {
		if strings.EqualFold(users[i].Username, username) {
			return &users[i], i
		}
	}
	return nil, -1
}

func FindByEmail(users []models.User, email string) (*models.User, int) {
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], i
		}
	}
	return nil, -1
}

func FindByID(users []models.User, id string) (*models.User, int) {
	for i := range users {
		if users[i].ID == id {
			return &users[i], i
		}
	}
	return nil, -1
}

func cloneUsers(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		u.Penalties = append(u.Penalties[:0:0], u.Penalties...)
		u.Transactions = append(u.Transactions[:0:0], u.Transactions...)
		u.RefreshTokens = append(u.RefreshTokens[:0:0], u.RefreshTokens...)
		u.Normalize()
		out[i] = u
	}
	return out
}
