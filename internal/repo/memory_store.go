package repo

import (
	"context"
	"sync"

	"github.com/Skotchmaster/movie_reviews/internal/models"
)

// MemoryStore is a UserStore without persistence. Loads and saves copy the
// slice so callers never share backing arrays with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	users []models.User
	saves int
}

func NewMemoryStore(users ...models.User) *MemoryStore {
	return &MemoryStore{users: cloneUsers(users)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUsers(s.users), nil
}

func (s *MemoryStore) SaveAll(ctx context.Context, users []models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = cloneUsers(users)
	s.saves++
	return nil
}

// Saves reports how many times SaveAll succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
