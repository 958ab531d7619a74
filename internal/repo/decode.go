package repo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/movie_reviews/internal/models"
)

const currentVersion = 2

// userRecord accepts both the current field names and the legacy ones
// (user_id, hashed_password, refresh_tokens).
type userRecord struct {
	ID                  string            `json:"id"`
	LegacyID            string            `json:"user_id"`
	Username            string            `json:"username"`
	Email               string            `json:"email"`
	PasswordHash        string            `json:"passwordHash"`
	LegacyPasswordHash  string            `json:"hashed_password"`
	Role                string            `json:"role"`
	Penalties           []json.RawMessage `json:"penalties"`
	Transactions        []json.RawMessage `json:"transactions"`
	RefreshTokens       []string          `json:"refreshTokens"`
	LegacyRefreshTokens []string          `json:"refresh_tokens"`
}

type envelope struct {
	Version int          `json:"version"`
	Users   []userRecord `json:"users"`
}

// decodeUsers reads either layout: a bare array (v1) or {"version":2,"users":[...]}.
// Empty input is an empty collection.
func decodeUsers(data []byte) ([]models.User, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.User{}, nil
	}

	var records []userRecord
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode v1 users: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode users envelope: %w", err)
		}
		if env.Version < 1 || env.Version > currentVersion {
			return nil, fmt.Errorf("unsupported users version %d", env.Version)
		}
		records = env.Users
	default:
		return nil, errors.New("users file is neither an array nor an envelope")
	}

	users := make([]models.User, 0, len(records))
	for _, r := range records {
		u := models.User{
			ID:            firstNonEmpty(r.ID, r.LegacyID),
			Username:      r.Username,
			Email:         r.Email,
			PasswordHash:  firstNonEmpty(r.PasswordHash, r.LegacyPasswordHash),
			Role:          r.Role,
			Penalties:     r.Penalties,
			Transactions:  r.Transactions,
			RefreshTokens: r.RefreshTokens,
		}
		if u.RefreshTokens == nil {
			u.RefreshTokens = r.LegacyRefreshTokens
		}
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		u.Normalize()
		users = append(users, u)
	}
	return users, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
