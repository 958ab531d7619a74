package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/Skotchmaster/movie_reviews/internal/repo"
)

func newTestDashboard() *DashboardService {
	return &DashboardService{Users: repo.NewMemoryStore(
		models.User{ID: "u1", Username: "alice", Email: "a@example.com", Role: models.RoleUser,
			Penalties:    []json.RawMessage{json.RawMessage(`{"reason":"spam"}`)},
			Transactions: []json.RawMessage{json.RawMessage(`{"amount":5}`)}},
		models.User{ID: "u2", Username: "bob", Email: "b@example.com", Role: models.RoleUser,
			Penalties: []json.RawMessage{json.RawMessage(`1`), json.RawMessage(`2`)}},
		models.User{ID: "a1", Username: "root", Email: "r@example.com", Role: models.RoleAdmin},
	)}
}

func TestDashboardService_UserDashboard(t *testing.T) {
	t.Parallel()

	svc := newTestDashboard()
	d, err := svc.UserDashboard(context.Background(), &Principal{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, models.RoleUser, d.Role)
	require.Len(t, d.Penalties, 1)
	assert.JSONEq(t, `{"reason":"spam"}`, string(d.Penalties[0]))
	require.Len(t, d.Transactions, 1)
}

func TestDashboardService_Gates(t *testing.T) {
	t.Parallel()

	svc := newTestDashboard()
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{name: "admin on user dashboard", call: func() error {
			_, err := svc.UserDashboard(ctx, &Principal{UserID: "a1", Role: models.RoleAdmin})
			return err
		}, wantErr: ErrForbidden},
		{name: "moderator on user dashboard", call: func() error {
			_, err := svc.UserDashboard(ctx, &Principal{UserID: "m1", Role: models.RoleModerator})
			return err
		}, wantErr: ErrForbidden},
		{name: "user on admin dashboard", call: func() error {
			_, err := svc.AdminDashboard(ctx, &Principal{UserID: "u1", Role: models.RoleUser})
			return err
		}, wantErr: ErrForbidden},
		{name: "deleted user", call: func() error {
			_, err := svc.UserDashboard(ctx, &Principal{UserID: "gone", Role: models.RoleUser})
			return err
		}, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}
}

func TestDashboardService_AdminDashboard(t *testing.T) {
	t.Parallel()

	svc := newTestDashboard()
	d, err := svc.AdminDashboard(context.Background(), &Principal{UserID: "a1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "a1", d.UserID)
	assert.Equal(t, SystemStats{TotalUsers: 3, ActivePenalties: 3}, d.SystemStats)
}
