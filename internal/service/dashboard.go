package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/Skotchmaster/movie_reviews/internal/repo"
)

type DashboardService struct {
	Users repo.UserStore
}

type UserDashboard struct {
	Username     string            `json:"username"`
	Role         string            `json:"role"`
	Transactions []json.RawMessage `json:"transactions"`
	Penalties    []json.RawMessage `json:"penalties"`
}

type SystemStats struct {
	TotalUsers      int `json:"total_users"`
	ActivePenalties int `json:"active_penalties"`
}

type AdminDashboard struct {
	UserID      string      `json:"user_id"`
	Role        string      `json:"role"`
	SystemStats SystemStats `json:"system_stats"`
}

func (s *DashboardService) UserDashboard(ctx context.Context, p *Principal) (*UserDashboard, error) {
	l := logging.FromContext(ctx).With("svc", "dashboard.user")
	if p.Role != models.RoleUser {
		l.Warn("dashboard_denied", "status", 403, "role", p.Role)
		return nil, fmt.Errorf("%w: only regular users can access this dashboard", ErrForbidden)
	}

	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	u, _ := repo.FindByID(users, p.UserID)
	if u == nil {
		l.Warn("dashboard_failed", "status", 404, "user_id", p.UserID)
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u.Normalize()

	return &UserDashboard{
		Username:     u.Username,
		Role:         u.Role,
		Transactions: u.Transactions,
		Penalties:    u.Penalties,
	}, nil
}

func (s *DashboardService) AdminDashboard(ctx context.Context, p *Principal) (*AdminDashboard, error) {
	if p.Role != models.RoleAdmin {
		logging.FromContext(ctx).Warn("dashboard_denied", "svc", "dashboard.admin", "status", 403, "role", p.Role)
		return nil, fmt.Errorf("%w: only admins can access this dashboard", ErrForbidden)
	}

	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	penalties := 0
	for _, u := range users {
		penalties += len(u.Penalties)
	}

	return &AdminDashboard{
		UserID: p.UserID,
		Role:   p.Role,
		SystemStats: SystemStats{
			TotalUsers:      len(users),
			ActivePenalties: penalties,
		},
	}, nil
}
