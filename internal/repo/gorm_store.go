package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"gorm.io/gorm"
)

type userRow struct {
	ID            string            `gorm:"primaryKey"`
	Position      int               `gorm:"index;not null"`
	Username      string            `gorm:"uniqueIndex;not null"`
	Email         string            `gorm:"uniqueIndex;not null"`
	PasswordHash  string            `gorm:"not null"`
	Role          string            `gorm:"not null"`
	Penalties     []json.RawMessage `gorm:"serializer:json"`
	Transactions  []json.RawMessage `gorm:"serializer:json"`
	RefreshTokens []string          `gorm:"serializer:json"`
}

func (userRow) TableName() string { return "users" }

// GormStore keeps the collection in a users table. SaveAll replaces every row
// inside one transaction, matching the whole-collection contract of FileStore.
type GormStore struct{ DB *gorm.DB }

func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) LoadAll(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := s.DB.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]models.User, 0, len(rows))
	for _, r := range rows {
		u := models.User{
			ID:            r.ID,
			Username:      r.Username,
			Email:         r.Email,
			PasswordHash:  r.PasswordHash,
			Role:          r.Role,
			Penalties:     r.Penalties,
			Transactions:  r.Transactions,
			RefreshTokens: r.RefreshTokens,
		}
		u.Normalize()
		users = append(users, u)
	}
	return users, nil
}

func (s *GormStore) SaveAll(ctx context.Context, users []models.User) error {
	rows := make([]userRow, 0, len(users))
	for i, u := range cloneUsers(users) {
		rows = append(rows, userRow{
			ID:            u.ID,
			Position:      i,
			Username:      u.Username,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Role:          u.Role,
			Penalties:     u.Penalties,
			Transactions:  u.Transactions,
			RefreshTokens: u.RefreshTokens,
		})
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userRow{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert users: %w", err)
		}
		return nil
	})
}
