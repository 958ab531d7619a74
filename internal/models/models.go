package models

import (
	"encoding/json"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is one credential record. Penalties and Transactions are opaque to the
// backend and are stored as-is.
type User struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	Email         string            `json:"email"`
	PasswordHash  string            `json:"passwordHash"`
	Role          string            `json:"role"`
	Penalties     []json.RawMessage `json:"penalties"`
	Transactions  []json.RawMessage `json:"transactions"`
	RefreshTokens []string          `json:"refreshTokens"`
}

// Normalize replaces nil collections with empty ones so the record always
// serializes with arrays.
func (u *User) Normalize() {
	if u.Penalties == nil {
		u.Penalties = []json.RawMessage{}
	}
	if u.Transactions == nil {
		u.Transactions = []json.RawMessage{}
	}
	if u.RefreshTokens == nil {
		u.RefreshTokens = []string{}
	}
}

type MovieMetadata struct {
	Title              string   `json:"title"`
	MovieIMDbRating    float64  `json:"movieIMDbRating"`
	TotalRatingCount   int      `json:"totalRatingCount"`
	TotalUserReviews   string   `json:"totalUserReviews"`
	TotalCriticReviews string   `json:"totalCriticReviews"`
	MetaScore          string   `json:"metaScore"`
	MovieGenres        []string `json:"movieGenres"`
	Directors          []string `json:"directors"`
	DatePublished      string   `json:"datePublished"`
	Creators           []string `json:"creators"`
	MainStars          []string `json:"mainStars"`
	Description        string   `json:"description"`
	Duration           int      `json:"duration"`
}

type Movie struct {
	ID       string        `json:"id"`
	Metadata MovieMetadata `json:"metadata"`
}

type Review struct {
	Date           string   `json:"date"`
	User           string   `json:"user"`
	UsefulnessVote *int     `json:"usefulness_vote"`
	TotalVotes     *int     `json:"total_votes"`
	Rating         *float64 `json:"rating"`
	Title          string   `json:"title"`
	Review         string   `json:"review"`
}
