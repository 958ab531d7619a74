package events

import "time"

const (
	UserRegistered   = "user_registered"
	UserLoggedIn     = "user_logged_in"
	UserLoggedOut    = "user_logged_out"
	SessionRefreshed = "session_refreshed"
	ReviewCreated    = "review_created"
)

type UserEvent struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
	At       time.Time `json:"at"`
}

type ReviewEvent struct {
	Type     string    `json:"type"`
	MovieID  string    `json:"movie_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	At       time.Time `json:"at"`
}
