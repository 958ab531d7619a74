package transport

import (
	"encoding/json"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/Skotchmaster/movie_reviews/internal/util"
)

type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Role     string `json:"role"     form:"role"     validate:"omitempty,oneof=user moderator admin"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type TokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type UserResponse struct {
	UserID       string            `json:"user_id"`
	Username     string            `json:"username"`
	Email        string            `json:"email"`
	Role         string            `json:"role"`
	Penalties    []json.RawMessage `json:"penalties"`
	Transactions []json.RawMessage `json:"transactions"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type MovieListResponse struct {
	Movies []models.Movie `json:"movies"`
	Meta   util.PageMeta  `json:"meta"`
}

type MovieSearchResponse struct {
	Movies []models.Movie `json:"movies"`
}

type ReviewListResponse struct {
	Reviews []models.Review `json:"reviews"`
	Total   int             `json:"total"`
	Skip    int             `json:"skip"`
	Limit   int             `json:"limit"`
}

type CreateReviewRequest struct {
	ReviewTitle string `json:"review_title" validate:"required"`
	ReviewText  string `json:"review_text"  validate:"required"`
	Rating      *int   `json:"rating"       validate:"required,min=0,max=10"`
}

type CreateReviewResponse struct {
	Message string       `json:"message"`
	Review  models.Review `json:"review"`
}
