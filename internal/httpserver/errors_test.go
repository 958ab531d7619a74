package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "validation", err: fmt.Errorf("%w: username too short", service.ErrValidation), wantCode: http.StatusBadRequest, wantMsg: "username too short"},
		{name: "conflict", err: fmt.Errorf("%w: email already taken", service.ErrConflict), wantCode: http.StatusConflict, wantMsg: "email already taken"},
		{name: "credentials", err: service.ErrInvalidCredentials, wantCode: http.StatusUnauthorized, wantMsg: "invalid username or password"},
		{name: "refresh", err: fmt.Errorf("%w: revoked", service.ErrInvalidRefreshToken), wantCode: http.StatusUnauthorized, wantMsg: "invalid refresh token"},
		{name: "access", err: service.ErrInvalidAccessToken, wantCode: http.StatusUnauthorized, wantMsg: "could not validate credentials"},
		{name: "forbidden", err: fmt.Errorf("%w: admins only", service.ErrForbidden), wantCode: http.StatusForbidden, wantMsg: "admins only"},
		{name: "not found", err: fmt.Errorf("%w: movie", service.ErrNotFound), wantCode: http.StatusNotFound, wantMsg: "movie"},
		{name: "io", err: errors.New("disk on fire"), wantCode: http.StatusInternalServerError, wantMsg: "internal server error"},
		{name: "passthrough", err: echo.NewHTTPError(http.StatusTeapot, "tea"), wantCode: http.StatusTeapot, wantMsg: "tea"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			he := httpError(tt.err)
			assert.Equal(t, tt.wantCode, he.Code)
			assert.Equal(t, tt.wantMsg, he.Message)
		})
	}
}
