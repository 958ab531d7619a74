package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/labstack/echo/v4"
)

// httpError maps service error kinds to status codes. Anything unrecognised
// is a 500 with a generic message.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, detail(err, service.ErrValidation))
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, detail(err, service.ErrConflict))
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, detail(err, service.ErrForbidden))
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, detail(err, service.ErrNotFound))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// detail strips the "kind: " prefix so clients see only the reason.
func detail(err, kind error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
		return rest
	}
	return msg
}
