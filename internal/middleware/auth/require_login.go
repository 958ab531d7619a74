package auth

import (
	"net/http"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/labstack/echo/v4"
)

func RequireAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context())

			token := AccessToken(c)
			if token == "" {
				l.Warn("auth_failed", "status", 401, "reason", "missing token")
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			p, err := a.Authenticate(token)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "invalid token", "err", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}

			setUserContext(c, p)
			return next(c)
		}
	}
}
