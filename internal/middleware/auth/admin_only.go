package auth

import (
	"net/http"
	"slices"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/labstack/echo/v4"
)

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !slices.Contains(roles, p.Role) {
				logging.FromContext(c.Request().Context()).Warn("auth_forbidden", "status", 403, "role", p.Role)
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}
