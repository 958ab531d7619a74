package httpserver

import (
	"net/http"

	mwauth "github.com/Skotchmaster/movie_reviews/internal/middleware/auth"
	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/labstack/echo/v4"
)

type DashboardHTTP struct {
	Svc *service.DashboardService
}

func (h *DashboardHTTP) User(c echo.Context) error {
	p, ok := mwauth.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	d, err := h.Svc.UserDashboard(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DashboardHTTP) Admin(c echo.Context) error {
	p, ok := mwauth.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	d, err := h.Svc.AdminDashboard(c.Request().Context(), p)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}
