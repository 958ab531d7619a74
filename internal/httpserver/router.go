package httpserver

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/movie_reviews/internal/metrics"
	mwauth "github.com/Skotchmaster/movie_reviews/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/movie_reviews/internal/middleware/logging"
	"github.com/Skotchmaster/movie_reviews/internal/models"
)

type Deps struct {
	AuthHandler      *AuthHTTP
	MoviesHandler    *MoviesHTTP
	DashboardHandler *DashboardHTTP
	Authenticator    mwauth.Authenticator
}

// New builds the echo instance with the shared middleware stack.
func New(logger *slog.Logger, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())
	if len(corsOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     corsOrigins,
			AllowCredentials: !slices.Contains(corsOrigins, "*"),
		}))
	}
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": "Backend is up"})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", metrics.Handler())

	requireAuth := mwauth.RequireAuth(d.Authenticator)

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut)

	dashboard := e.Group("/dashboard", requireAuth)
	dashboard.GET("/user", d.DashboardHandler.User)
	dashboard.GET("/admin", d.DashboardHandler.Admin, mwauth.RequireRole(models.RoleAdmin))

	movies := e.Group("/movies")
	movies.GET("", d.MoviesHandler.ListMovies)
	movies.GET("/search", d.MoviesHandler.SearchMovies)
	movies.GET("/:id", d.MoviesHandler.GetMovie)
	movies.GET("/:id/reviews", d.MoviesHandler.ListReviews)
	movies.POST("/:id/reviews", d.MoviesHandler.AddReview, requireAuth)
}
