package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareAndHandler(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", Handler())

	ObserveAuth("test_op", errors.New("boom"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `movie_reviews_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, body, `movie_reviews_auth_operations_total{op="test_op",result="fail"} 1`)
}

func TestMiddleware_RecordsFailuresAs500(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(Middleware())
	e.GET("/plain-error", func(c echo.Context) error { return errors.New("disk on fire") })
	e.GET("/panics", func(c echo.Context) error { panic("boom") })
	e.GET("/teapot", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "tea") })
	e.GET("/metrics", Handler())

	for _, path := range []string{"/plain-error", "/panics", "/teapot"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `movie_reviews_http_requests_total{method="GET",route="/plain-error",status="500"} 1`)
	assert.Contains(t, body, `movie_reviews_http_requests_total{method="GET",route="/panics",status="500"} 1`)
	assert.Contains(t, body, `movie_reviews_http_requests_total{method="GET",route="/teapot",status="418"} 1`)
	assert.NotContains(t, body, `route="/plain-error",status="200"`)
}
