package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "movie_reviews"

var (
	AuthOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: "operations_total",
		Help: "Auth operations by kind and outcome",
	}, []string{"op", "result"})

	ReviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "catalog", Name: "reviews_created_total",
		Help: "Reviews appended to the catalog",
	})

	SearchFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "catalog", Name: "search_fallbacks_total",
		Help: "Searches served by the local scan after the index failed",
	})

	EventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "events", Name: "publish_errors_total",
		Help: "Events that could not be published",
	}, []string{"topic"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

func ObserveAuth(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultFail
	}
	AuthOps.WithLabelValues(op, result).Inc()
}

// Middleware records request counts and latency keyed by the route pattern.
// Handler errors that are not *echo.HTTPError count as 500, and a panic is
// recorded as 500 before it continues up to Recover.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					observe(c, http.StatusInternalServerError, start)
					panic(r)
				}
			}()

			err = next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			switch {
			case errors.As(err, &he):
				status = he.Code
			case err != nil:
				status = http.StatusInternalServerError
			}
			observe(c, status, start)
			return err
		}
	}
}

func observe(c echo.Context, status int, start time.Time) {
	route := c.Path()
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
}

func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
