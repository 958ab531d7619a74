package loggingmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
)

// RequestLogger puts a request-scoped logger into the request context and
// writes one http_request line per request once the handler has finished.
// Handler errors are rendered here, so the line carries the final status.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req, res := c.Request(), c.Response()

			rid := requestID(req, res)
			res.Header().Set(echo.HeaderXRequestID, rid)

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("route", c.Path()),
				slog.String("path", req.URL.Path),
				slog.String("remote_ip", c.RealIP()),
			)
			ctx := logging.IntoContext(req.Context(), l)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			attrs := []slog.Attr{
				slog.Int("status", res.Status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes", res.Size),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			if ua := req.UserAgent(); ua != "" {
				attrs = append(attrs, slog.String("user_agent", ua))
			}
			l.LogAttrs(ctx, levelFor(res.Status), "http_request", attrs...)
			return nil
		}
	}
}

// requestID prefers the client's header, then the one set by echo's RequestID
// middleware, and mints a uuid otherwise.
func requestID(req *http.Request, res *echo.Response) string {
	if rid := req.Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	if rid := res.Header().Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return uuid.NewString()
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
