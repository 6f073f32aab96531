package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
)

// UserIDKey is the echo context key the auth middlewares fill with the
// caller's id.
const UserIDKey = "user_id"

type Config struct {
	// Skipper keeps matching requests out of the access log. They still get a
	// request-scoped logger.
	Skipper func(c echo.Context) bool
	// SlowThreshold logs successful requests slower than this at WARN.
	SlowThreshold time.Duration
}

// SkipHealth drops liveness and readiness probes from the access log.
func SkipHealth(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/health/")
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(base, Config{})
}

// RequestLoggerWithConfig must be installed after echo's RequestID middleware
// so the generated id is already on the response headers. Handler errors are
// rendered here so the logged status is the one the client sees.
func RequestLoggerWithConfig(base *slog.Logger, cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = req.Header.Get(echo.HeaderXRequestID)
			}

			l := base.With("method", req.Method, "route", c.Path())
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return nil
			}

			res := c.Response()
			attrs := []any{
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			}
			if uid, ok := c.Get(UserIDKey).(string); ok && uid != "" {
				attrs = append(attrs, "user_id", uid)
			}

			switch {
			case res.Status >= 500:
				attrs = append(attrs, "user_agent", req.UserAgent())
				if err != nil {
					attrs = append(attrs, "error", err.Error())
				}
				l.Error("http_request", attrs...)
			case res.Status >= 400:
				if err != nil {
					_, body := apperr.BodyOf(err)
					attrs = append(attrs, "code", body.Code)
				}
				l.Warn("http_request", attrs...)
			case cfg.SlowThreshold > 0 && time.Since(start) > cfg.SlowThreshold:
				l.Warn("http_request", append(attrs, "slow", true)...)
			default:
				l.Info("http_request", append(attrs, "bytes", res.Size)...)
			}
			return nil
		}
	}
}
