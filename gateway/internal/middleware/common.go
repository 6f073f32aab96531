package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	loggingmw "github.com/Skotchmaster/order_portal/pkg/middleware/logging"
)

func Common(logger *slog.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLoggerWithConfig(logger, loggingmw.Config{
			Skipper:       loggingmw.SkipHealth,
			SlowThreshold: 2 * time.Second,
		}),
		ecM.Secure(),
	}
}
