// Package cors holds the CORS policy of the backend services. Browsers reach
// them through the gateway, so only origins listed in CORS_ALLOWED_ORIGINS
// are answered with CORS headers.
package cors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Middleware allows credentialed requests from the given origins. With no
// origins it adds nothing and the service stays same-origin.
func Middleware(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
		MaxAge:           600,
	})
}
