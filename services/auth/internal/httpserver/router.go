package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/tokens"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Tokens      *tokens.Issuer
	// AuthLimiter guards register, login and refresh.
	AuthLimiter echo.MiddlewareFunc
	Ready       func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authed := []echo.MiddlewareFunc{bearerAuth(d.Tokens), d.AuthHandler.requireUser}

	auth := e.Group("/api/auth")
	public := auth.Group("")
	if d.AuthLimiter != nil {
		public.Use(d.AuthLimiter)
	}
	public.POST("/register", d.AuthHandler.Register)
	public.POST("/login", d.AuthHandler.Login)
	public.POST("/refresh", d.AuthHandler.Refresh)
	auth.GET("/me", d.AuthHandler.Me, authed...)

	admin := e.Group("/api/admin", append(authed, requireAdmin)...)
	admin.GET("/users", d.AuthHandler.ListUsers)
	admin.PATCH("/users/:id/activate", d.AuthHandler.ActivateUser)
	admin.PATCH("/users/:id/deactivate", d.AuthHandler.DeactivateUser)
}
