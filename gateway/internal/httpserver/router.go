package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/gateway/internal/middleware/csrf"
	"github.com/Skotchmaster/order_portal/gateway/internal/proxy"
	"github.com/Skotchmaster/order_portal/gateway/internal/session"
)

type Deps struct {
	AuthURL  string
	OrderURL string

	Session *session.Orchestrator
	// CSRF is nil when double-submit protection is off.
	CSRF *csrf.Config
	// Limiter applies to every route except health checks.
	Limiter echo.MiddlewareFunc
	Ready   func(ctx context.Context) error
}

// CSRFSkipPaths are reachable without a CSRF token: nothing to protect
// before a session exists.
var CSRFSkipPaths = []string{
	"/health/live",
	"/health/ready",
	"/api/auth/login",
	"/api/auth/register",
}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authProxy, err := proxy.New(d.AuthURL, "")
	if err != nil {
		return err
	}
	orderProxy, err := proxy.New(d.OrderURL, "")
	if err != nil {
		return err
	}

	api := e.Group("/api")
	if d.Limiter != nil {
		api.Use(d.Limiter)
	}
	if d.CSRF != nil {
		api.Use(csrf.Middleware(*d.CSRF))
	}

	h := &SessionHTTP{Session: d.Session}
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.POST("/auth/register", passthrough(authProxy))
	api.GET("/session", h.Current)

	forward := func(up session.Upstream) echo.HandlerFunc {
		return func(c echo.Context) error { return d.Session.Forward(c, up) }
	}
	api.Any("/orders", forward(orderProxy))
	api.Any("/orders/*", forward(orderProxy))
	api.Any("/articles", forward(orderProxy))
	api.Any("/articles/*", forward(orderProxy))
	api.Any("/recommendations/*", forward(orderProxy))
	api.Any("/admin/*", forward(authProxy))

	return nil
}
