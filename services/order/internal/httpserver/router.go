package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/order_portal/pkg/middleware/auth"
)

type Deps struct {
	Handler *OrderHTTP
	Auth    *middleware.Introspector
	Ready   func(ctx context.Context) error
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

	api := e.Group("/api", d.Auth.RequireAuth)

	orders := api.Group("/orders")
	orders.POST("", d.Handler.CreateOrder)
	orders.GET("", d.Handler.ListOrders)

	api.GET("/recommendations/personal", d.Handler.PersonalRecommendations)

	articles := api.Group("/articles")
	articles.GET("", d.Handler.ListArticles)
	articles.GET("/search", d.Handler.SearchArticles)
	articles.POST("", d.Handler.CreateArticle, middleware.AdminOnly)
	articles.PUT("/:id", d.Handler.UpdateArticle, middleware.AdminOnly)
}
