package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	middleware "github.com/Skotchmaster/order_portal/pkg/middleware/auth"
	"github.com/Skotchmaster/order_portal/services/order/internal/service"
	"github.com/Skotchmaster/order_portal/services/order/internal/transport"
)

type OrderHTTP struct {
	Orders          *service.OrderService
	Articles        *service.ArticleService
	Recommendations *service.RecommendationService
}

func customer(c echo.Context) (service.Customer, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return service.Customer{}, apperr.Unauthorized("not authenticated")
	}
	return service.Customer{Name: p.Name, Email: p.Email, IsAdmin: p.IsAdmin()}, nil
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	cust, err := customer(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("invalid body", nil)
	}

	order, err := h.Orders.CreateOrder(ctx, service.CreateOrderInput{
		Customer:     cust,
		CustomerName: req.CustomerName,
		ArticleCode:  req.ArticleCode,
		Quantity:     req.Quantity,
	})
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"order": order})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	cust, err := customer(c)
	if err != nil {
		return err
	}

	orders, err := h.Orders.ListOrders(ctx, cust)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

func (h *OrderHTTP) PersonalRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.recommendations")

	cust, err := customer(c)
	if err != nil {
		return err
	}

	recs, err := h.Recommendations.Recommend(ctx, cust.Email)
	if err != nil {
		return fail(l, "recommendations_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"recommendations": recs})
}
