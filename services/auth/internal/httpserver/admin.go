package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
	"github.com/Skotchmaster/order_portal/services/auth/internal/transport"
)

func (h *AuthHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	users, err := h.Svc.ListUsers(ctx, c.QueryParam("status"))
	if err != nil {
		herr := httpError(err)
		if herr.Code >= 500 {
			l.Error("list_users_error", "status", herr.Code, "error", err)
		}
		return herr
	}

	out := make([]transport.SessionUser, 0, len(users))
	for i := range users {
		out = append(out, transport.ToSessionUser(&users[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

func (h *AuthHTTP) ActivateUser(c echo.Context) error {
	return h.setStatus(c, models.StatusActive)
}

func (h *AuthHTTP) DeactivateUser(c echo.Context) error {
	return h.setStatus(c, models.StatusInactive)
}

func (h *AuthHTTP) setStatus(c echo.Context, status string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_status")

	user, err := h.Svc.SetStatus(ctx, c.Param("id"), status)
	if err != nil {
		herr := httpError(err)
		if herr.Code >= 500 {
			l.Error("set_status_error", "status", herr.Code, "error", err)
		} else {
			l.Warn("set_status_error", "status", herr.Code, "error", err)
		}
		return herr
	}
	return c.JSON(http.StatusOK, echo.Map{"user": transport.ToSessionUser(user)})
}
