package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/gateway/internal/session"
	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/authclient"
	"github.com/Skotchmaster/order_portal/pkg/logging"
)

type SessionHTTP struct {
	Session *session.Orchestrator
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *authclient.User `json:"user"`
}

func (h *SessionHTTP) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "Login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("", map[string]string{"credentials": "email and password are required"})
	}

	u, err := h.Session.Login(c, req.Email, req.Password)
	if err != nil {
		l.Info("login_failed", "error", err)
		return err
	}
	l.Info("login_success", "user_id", u.ID)
	return c.JSON(http.StatusOK, userResponse{User: u})
}

func (h *SessionHTTP) Logout(c echo.Context) error {
	h.Session.ClearSession(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// Current answers 200 with a null user for anonymous visitors.
func (h *SessionHTTP) Current(c echo.Context) error {
	u, err := h.Session.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: u})
}

// passthrough forwards a public call without the session cookies.
func passthrough(p http.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request().Clone(c.Request().Context())
		req.Header.Del("Cookie")
		p.ServeHTTP(c.Response(), req)
		return nil
	}
}
