package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/services/auth/internal/service"
	"github.com/Skotchmaster/order_portal/services/auth/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func sessionResponse(res *service.LoginResult) transport.SessionResponse {
	return transport.SessionResponse{
		Token:            res.AccessToken,
		RefreshToken:     res.RefreshToken,
		ExpiresAt:        res.AccessExpiresAt,
		RefreshExpiresAt: res.RefreshExpiresAt,
		User:             transport.ToSessionUser(res.User),
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return apperr.Validation("invalid body", nil)
	}

	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		if !isClientError(err) {
			l.Error("register_error", "status", 500, "error", err)
		}
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered. Await activation by an administrator.",
		"user":    transport.ToSessionUser(user),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.Validation("invalid body", nil)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		herr := httpError(err)
		if herr.Code >= 500 {
			l.Error("login_failed", "status", herr.Code, "error", err)
		} else {
			l.Warn("login_failed", "status", herr.Code, "error", err)
		}
		return herr
	}

	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, sessionResponse(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		l.Warn("refresh_error", "status", 400, "reason", "refresh token missing")
		return apperr.Validation("refreshToken is required", map[string]string{"refreshToken": "required"})
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		herr := httpError(err)
		l.Warn("refresh_failed", "status", herr.Code, "error", err)
		return herr
	}

	l.Info("refresh_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, sessionResponse(res))
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": transport.ToSessionUser(user)})
}
