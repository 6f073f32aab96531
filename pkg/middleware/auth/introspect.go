package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/authclient"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/tokens"
)

const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxPrincipal = "principal"

	RoleAdmin = "admin"
)

// Identity resolves an access token to the current state of its owner.
type Identity interface {
	Me(ctx context.Context, accessToken string) (*authclient.User, error)
}

type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Introspector authenticates requests in services that do not own the user
// store. A token must pass the local signature check and be confirmed by the
// identity service on every request; neither result is cached.
type Introspector struct {
	AccessSecret []byte
	Identity     Identity
}

func NewIntrospector(secret []byte, identity Identity) *Introspector {
	return &Introspector{AccessSecret: secret, Identity: identity}
}

type ValidatorFunc func(p Principal) error

func (m *Introspector) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *Introspector) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, adminOnly)
}

func adminOnly(p Principal) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

func (m *Introspector) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "introspect")

		raw := BearerToken(c)
		if raw == "" {
			return apperr.Unauthorized("missing bearer token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.AccessSecret)
		if err != nil {
			l.Info("auth_rejected", "status", 401, "reason", "local verification failed", "error", err)
			return apperr.TokenInvalid("invalid or expired token")
		}

		user, err := m.Identity.Me(ctx, raw)
		if err != nil {
			switch {
			case errors.Is(err, authclient.ErrTokenInvalid):
				l.Info("auth_rejected", "status", 401, "reason", "identity service rejected token")
				return apperr.TokenInvalid("invalid or expired token")
			case errors.Is(err, authclient.ErrUserInactive):
				l.Info("auth_rejected", "status", 403, "reason", "user inactive", "user_id", claims.Subject)
				return apperr.UserInactive()
			default:
				l.Error("auth_unavailable", "status", 503, "error", err)
				return apperr.AuthUnavailable()
			}
		}
		if user.ID != claims.Subject {
			l.Warn("auth_rejected", "status", 401, "reason", "subject mismatch")
			return apperr.TokenInvalid("invalid or expired token")
		}
		if !user.IsActive() {
			l.Info("auth_rejected", "status", 403, "reason", "user inactive", "user_id", user.ID)
			return apperr.UserInactive()
		}

		p := Principal{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   user.Role,
		}
		if validator != nil {
			if err := validator(p); err != nil {
				return err
			}
		}

		setUserContext(c, p)
		return next(c)
	}
}

// AdminOnly is for routes already behind RequireAuth.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		if err := adminOnly(p); err != nil {
			return err
		}
		return next(c)
	}
}

func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(CtxPrincipal).(Principal)
	return p, ok
}

func setUserContext(c echo.Context, p Principal) {
	c.Set(CtxPrincipal, p)
	c.Set(CtxUserID, p.UserID)
	c.Set(CtxRole, p.Role)
}
