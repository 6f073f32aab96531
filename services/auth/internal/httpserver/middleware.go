package httpserver

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/tokens"
	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
)

const (
	ctxClaims = "claims"
	ctxUser   = "user"
)

// bearerAuth verifies the access token signature and expiry.
func bearerAuth(issuer *tokens.Issuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ctxClaims,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (any, error) {
			return issuer.VerifyAccessToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, tokens.ErrTokenInvalid) {
				return apperr.TokenInvalid("invalid or expired token")
			}
			return apperr.Unauthorized("missing bearer token")
		},
	})
}

// requireUser loads the token's owner and rejects missing or inactive accounts.
func (h *AuthHTTP) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		claims, ok := c.Get(ctxClaims).(*tokens.Claims)
		if !ok {
			return apperr.Unauthorized("missing bearer token")
		}

		user, err := h.Svc.CurrentUser(ctx, claims)
		if err != nil {
			herr := httpError(err)
			if herr.Code >= 500 {
				logging.FromContext(ctx).Error("current_user_error", "error", err)
			}
			return herr
		}

		c.Set(ctxUser, user)
		c.Set("user_id", user.ID.String())
		c.Set("role", user.Role)
		return next(c)
	}
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin() {
			return apperr.Forbidden("admin access required")
		}
		return next(c)
	}
}

func currentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get(ctxUser).(*models.User)
	if !ok {
		return nil, apperr.Unauthorized("not authenticated")
	}
	return user, nil
}
