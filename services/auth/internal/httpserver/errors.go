package httpserver

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/auth/internal/service"
)

// httpError maps service errors onto the shared taxonomy. Unknown errors
// become INTERNAL_ERROR; the caller is expected to have logged them.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		var details validation.Errors
		errors.As(err, &details)
		return apperr.Validation("validation failed", details)
	case errors.Is(err, service.ErrInvalidID):
		return apperr.InvalidID("invalid user id")
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperr.InvalidCredentials()
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return apperr.TokenInvalid("invalid refresh token")
	case errors.Is(err, service.ErrInvalidAccessToken):
		return apperr.TokenInvalid("invalid or expired token")
	case errors.Is(err, service.ErrUserInactive):
		return apperr.UserInactive()
	case errors.Is(err, service.ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, service.ErrConflict):
		return apperr.Conflict("email already registered")
	default:
		return apperr.Internal()
	}
}

func isClientError(err error) bool {
	return httpError(err).Code < 500
}
