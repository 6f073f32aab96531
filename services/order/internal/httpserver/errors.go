package httpserver

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/order/internal/service"
)

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrValidation):
		var details validation.Errors
		errors.As(err, &details)
		return apperr.Validation("validation failed", details)
	case errors.Is(err, service.ErrInvalidID):
		return apperr.InvalidID("invalid article id")
	case errors.Is(err, service.ErrNotFound):
		return apperr.NotFound("article not found")
	case errors.Is(err, service.ErrConflict):
		return apperr.Conflict("article code already exists")
	case errors.Is(err, service.ErrInsufficientStock):
		return apperr.InsufficientStock()
	default:
		return apperr.Internal()
	}
}

// fail maps err and logs it at a level matching the resulting status.
func fail(l *slog.Logger, event string, err error) *echo.HTTPError {
	herr := httpError(err)
	if herr.Code >= 500 {
		l.Error(event, "status", herr.Code, "error", err)
	} else {
		l.Warn(event, "status", herr.Code, "error", err)
	}
	return herr
}
