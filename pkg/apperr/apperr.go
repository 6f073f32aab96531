// Package apperr holds the error codes shared by every service and renders
// them as {"code", "message", "details"} JSON bodies.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/order_portal/pkg/logging"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidID         = "INVALID_ID"
	CodeInvalidCreds      = "INVALID_CREDENTIALS"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeUserInactive      = "USER_INACTIVE"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
	CodeAuthUnavailable   = "AUTH_SERVICE_UNAVAILABLE"
)

type Body struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func New(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, Body{Code: code, Message: message})
}

func Validation(message string, details map[string]string) *echo.HTTPError {
	if message == "" {
		message = "validation failed"
	}
	return echo.NewHTTPError(http.StatusBadRequest, Body{Code: CodeValidation, Message: message, Details: details})
}

func InvalidID(message string) *echo.HTTPError {
	return New(http.StatusBadRequest, CodeInvalidID, message)
}

func InvalidCredentials() *echo.HTTPError {
	return New(http.StatusUnauthorized, CodeInvalidCreds, "invalid email or password")
}

func TokenInvalid(message string) *echo.HTTPError {
	return New(http.StatusUnauthorized, CodeTokenInvalid, message)
}

func Unauthorized(message string) *echo.HTTPError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *echo.HTTPError {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func UserInactive() *echo.HTTPError {
	return New(http.StatusForbidden, CodeUserInactive, "account is not active")
}

func NotFound(message string) *echo.HTTPError {
	return New(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(message string) *echo.HTTPError {
	return New(http.StatusConflict, CodeConflict, message)
}

func InsufficientStock() *echo.HTTPError {
	return New(http.StatusConflict, CodeInsufficientStock, "insufficient stock")
}

func AuthUnavailable() *echo.HTTPError {
	return New(http.StatusServiceUnavailable, CodeAuthUnavailable, "authentication service unavailable")
}

func Internal() *echo.HTTPError {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error")
}

// CodeForStatus picks a code for errors raised by echo itself (routing, binding).
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeAuthUnavailable
	default:
		if status >= 500 {
			return CodeInternal
		}
		return http.StatusText(status)
	}
}

// BodyOf normalises any handler error into a status and a Body.
func BodyOf(err error) (int, Body) {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return http.StatusInternalServerError, Body{Code: CodeInternal, Message: "internal server error"}
	}
	switch m := he.Message.(type) {
	case Body:
		return he.Code, m
	case string:
		return he.Code, Body{Code: CodeForStatus(he.Code), Message: m}
	case error:
		return he.Code, Body{Code: CodeForStatus(he.Code), Message: m.Error()}
	default:
		return he.Code, Body{Code: CodeForStatus(he.Code), Message: http.StatusText(he.Code)}
	}
}

// ErrorHandler replaces echo's default so every error response has the same shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := BodyOf(err)
	if status >= 500 {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", status, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
