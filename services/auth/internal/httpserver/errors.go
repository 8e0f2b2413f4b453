package httpserver

import (
	"errors"
	"net/http"

	"github.com/complyhub/platform/pkg/httpx"
	"github.com/complyhub/platform/services/auth/internal/service"
	"github.com/labstack/echo/v4"
)

// statusFor maps service errors to a status and a message safe to show callers.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, service.ErrTenantInactive):
		return http.StatusForbidden, "Organization account is inactive"
	case errors.Is(err, service.ErrUserInactive):
		return http.StatusForbidden, "User account is inactive"
	case errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, "User already exists with this email"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Tenant not found"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func toHTTPError(err error) error {
	var fe *service.FieldError
	if errors.As(err, &fe) {
		return &httpx.ValidationError{
			Message: "Validation failed",
			Fields:  []httpx.FieldError{{Field: fe.Field, Message: fe.Message}},
		}
	}
	code, msg := statusFor(err)
	return echo.NewHTTPError(code, msg).SetInternal(err)
}
