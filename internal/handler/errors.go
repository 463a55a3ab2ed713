package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/logger"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps a domain error to its HTTP status and machine code.
func classify(err error) (int, string, string) {
	var ve *repository.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "validation_error", ve.Error()
	case errors.Is(err, repository.ErrBadCredentials):
		return http.StatusUnauthorized, "bad_credentials", "invalid username or password"
	case errors.Is(err, repository.ErrTenantInactive):
		return http.StatusForbidden, "tenant_inactive", "tenant is inactive, contact the administrator"
	case errors.Is(err, repository.ErrTenantNotFound):
		return http.StatusNotFound, "tenant_not_found", "tenant not found"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict", "resource is still referenced"
	case errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict, "duplicate", "resource already exists"
	case errors.Is(err, tenant.ErrPoolClosed):
		return http.StatusServiceUnavailable, "unavailable", "server is shutting down"
	}
	return http.StatusInternalServerError, "server_error", "internal server error, try again"
}

// writeError renders err.  Server errors are logged with the request
// logger and never leak their text to the client.
func writeError(c echo.Context, err error) error {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(status, errorBody{Error: code, Message: msg})
}

// HTTPErrorHandler is installed as echo's error handler so errors returned
// by middleware (tenant resolution, store open) get the same mapping as
// handler errors.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, errorBody{Error: codeForStatus(he.Code), Message: msg})
		return
	}
	_ = writeError(c, err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if status >= 500 {
		return "server_error"
	}
	return "error"
}
