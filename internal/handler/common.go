package handler // handler defines the HTTP handlers of the POS API

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

// requestTimeout bounds every store call made by a handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, repository.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

// queryInt64 parses an optional positive integer query parameter.
func queryInt64(c echo.Context, name string) (*int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil, repository.Invalid(name, "must be a positive integer")
	}
	return &n, nil
}

// bind decodes the body into v and runs the echo validator, falling back
// to the package validator when none is installed.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return repository.Invalid("body", "invalid JSON body")
	}
	if err := c.Validate(v); err != nil {
		if errors.Is(err, echo.ErrValidatorNotRegistered) {
			return defaultValidator.Validate(v)
		}
		return err
	}
	return nil
}

// scope returns the principal and the tenant store bound by the resolver.
func scope(c echo.Context) (model.Principal, *repository.Store) {
	p, _ := middleware.PrincipalFrom(c)
	return p, tenant.StoreFrom(c)
}
