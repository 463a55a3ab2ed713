package tenant

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

const storeKey = "tenant_store"

// ActiveChecker answers whether a tenant may be served.  It returns nil,
// repository.ErrTenantNotFound or repository.ErrTenantInactive.
type ActiveChecker interface {
	IsActive(ctx context.Context, code string) error
}

// Resolver binds the principal's tenant store to the request.  It must run
// after JWTAuth.  The lease is released when the handler chain returns, on
// success, error or panic, and the store is unreachable afterwards.
func Resolver(pool *Pool, dir ActiveChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := middleware.PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing principal"})
			}
			if p.TenantCode == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "tenant routes need a tenant account"})
			}

			ctx := c.Request().Context()
			if err := dir.IsActive(ctx, p.TenantCode); err != nil {
				return err
			}
			lease, err := pool.Acquire(ctx, p.TenantCode)
			if err != nil {
				return err
			}
			defer func() {
				c.Set(storeKey, nil)
				lease.Release()
			}()

			c.Set(storeKey, lease.Store())
			return next(c)
		}
	}
}

// StoreFrom returns the store bound by Resolver, or nil outside it.
func StoreFrom(c echo.Context) *repository.Store {
	s, _ := c.Get(storeKey).(*repository.Store)
	return s
}
