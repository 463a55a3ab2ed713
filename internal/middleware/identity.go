package middleware

// identity.go holds the context keys shared by the auth, tenant and
// rate-limit middleware and the accessors handlers use to read them.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

const (
	principalKey  = "principal"
	userIDKey     = "user_id"
	roleKey       = "role"
	tenantCodeKey = "tenant_code"
)

// SetPrincipal stores p in the request context.
func SetPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.ID)
	c.Set(roleKey, string(p.Role))
	if p.TenantCode != "" {
		c.Set(tenantCodeKey, p.TenantCode)
	}
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// userID returns a printable identity for keys; "anon" without a token.
func userID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatInt(p.ID, 10)
	}
	return "anon"
}

// tenantCode returns the principal's tenant or "" for super admins and
// anonymous requests.
func tenantCode(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.TenantCode
	}
	return ""
}
