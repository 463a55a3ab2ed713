package model

// Role is the authorization level carried in an access token.
type Role string

const (
	RoleSuperAdmin Role = "super_admin" // platform operator, no tenant
	RoleAdmin      Role = "admin"       // tenant owner or tenant-level manager
	RoleCashier    Role = "cashier"     // front-of-house operator
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleCashier:
		return true
	}
	return false
}

// Principal is the authenticated identity attached to a request.  A
// super admin has an empty TenantCode; every other principal is bound to
// exactly one tenant.
type Principal struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	TenantCode string `json:"tenant_code,omitempty"`
}

// IsSuperAdmin reports whether the principal operates outside any tenant.
func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin && p.TenantCode == "" }
