package model

import "time"

// TenantStatus is the lifecycle flag of a tenant in the directory.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
)

// Tenant mirrors a row of the directory `tenants` table.
//
// Fields:
//  ID             – primary key identifier.
//  Code           – unique, immutable tenant code shared with staff.
//  RestaurantName – display name used for seeding settings.
//  OwnerUsername  – login of the owner account.
//  OwnerPassword  – bcrypt hash of the owner password (never serialized).
//  Status         – active or inactive.
//  ActivatedAt    – stamped once, on the first successful owner login.
//  CreatedAt      – provisioning timestamp.
type Tenant struct {
	ID             int64        `json:"id"`
	Code           string       `json:"tenant_code"`
	RestaurantName string       `json:"restaurant_name"`
	OwnerUsername  string       `json:"owner_username"`
	OwnerPassword  string       `json:"-"`
	Status         TenantStatus `json:"status"`
	ActivatedAt    *time.Time   `json:"activated_at"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PendingFirstLogin reports whether the tenant was provisioned but its
// owner never logged in.
func (t Tenant) PendingFirstLogin() bool {
	return t.Status == TenantInactive && t.ActivatedAt == nil
}

// SuperAdmin mirrors a row of the directory `super_admins` table.
type SuperAdmin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
