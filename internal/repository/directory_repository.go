package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// DirectoryRepo is the shared registry of tenants and super admins.  It is
// the authority for "does this tenant exist and is it active".
type DirectoryRepo struct{ DB *sql.DB }

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo { return &DirectoryRepo{DB: db} }

const tenantColumns = `id, code, restaurant_name, owner_username, owner_password_hash, status, activated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (model.Tenant, error) {
	var (
		t           model.Tenant
		status      string
		activatedAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Code, &t.RestaurantName, &t.OwnerUsername, &t.OwnerPassword,
		&status, &activatedAt, &t.CreatedAt); err != nil {
		return model.Tenant{}, err
	}
	t.Status = model.TenantStatus(status)
	if activatedAt.Valid {
		at := activatedAt.Time.UTC()
		t.ActivatedAt = &at
	}
	return t, nil
}

// NormalizeTenantCode trims and upper-cases a tenant code so lookups are
// insensitive to how staff typed it.
func NormalizeTenantCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateTenant inserts a tenant in the inactive, pending-first-login state
// and fills in its ID and CreatedAt.
func (r *DirectoryRepo) CreateTenant(ctx context.Context, t *model.Tenant) error {
	t.Code = NormalizeTenantCode(t.Code)
	t.Status = model.TenantInactive
	t.ActivatedAt = nil
	t.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tenants (code, restaurant_name, owner_username, owner_password_hash, status, created_at)
		 VALUES (?,?,?,?,?,?)`,
		t.Code, t.RestaurantName, t.OwnerUsername, t.OwnerPassword, string(t.Status), t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// DeleteTenant removes a directory row.  Only used to undo a provisioning
// whose tenant store could not be created.
func (r *DirectoryRepo) DeleteTenant(ctx context.Context, code string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM tenants WHERE code=?", NormalizeTenantCode(code))
	return err
}

// GetTenant fetches a tenant by code.
func (r *DirectoryRepo) GetTenant(ctx context.Context, code string) (model.Tenant, error) {
	t, err := scanTenant(r.DB.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE code=? LIMIT 1", NormalizeTenantCode(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tenant{}, ErrTenantNotFound
	}
	return t, err
}

// ListTenants returns every tenant ordered by code.
func (r *DirectoryRepo) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+tenantColumns+" FROM tenants ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IsActive returns nil for an active tenant, ErrTenantNotFound for an
// unknown code and ErrTenantInactive otherwise.
func (r *DirectoryRepo) IsActive(ctx context.Context, code string) error {
	var status string
	err := r.DB.QueryRowContext(ctx, "SELECT status FROM tenants WHERE code=? LIMIT 1",
		NormalizeTenantCode(code)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTenantNotFound
	}
	if err != nil {
		return err
	}
	if model.TenantStatus(status) != model.TenantActive {
		return ErrTenantInactive
	}
	return nil
}

// ActivateOnFirstLogin flips a pending tenant to active and stamps
// activated_at.  The WHERE clause makes it fire at most once: a concurrent
// or later call matches no row and reports false.
func (r *DirectoryRepo) ActivateOnFirstLogin(ctx context.Context, code string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE tenants SET status='active', activated_at=?
		 WHERE code=? AND status='inactive' AND activated_at IS NULL`,
		now.UTC(), NormalizeTenantCode(code))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetTenantStatus is the super-admin toggle.  Activating a tenant that
// never logged in also stamps activated_at so it leaves the pending state.
func (r *DirectoryRepo) SetTenantStatus(ctx context.Context, code string, status model.TenantStatus) (model.Tenant, error) {
	if _, err := r.GetTenant(ctx, code); err != nil {
		return model.Tenant{}, err
	}
	var err error
	if status == model.TenantActive {
		_, err = r.DB.ExecContext(ctx,
			`UPDATE tenants SET status='active', activated_at=COALESCE(activated_at, ?) WHERE code=?`,
			time.Now().UTC(), NormalizeTenantCode(code))
	} else {
		_, err = r.DB.ExecContext(ctx, `UPDATE tenants SET status=? WHERE code=?`,
			string(status), NormalizeTenantCode(code))
	}
	if err != nil {
		return model.Tenant{}, err
	}
	return r.GetTenant(ctx, code)
}

// CreateSuperAdmin inserts a platform operator with an already hashed password.
func (r *DirectoryRepo) CreateSuperAdmin(ctx context.Context, username, passwordHash string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO super_admins (username, password_hash, created_at) VALUES (?,?,?)",
		strings.TrimSpace(username), passwordHash, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetSuperAdmin fetches a super admin by username.
func (r *DirectoryRepo) GetSuperAdmin(ctx context.Context, username string) (model.SuperAdmin, error) {
	var a model.SuperAdmin
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM super_admins WHERE username=? LIMIT 1",
		strings.TrimSpace(username)).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SuperAdmin{}, ErrNotFound
	}
	return a, err
}

// CountSuperAdmins is used by the startup seeding task.
func (r *DirectoryRepo) CountSuperAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM super_admins").Scan(&n)
	return n, err
}
