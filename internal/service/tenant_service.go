package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
	"github.com/iliyamo/restaurant-pos/internal/utils"
)

// ProvisionRequest is the body of POST /admin/tenants.
type ProvisionRequest struct {
	TenantCode     string `json:"tenant_code"`
	RestaurantName string `json:"restaurant_name"`
	OwnerUsername  string `json:"owner_username"`
	OwnerPassword  string `json:"owner_password"`
}

// TenantService is the super admin's view of the directory.
type TenantService struct {
	Directory  *repository.DirectoryRepo
	Pool       *tenant.Pool
	BcryptCost int
	Log        *zap.Logger
}

func NewTenantService(dir *repository.DirectoryRepo, pool *tenant.Pool, bcryptCost int, log *zap.Logger) *TenantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TenantService{Directory: dir, Pool: pool, BcryptCost: bcryptCost, Log: log}
}

// Provision registers a tenant in the pending-first-login state, creates
// and migrates its store, seeds default settings and the owner's mirror
// account.  If the store cannot be prepared the directory row is removed.
func (s *TenantService) Provision(ctx context.Context, req ProvisionRequest) (model.Tenant, error) {
	code := repository.NormalizeTenantCode(req.TenantCode)
	if !tenant.ValidCode(code) {
		return model.Tenant{}, repository.Invalid("tenant_code", "must be 2-32 characters of A-Z, 0-9, '-' or '_'")
	}
	name := strings.TrimSpace(req.RestaurantName)
	if name == "" {
		return model.Tenant{}, repository.Invalid("restaurant_name", "is required")
	}
	owner := strings.TrimSpace(req.OwnerUsername)
	if owner == "" {
		return model.Tenant{}, repository.Invalid("owner_username", "is required")
	}
	if len(req.OwnerPassword) < 6 {
		return model.Tenant{}, repository.Invalid("owner_password", "must be at least 6 characters")
	}
	hash, err := utils.HashPassword(req.OwnerPassword, s.BcryptCost)
	if err != nil {
		return model.Tenant{}, err
	}

	t := model.Tenant{Code: code, RestaurantName: name, OwnerUsername: owner, OwnerPassword: hash}
	if err := s.Directory.CreateTenant(ctx, &t); err != nil {
		return model.Tenant{}, err
	}

	if err := s.prepareStore(ctx, t); err != nil {
		if derr := s.Directory.DeleteTenant(context.WithoutCancel(ctx), code); derr != nil {
			s.Log.Error("undo tenant registration", zap.String("tenant", code), zap.Error(derr))
		}
		return model.Tenant{}, err
	}
	s.Log.Info("tenant provisioned", zap.String("tenant", code))
	return t, nil
}

func (s *TenantService) prepareStore(ctx context.Context, t model.Tenant) error {
	lease, err := s.Pool.Provision(ctx, t.Code, t.RestaurantName)
	if err != nil {
		return err
	}
	defer lease.Release()
	_, err = lease.Store().Users.CreateHashed(ctx, t.OwnerUsername, t.OwnerPassword, model.RoleAdmin)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *TenantService) List(ctx context.Context) ([]model.Tenant, error) {
	return s.Directory.ListTenants(ctx)
}

// SetStatus activates or deactivates a tenant.  Deactivation takes effect
// on the tenant's next request.
func (s *TenantService) SetStatus(ctx context.Context, code string, status model.TenantStatus) (model.Tenant, error) {
	if status != model.TenantActive && status != model.TenantInactive {
		return model.Tenant{}, repository.Invalid("status", "must be active or inactive")
	}
	t, err := s.Directory.SetTenantStatus(ctx, code, status)
	if err != nil {
		return model.Tenant{}, err
	}
	s.Log.Info("tenant status changed", zap.String("tenant", t.Code), zap.String("status", string(t.Status)))
	return t, nil
}
