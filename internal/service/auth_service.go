package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
	"github.com/iliyamo/restaurant-pos/internal/utils"
)

// LoginRequest is the body of POST /auth/login.  An empty TenantCode selects
// the super admin path.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TenantCode string `json:"tenant_code"`
}

// LoginResult carries the issued token and the principal it encodes.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      model.Principal `json:"user"`
}

// AuthService resolves credentials to a principal and issues access tokens.
type AuthService struct {
	Directory  *repository.DirectoryRepo
	Pool       *tenant.Pool
	Secret     string
	TTLMin     int
	BcryptCost int
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	now func() time.Time
}

func NewAuthService(dir *repository.DirectoryRepo, pool *tenant.Pool, secret string, ttlMin, bcryptCost int, m *metrics.Metrics, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		Directory:  dir,
		Pool:       pool,
		Secret:     secret,
		TTLMin:     ttlMin,
		BcryptCost: bcryptCost,
		Metrics:    m,
		Log:        log,
		now:        time.Now,
	}
}

// Login verifies the credentials and returns a signed token.
//
// Without a tenant code only super admins can log in.  With one, the
// directory's owner account is tried first and the tenant's own users
// second.  The owner's first successful login activates a pending tenant;
// any other login into a tenant that is not active fails with
// ErrTenantInactive, and only after the password was verified.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return LoginResult{}, repository.Invalid("username", "is required")
	}
	if req.Password == "" {
		return LoginResult{}, repository.Invalid("password", "is required")
	}

	p, err := s.resolve(ctx, username, req.Password, repository.NormalizeTenantCode(req.TenantCode))
	if err != nil {
		s.Metrics.Login(loginOutcome(err))
		return LoginResult{}, err
	}
	tok, err := utils.NewAccessToken(s.Secret, p, s.TTLMin)
	if err != nil {
		return LoginResult{}, err
	}
	s.Metrics.Login("success")
	return LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: p}, nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, repository.ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, repository.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, repository.ErrTenantNotFound):
		return "tenant_not_found"
	}
	return "error"
}

func (s *AuthService) resolve(ctx context.Context, username, password, code string) (model.Principal, error) {
	if code == "" {
		admin, err := s.Directory.GetSuperAdmin(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, repository.ErrBadCredentials
		}
		if err != nil {
			return model.Principal{}, err
		}
		if !utils.VerifyPassword(admin.PasswordHash, password) {
			return model.Principal{}, repository.ErrBadCredentials
		}
		return model.Principal{ID: admin.ID, Username: admin.Username, Role: model.RoleSuperAdmin}, nil
	}

	t, err := s.Directory.GetTenant(ctx, code)
	if err != nil {
		return model.Principal{}, err
	}
	if username == t.OwnerUsername {
		return s.ownerLogin(ctx, t, password)
	}
	return s.staffLogin(ctx, t, username, password)
}

func (s *AuthService) ownerLogin(ctx context.Context, t model.Tenant, password string) (model.Principal, error) {
	if !utils.VerifyPassword(t.OwnerPassword, password) {
		return model.Principal{}, repository.ErrBadCredentials
	}
	switch {
	case t.PendingFirstLogin():
		fired, err := s.Directory.ActivateOnFirstLogin(ctx, t.Code, s.now())
		if err != nil {
			return model.Principal{}, err
		}
		if fired {
			s.Log.Info("tenant activated on first owner login", zap.String("tenant", t.Code))
		}
	case t.Status != model.TenantActive:
		return model.Principal{}, repository.ErrTenantInactive
	}

	lease, err := s.Pool.Acquire(ctx, t.Code)
	if err != nil {
		return model.Principal{}, err
	}
	defer lease.Release()

	users := lease.Store().Users
	u, err := users.GetByUsername(ctx, t.OwnerUsername)
	if errors.Is(err, repository.ErrNotFound) {
		// Stores provisioned before the mirror account existed get it now.
		id, cerr := users.CreateHashed(ctx, t.OwnerUsername, t.OwnerPassword, model.RoleAdmin)
		if cerr != nil {
			return model.Principal{}, cerr
		}
		u = model.User{ID: id, Username: t.OwnerUsername, Role: model.RoleAdmin}
	} else if err != nil {
		return model.Principal{}, err
	}
	return model.Principal{ID: u.ID, Username: u.Username, Role: model.RoleAdmin, TenantCode: t.Code}, nil
}

func (s *AuthService) staffLogin(ctx context.Context, t model.Tenant, username, password string) (model.Principal, error) {
	lease, err := s.Pool.Acquire(ctx, t.Code)
	if err != nil {
		return model.Principal{}, err
	}
	defer lease.Release()

	u, err := lease.Store().Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Principal{}, repository.ErrBadCredentials
	}
	if err != nil {
		return model.Principal{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.Principal{}, repository.ErrBadCredentials
	}
	if u.Role != model.RoleAdmin && u.Role != model.RoleCashier {
		return model.Principal{}, repository.ErrBadCredentials
	}
	if t.Status != model.TenantActive {
		return model.Principal{}, repository.ErrTenantInactive
	}
	return model.Principal{ID: u.ID, Username: u.Username, Role: u.Role, TenantCode: t.Code}, nil
}

// EnsureSuperAdmin creates the configured super admin when the directory
// has none yet.  An empty password skips seeding.
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, username, password string) error {
	n, err := s.Directory.CountSuperAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if strings.TrimSpace(username) == "" || password == "" {
		s.Log.Warn("no super admin exists and SUPERADMIN_PASSWORD is unset; skipping seed")
		return nil
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return err
	}
	if _, err := s.Directory.CreateSuperAdmin(ctx, username, hash); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.Log.Info("super admin seeded", zap.String("username", username))
	return nil
}
