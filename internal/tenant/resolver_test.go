package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

type stubDirectory map[string]error

func (d stubDirectory) IsActive(_ context.Context, code string) error {
	err, ok := d[code]
	if !ok {
		return repository.ErrTenantNotFound
	}
	return err
}

func serve(t *testing.T, pool *Pool, dir ActiveChecker, p *model.Principal, h echo.HandlerFunc) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/products", nil), rec)
	if p != nil {
		middleware.SetPrincipal(c, *p)
	}
	err := Resolver(pool, dir)(h)(c)
	return rec, c, err
}

func TestResolverBindsAndReleasesStore(t *testing.T) {
	pool := NewPool(t.TempDir(), time.Minute, nil)
	defer pool.Close()
	dir := stubDirectory{"BISTRO": nil}
	p := model.Principal{ID: 1, Username: "amina", Role: model.RoleCashier, TenantCode: "BISTRO"}

	var seen *repository.Store
	_, c, err := serve(t, pool, dir, &p, func(c echo.Context) error {
		seen = StoreFrom(c)
		require.NotNil(t, seen)
		assert.Equal(t, 1, pool.entries["BISTRO"].refs)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Nil(t, StoreFrom(c))
	assert.Equal(t, 0, pool.entries["BISTRO"].refs)
}

func TestResolverReleasesOnHandlerError(t *testing.T) {
	pool := NewPool(t.TempDir(), time.Minute, nil)
	defer pool.Close()
	p := model.Principal{ID: 1, Role: model.RoleAdmin, TenantCode: "BISTRO"}

	_, _, err := serve(t, pool, stubDirectory{"BISTRO": nil}, &p, func(echo.Context) error {
		return repository.ErrConflict
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 0, pool.entries["BISTRO"].refs)
}

func TestResolverRejectsUnservableTenants(t *testing.T) {
	pool := NewPool(t.TempDir(), time.Minute, nil)
	defer pool.Close()
	dir := stubDirectory{"SLEEPY": repository.ErrTenantInactive}
	never := func(echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	}

	inactive := model.Principal{ID: 1, Role: model.RoleAdmin, TenantCode: "SLEEPY"}
	_, _, err := serve(t, pool, dir, &inactive, never)
	assert.ErrorIs(t, err, repository.ErrTenantInactive)

	gone := model.Principal{ID: 1, Role: model.RoleAdmin, TenantCode: "GONE"}
	_, _, err = serve(t, pool, dir, &gone, never)
	assert.ErrorIs(t, err, repository.ErrTenantNotFound)
	assert.Zero(t, pool.OpenCount(), "no store is opened for rejected tenants")

	super := model.Principal{ID: 1, Role: model.RoleSuperAdmin}
	rec, _, err := serve(t, pool, dir, &super, never)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _, err = serve(t, pool, dir, nil, never)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
