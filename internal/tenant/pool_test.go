package tenant

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool(t.TempDir(), time.Minute, nil)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestAcquireCreatesMigratedStore(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	lease, err := p.Acquire(ctx, "bistro")
	require.NoError(t, err)
	defer lease.Release()

	assert.Equal(t, "BISTRO", lease.Code())
	_, err = os.Stat(p.Path("BISTRO"))
	require.NoError(t, err)

	var version int
	require.NoError(t, lease.DB().QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, LatestVersion(), version)
	assert.Equal(t, 1, p.OpenCount())
}

func TestStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	a, err := p.Acquire(ctx, "ALPHA")
	require.NoError(t, err)
	defer a.Release()
	b, err := p.Acquire(ctx, "BETA")
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, a.Store().Categories.Create(ctx, &model.Category{Name: "Drinks"}))

	inA, err := a.Store().Categories.List(ctx)
	require.NoError(t, err)
	inB, err := b.Store().Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, inA, 1)
	assert.Empty(t, inB)
	assert.NotEqual(t, p.Path("ALPHA"), p.Path("BETA"))
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	first, err := p.Acquire(ctx, "BISTRO")
	require.NoError(t, err)
	second, err := p.Acquire(ctx, "BISTRO")
	require.NoError(t, err)
	assert.Same(t, first.DB(), second.DB())

	first.Release()
	first.Release()
	assert.Nil(t, first.DB())
	assert.Equal(t, 1, p.entries["BISTRO"].refs)

	second.Release()
	assert.Equal(t, 0, p.entries["BISTRO"].refs)
}

func TestSweepEvictsOnlyIdleUnleasedStores(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	var counts []int
	p.OnChange = func(n int) { counts = append(counts, n) }

	held, err := p.Acquire(ctx, "HELD")
	require.NoError(t, err)
	idle, err := p.Acquire(ctx, "IDLE")
	require.NoError(t, err)
	require.NoError(t, idle.Store().Categories.Create(ctx, &model.Category{Name: "Soups"}))
	idle.Release()

	assert.Zero(t, p.Sweep(), "entries younger than the TTL stay")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, p.Sweep())
	assert.Equal(t, 1, p.OpenCount())
	assert.Contains(t, p.entries, "HELD")
	held.Release()

	again, err := p.Acquire(ctx, "IDLE")
	require.NoError(t, err)
	defer again.Release()
	cats, err := again.Store().Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1, "data survives eviction")

	assert.Equal(t, []int{1, 2, 1, 2}, counts)
}

func TestConcurrentAcquireOpensOnce(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	var wg sync.WaitGroup
	leases := make([]*Lease, 16)
	errs := make([]error, 16)
	for i := range leases {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			leases[i], errs[i] = p.Acquire(ctx, "BISTRO")
		}(i)
	}
	wg.Wait()

	for i := range leases {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, 1, p.OpenCount())
	assert.Equal(t, 16, p.entries["BISTRO"].refs)
	for _, l := range leases {
		l.Release()
	}
}

func TestAcquireRejectsBadCodesAndClosedPool(t *testing.T) {
	ctx := context.Background()
	p := NewPool(t.TempDir(), time.Minute, nil)

	for _, code := range []string{"", "A", "../etc", "has space", "toolong-toolong-toolong-toolong-x"} {
		_, err := p.Acquire(ctx, code)
		assert.ErrorIs(t, err, repository.ErrTenantNotFound, code)
	}

	require.NoError(t, p.Close())
	_, err := p.Acquire(ctx, "BISTRO")
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestProvisionSeedsSettingsWithoutOverwriting(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	lease, err := p.Provision(ctx, "BISTRO", "Le Bistro")
	require.NoError(t, err)
	settings, err := lease.Store().Settings.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Le Bistro", settings[model.SettingRestaurantName])
	for k := range model.DefaultSettings("") {
		assert.Contains(t, settings, k)
	}
	require.NoError(t, lease.Store().Settings.Upsert(ctx, map[string]string{"currency": "EUR"}))
	lease.Release()

	lease, err = p.Provision(ctx, "BISTRO", "Renamed")
	require.NoError(t, err)
	defer lease.Release()
	settings, err = lease.Store().Settings.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", settings[model.SettingCurrency])
	assert.Equal(t, "Le Bistro", settings[model.SettingRestaurantName])
}
