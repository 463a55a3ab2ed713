// Package tenant owns the per-tenant SQLite stores: where they live on
// disk, how their schema is brought up to date, and how a request borrows
// a handle for exactly its own lifetime.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/restaurant-pos/internal/database"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("tenant pool closed")

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{1,31}$`)

// ValidCode reports whether code (already normalized) is usable as a store
// file name.
func ValidCode(code string) bool { return codePattern.MatchString(code) }

type entry struct {
	db       *sql.DB
	refs     int
	lastUsed time.Time
}

// Pool caches one open, migrated *sql.DB per tenant code.  Handles are
// handed out as leases; an entry is only evicted when it has no
// outstanding lease and has been idle longer than the pool's TTL.
type Pool struct {
	dir     string
	idleTTL time.Duration
	maxOpen int
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	group   singleflight.Group

	now      func() time.Time
	OnChange func(open int) // called with the number of open stores after each open/evict
}

// NewPool creates a pool storing tenant files under dir.
func NewPool(dir string, idleTTL time.Duration, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		dir:     dir,
		idleTTL: idleTTL,
		maxOpen: 4,
		log:     log,
		entries: map[string]*entry{},
		now:     time.Now,
	}
}

// Path is the store file of a tenant.
func (p *Pool) Path(code string) string { return filepath.Join(p.dir, code+".db") }

// Lease is a borrowed tenant handle.  Release must be called exactly when
// the borrower is done; later calls are no-ops and DB returns nil after it.
type Lease struct {
	pool *Pool
	code string

	mu       sync.Mutex
	db       *sql.DB
	released bool
}

// Code is the tenant the lease belongs to.
func (l *Lease) Code() string { return l.code }

// DB returns the handle, or nil once released.
func (l *Lease) DB() *sql.DB {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	return l.db
}

// Store wraps the handle in the tenant repositories.
func (l *Lease) Store() *repository.Store { return repository.NewStore(l.DB()) }

// Release returns the handle to the pool.
func (l *Lease) Release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	l.mu.Unlock()
	l.pool.release(l.code)
}

// Acquire opens (creating and migrating on first reference) the store of
// code and returns a lease on it.
func (p *Pool) Acquire(ctx context.Context, code string) (*Lease, error) {
	code = repository.NormalizeTenantCode(code)
	if !ValidCode(code) {
		return nil, repository.ErrTenantNotFound
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if e, ok := p.entries[code]; ok {
		e.refs++
		p.mu.Unlock()
		return &Lease{pool: p, code: code, db: e.db}, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(code, func() (any, error) {
		return p.open(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	db := v.(*sql.DB)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = db.Close()
		return nil, ErrPoolClosed
	}
	if e, ok := p.entries[code]; ok {
		// A concurrent flight finished first; keep its handle.
		if e.db != db {
			_ = db.Close()
		}
		e.refs++
		return &Lease{pool: p, code: code, db: e.db}, nil
	}
	p.entries[code] = &entry{db: db, refs: 1, lastUsed: p.now()}
	p.notify()
	return &Lease{pool: p, code: code, db: db}, nil
}

func (p *Pool) open(ctx context.Context, code string) (*sql.DB, error) {
	db, err := database.OpenSQLite(p.Path(code), p.maxOpen)
	if err != nil {
		return nil, fmt.Errorf("open tenant store %s: %w", code, err)
	}
	applied, err := Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate tenant store %s: %w", code, err)
	}
	if len(applied) > 0 {
		p.log.Info("tenant store migrated", zap.String("tenant", code), zap.Ints("versions", applied))
	}
	return db, nil
}

func (p *Pool) release(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[code]; ok {
		e.refs--
		e.lastUsed = p.now()
	}
}

// Sweep closes every idle entry without outstanding leases and returns how
// many were evicted.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	n := 0
	for code, e := range p.entries {
		if e.refs > 0 || now.Sub(e.lastUsed) < p.idleTTL {
			continue
		}
		if err := e.db.Close(); err != nil {
			p.log.Warn("close idle tenant store", zap.String("tenant", code), zap.Error(err))
		}
		delete(p.entries, code)
		n++
	}
	if n > 0 {
		p.notify()
	}
	return n
}

// RunSweeper evicts idle stores every interval until ctx is done.
func (p *Pool) RunSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := p.Sweep(); n > 0 {
				p.log.Debug("evicted idle tenant stores", zap.Int("count", n))
			}
		}
	}
}

// OpenCount is the number of cached stores.
func (p *Pool) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close closes every store.  Outstanding leases keep their *sql.DB value
// but the handle is closed underneath them, so Close belongs after the
// HTTP server has drained.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	var errs []error
	for code, e := range p.entries {
		if err := e.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", code, err))
		}
		delete(p.entries, code)
	}
	p.notify()
	return errors.Join(errs...)
}

// notify must be called with p.mu held.
func (p *Pool) notify() {
	if p.OnChange != nil {
		p.OnChange(len(p.entries))
	}
}

// Provision creates (or reopens) the store of code, seeds the default
// settings without overwriting existing values and returns a lease the
// caller must release.
func (p *Pool) Provision(ctx context.Context, code, restaurantName string) (*Lease, error) {
	lease, err := p.Acquire(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := lease.Store().Settings.Seed(ctx, model.DefaultSettings(restaurantName)); err != nil {
		lease.Release()
		return nil, fmt.Errorf("seed settings of %s: %w", lease.Code(), err)
	}
	return lease, nil
}
