package repository

import (
	"context"
	"database/sql"
	"time"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories of one tenant's database.  It never spans
// two tenants: every repo shares the same handle.
type Store struct {
	db *sql.DB

	Users        *UserRepo
	Categories   *CategoryRepo
	Products     *ProductRepo
	Customers    *CustomerRepo
	Sales        *SaleRepo
	HeldSales    *HeldSaleRepo
	DeliveryBoys *DeliveryBoyRepo
	Settlements  *SettlementRepo
	Settings     *SettingsRepo
}

// NewStore binds all tenant repositories to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		Users:        NewUserRepo(db),
		Categories:   NewCategoryRepo(db),
		Products:     NewProductRepo(db),
		Customers:    NewCustomerRepo(db),
		Sales:        NewSaleRepo(db),
		HeldSales:    NewHeldSaleRepo(db),
		DeliveryBoys: NewDeliveryBoyRepo(db),
		Settlements:  NewSettlementRepo(db),
		Settings:     NewSettingsRepo(db),
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back on error, panic or context cancellation.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}
