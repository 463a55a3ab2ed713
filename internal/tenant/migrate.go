package tenant

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Migration is one additive schema step of a tenant store.  Versions are
// applied in ascending order and recorded in schema_migrations together
// with a checksum of their statements.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Checksum identifies the content of the migration.
func (m Migration) Checksum() string {
	h := sha256.New()
	for _, s := range m.Statements {
		h.Write([]byte(strings.TrimSpace(s)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Migrations is the full tenant store schema history.  Only append: every
// step must be additive (new tables, new nullable or defaulted columns).
var Migrations = []Migration{
	{Version: 1, Name: "base_schema", Statements: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'cashier',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			price REAL NOT NULL CHECK (price >= 0),
			category_id INTEGER NULL,
			track_stock INTEGER NOT NULL DEFAULT 0,
			stock_quantity REAL NOT NULL DEFAULT 0,
			image_path TEXT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT NULL,
			email TEXT NULL,
			address TEXT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sale_number TEXT NOT NULL UNIQUE,
			customer_id INTEGER NULL,
			user_id INTEGER NOT NULL,
			operator_name TEXT NOT NULL DEFAULT '',
			subtotal REAL NOT NULL,
			discount_amount REAL NOT NULL DEFAULT 0,
			discount_type TEXT NOT NULL DEFAULT 'fixed',
			vat_percentage REAL NOT NULL DEFAULT 0,
			vat_amount REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL,
			payment_method TEXT NOT NULL,
			payment_amount REAL NOT NULL DEFAULT 0,
			change_amount REAL NOT NULL DEFAULT 0,
			order_type TEXT NOT NULL DEFAULT 'dine-in',
			notes TEXT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sale_id INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
			product_id INTEGER NULL REFERENCES products(id) ON DELETE SET NULL,
			product_name TEXT NOT NULL,
			quantity REAL NOT NULL,
			unit_price REAL NOT NULL,
			total_price REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items(sale_id)`,
		`CREATE TABLE IF NOT EXISTS held_sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hold_number TEXT NOT NULL UNIQUE,
			items_json TEXT NOT NULL,
			customer_id INTEGER NULL,
			order_type TEXT NOT NULL DEFAULT 'dine-in',
			subtotal REAL NOT NULL DEFAULT 0,
			discount_amount REAL NOT NULL DEFAULT 0,
			discount_type TEXT NOT NULL DEFAULT 'fixed',
			vat_percentage REAL NOT NULL DEFAULT 0,
			vat_amount REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL DEFAULT 0,
			notes TEXT NULL,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}},
	{Version: 2, Name: "sales_delivery_tracking", Statements: []string{
		`ALTER TABLE sales ADD COLUMN delivery_boy_id INTEGER NULL`,
		`ALTER TABLE sales ADD COLUMN delivery_status TEXT NULL`,
		`ALTER TABLE sales ADD COLUMN delivery_payment_collected INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE sales ADD COLUMN delivery_assigned_at DATETIME NULL`,
		`ALTER TABLE sales ADD COLUMN delivery_delivered_at DATETIME NULL`,
		`ALTER TABLE sales ADD COLUMN delivery_settled_at DATETIME NULL`,
		`CREATE INDEX IF NOT EXISTS idx_sales_delivery ON sales(delivery_boy_id, delivery_status)`,
	}},
	{Version: 3, Name: "products_expiry_barcode", Statements: []string{
		`ALTER TABLE products ADD COLUMN expiry_date TEXT NULL`,
		`ALTER TABLE products ADD COLUMN barcode TEXT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode)`,
	}},
	{Version: 4, Name: "delivery_boys", Statements: []string{
		`CREATE TABLE delivery_boys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT NULL,
			address TEXT NULL,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive')),
			created_at DATETIME NOT NULL
		)`,
	}},
	{Version: 5, Name: "delivery_partial_settlements", Statements: []string{
		`CREATE TABLE delivery_settlements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			delivery_boy_id INTEGER NOT NULL,
			settle_date TEXT NOT NULL,
			amount REAL NOT NULL CHECK (amount > 0),
			notes TEXT NULL,
			created_by INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			absorbed_at DATETIME NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_settlements_boy_date ON delivery_settlements(delivery_boy_id, settle_date)`,
	}},
}

// LatestVersion is the schema version a fully migrated store reports.
func LatestVersion() int { return Migrations[len(Migrations)-1].Version }

// isDuplicateDDL recognizes the errors SQLite raises when an additive step
// was already applied by hand or by an older build that did not record it.
func isDuplicateDDL(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

// Migrate applies every pending migration to db and returns the versions it
// applied.  A duplicate column/table error counts as success; any other
// failure rolls back that version and is returned.  A recorded version
// whose checksum no longer matches is reported as schema drift.
func Migrate(ctx context.Context, db *sql.DB) ([]int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]string{}
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		var sum string
		if err := rows.Scan(&v, &sum); err != nil {
			rows.Close()
			return nil, err
		}
		applied[v] = sum
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	var done []int
	for _, m := range Migrations {
		if sum, ok := applied[m.Version]; ok {
			if sum != m.Checksum() {
				return done, fmt.Errorf("schema drift: migration %d (%s) checksum mismatch", m.Version, m.Name)
			}
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return done, fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		done = append(done, m.Version)
	}
	return done, nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil && !isDuplicateDDL(err) {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?,?,?,?)`,
		m.Version, m.Name, m.Checksum(), time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
