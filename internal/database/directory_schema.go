package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The directory is small and shared by every tenant: one row per tenant
// and one per platform operator.  DDL differs per dialect; the DML issued
// by the repository is portable (`?` placeholders, timestamps bound from Go).

var sqliteDirectoryDDL = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		restaurant_name TEXT NOT NULL,
		owner_username TEXT NOT NULL,
		owner_password_hash TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'inactive' CHECK (status IN ('active','inactive')),
		activated_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS super_admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

var mysqlDirectoryDDL = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(32) NOT NULL,
		restaurant_name VARCHAR(255) NOT NULL,
		owner_username VARCHAR(100) NOT NULL,
		owner_password_hash VARCHAR(255) NOT NULL,
		status ENUM('active','inactive') NOT NULL DEFAULT 'inactive',
		activated_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_tenants_code (code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS super_admins (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_super_admins_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureDirectorySchema creates the directory tables when missing.
func EnsureDirectorySchema(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = sqliteDirectoryDDL
	case DriverMySQL:
		stmts = mysqlDirectoryDDL
	default:
		return fmt.Errorf("unsupported directory driver %q", driver)
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("directory schema: %w", err)
		}
	}
	return nil
}
