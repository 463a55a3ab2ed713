package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/restaurant-pos/internal/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a single-file SQLite database.
// WAL lets readers proceed during a write, busy_timeout makes concurrent
// writers wait for the file lock instead of failing, and _txlock=immediate
// takes the write lock at BEGIN so two commits never deadlock on upgrade.
// _time_format=sqlite stores times as sortable "YYYY-MM-DD HH:MM:SS" text
// so range filters compare correctly.
func OpenSQLite(path string, maxOpen int) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Set("_txlock", "immediate")
	q.Set("_time_format", "sqlite")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen < 1 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// OpenDirectory opens the tenant directory selected by cfg.DirectoryDriver.
func OpenDirectory(cfg config.Config) (*sql.DB, string, error) {
	switch cfg.DirectoryDriver {
	case DriverMySQL:
		db, err := OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return db, DriverMySQL, err
	case DriverSQLite, "":
		db, err := OpenSQLite(cfg.DirectoryPath, 4)
		return db, DriverSQLite, err
	}
	return nil, "", fmt.Errorf("unsupported directory driver %q", cfg.DirectoryDriver)
}
