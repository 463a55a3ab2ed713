package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// SettingsRepo reads and writes the tenant's key/value settings.
type SettingsRepo struct{ DB *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{DB: db} }

// All returns the stored settings merged over the defaults, so every known
// key is always present.
func (r *SettingsRepo) All(ctx context.Context) (map[model.SettingKey]string, error) {
	out := model.DefaultSettings("")
	rows, err := r.DB.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		if model.KnownSetting(k) {
			out[model.SettingKey(k)] = v
		}
	}
	return out, rows.Err()
}

// GetTx returns one setting read through q, or its default when unset.
func (r *SettingsRepo) GetTx(ctx context.Context, q Querier, key model.SettingKey) (string, error) {
	var v string
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key=?", string(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings("")[key], nil
	}
	return v, err
}

// Upsert validates and writes every pair atomically.  One bad value rejects
// the whole batch.
func (r *SettingsRepo) Upsert(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := model.ValidateSetting(model.SettingKey(k), v); err != nil {
			return Invalid(k, "%s", err.Error())
		}
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO settings (key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
			k, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Seed writes defaults for keys that are not stored yet and leaves
// existing values untouched.
func (r *SettingsRepo) Seed(ctx context.Context, defaults map[model.SettingKey]string) error {
	for k, v := range defaults {
		if _, err := r.DB.ExecContext(ctx, "INSERT OR IGNORE INTO settings (key, value) VALUES (?,?)", string(k), v); err != nil {
			return err
		}
	}
	return nil
}
