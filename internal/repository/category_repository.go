package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// CategoryRepo manages product categories.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// Create inserts a category; duplicate names yield ErrDuplicate.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	c.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, "INSERT INTO categories (name, created_at) VALUES (?,?)", c.Name, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetByID returns one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx, "SELECT id, name, created_at FROM categories WHERE id=?", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	return c, err
}

// List returns all categories by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rename updates the category name.
func (r *CategoryRepo) Rename(ctx context.Context, id int64, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, Invalid("name", "is required")
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE categories SET name=? WHERE id=?", name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Category{}, ErrDuplicate
		}
		return model.Category{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Category{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a category.  It refuses with ErrConflict while any product
// still references it; the check and the delete share one transaction.
func (r *CategoryRepo) Delete(ctx context.Context, id int64) error {
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

	var refs int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE category_id=?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
