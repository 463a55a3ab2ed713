package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// ProductRepo manages the tenant's catalog and stock levels.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

// ProductFilter narrows List.  Zero values mean "no filter".
type ProductFilter struct {
	CategoryID *int64
	Query      string // substring of name, or exact barcode
	Barcode    string
}

const productSelect = `SELECT p.id, p.name, p.price, p.category_id, c.name, p.track_stock, p.stock_quantity,
	p.expiry_date, p.barcode, p.image_path, p.created_at, p.updated_at
	FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p                    model.Product
		categoryID           sql.NullInt64
		categoryName, expiry sql.NullString
		barcode, image       sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Price, &categoryID, &categoryName, &p.TrackStock, &p.StockQuantity,
		&expiry, &barcode, &image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}
	p.CategoryID = int64Ptr(categoryID)
	p.CategoryName = stringPtr(categoryName)
	p.ExpiryDate = stringPtr(expiry)
	p.Barcode = stringPtr(barcode)
	p.ImagePath = stringPtr(image)
	return p, nil
}

func validateProduct(p *model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Invalid("name", "is required")
	}
	if p.Price < 0 {
		return Invalid("price", "must not be negative")
	}
	if p.ExpiryDate != nil && *p.ExpiryDate != "" {
		if _, err := time.Parse("2006-01-02", *p.ExpiryDate); err != nil {
			return Invalid("expiry_date", "must be YYYY-MM-DD")
		}
	}
	return nil
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := r.DB.ExecContext(ctx, `INSERT INTO products
		(name, price, category_id, track_stock, stock_quantity, expiry_date, barcode, image_path, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Price, nullInt64(p.CategoryID), p.TrackStock, p.StockQuantity,
		nullString(p.ExpiryDate), nullString(p.Barcode), nullString(p.ImagePath), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// GetByID returns one product with its category name.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (model.Product, error) {
	return r.get(ctx, r.DB, id)
}

// GetTx reads a product inside tx.
func (r *ProductRepo) GetTx(ctx context.Context, tx *sql.Tx, id int64) (model.Product, error) {
	return r.get(ctx, tx, id)
}

func (r *ProductRepo) get(ctx context.Context, q Querier, id int64) (model.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, productSelect+" WHERE p.id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	return p, err
}

// List returns products ordered by name.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID != nil {
		where = append(where, "p.category_id=?")
		args = append(args, *f.CategoryID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(p.name LIKE ? OR p.barcode=?)")
		args = append(args, "%"+q+"%", q)
	}
	if b := strings.TrimSpace(f.Barcode); b != "" {
		where = append(where, "p.barcode=?")
		args = append(args, b)
	}
	query := productSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.name, p.id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of a product.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `UPDATE products SET name=?, price=?, category_id=?, track_stock=?,
		stock_quantity=?, expiry_date=?, barcode=?, image_path=?, updated_at=? WHERE id=?`,
		p.Name, p.Price, nullInt64(p.CategoryID), p.TrackStock, p.StockQuantity,
		nullString(p.ExpiryDate), nullString(p.Barcode), nullString(p.ImagePath), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a product.  Sale lines keep their name snapshot and lose
// the reference.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStockTx adds delta to the stock of a stock-tracked product.  It
// reports whether a row was changed; untracked or missing products are
// left alone.  Stock may go negative.
func (r *ProductRepo) AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta float64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + ?, updated_at=? WHERE id=? AND track_stock=1",
		delta, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("adjust stock of product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// LowStock lists tracked products at or below threshold.
func (r *ProductRepo) LowStock(ctx context.Context, threshold float64) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx, productSelect+" WHERE p.track_stock=1 AND p.stock_quantity <= ? ORDER BY p.stock_quantity, p.name", threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
