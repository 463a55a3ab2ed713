package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// CustomerRepo manages customers that can be attached to sales.
type CustomerRepo struct{ DB *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{DB: db} }

const customerSelect = "SELECT id, name, phone, email, address, created_at FROM customers"

func scanCustomer(s rowScanner) (model.Customer, error) {
	var (
		c                     model.Customer
		phone, email, address sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &phone, &email, &address, &c.CreatedAt); err != nil {
		return model.Customer{}, err
	}
	c.Phone, c.Email, c.Address = stringPtr(phone), stringPtr(email), stringPtr(address)
	return c, nil
}

// Create inserts a customer.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	c.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO customers (name, phone, email, address, created_at) VALUES (?,?,?,?,?)",
		c.Name, nullString(c.Phone), nullString(c.Email), nullString(c.Address), c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetByID returns one customer.
func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (model.Customer, error) {
	c, err := scanCustomer(r.DB.QueryRowContext(ctx, customerSelect+" WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// ExistsTx reports whether a customer id is present.
func (r *CustomerRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM customers WHERE id=?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// List returns customers, optionally filtered by a name or phone substring.
func (r *CustomerRepo) List(ctx context.Context, q string) ([]model.Customer, error) {
	query := customerSelect
	var args []any
	if q = strings.TrimSpace(q); q != "" {
		query += " WHERE name LIKE ? OR phone LIKE ?"
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	rows, err := r.DB.QueryContext(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites a customer's contact data.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE customers SET name=?, phone=?, email=?, address=? WHERE id=?",
		c.Name, nullString(c.Phone), nullString(c.Email), nullString(c.Address), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
