package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// HeldSaleRepo stores suspended carts.  Lines are kept as a JSON snapshot
// since they never feed stock or reporting until the cart is committed.
type HeldSaleRepo struct{ DB *sql.DB }

func NewHeldSaleRepo(db *sql.DB) *HeldSaleRepo { return &HeldSaleRepo{DB: db} }

const heldSaleSelect = `SELECT id, hold_number, items_json, customer_id, order_type, subtotal, discount_amount,
	discount_type, vat_percentage, vat_amount, total, notes, user_id, created_at FROM held_sales`

func scanHeldSale(s rowScanner) (model.HeldSale, error) {
	var (
		h            model.HeldSale
		items        string
		customer     sql.NullInt64
		notes        sql.NullString
		orderType    string
		discountType string
	)
	if err := s.Scan(&h.ID, &h.HoldNumber, &items, &customer, &orderType, &h.Subtotal, &h.DiscountAmount,
		&discountType, &h.VATPercentage, &h.VATAmount, &h.Total, &notes, &h.UserID, &h.CreatedAt); err != nil {
		return model.HeldSale{}, err
	}
	if err := json.Unmarshal([]byte(items), &h.Items); err != nil {
		return model.HeldSale{}, fmt.Errorf("decode held sale %d items: %w", h.ID, err)
	}
	h.CustomerID = int64Ptr(customer)
	h.Notes = stringPtr(notes)
	h.OrderType = model.OrderType(orderType)
	h.DiscountType = model.DiscountType(discountType)
	return h, nil
}

// Create inserts a held cart.  HoldNumber must already be set.
func (r *HeldSaleRepo) Create(ctx context.Context, h *model.HeldSale) error {
	items, err := json.Marshal(h.Items)
	if err != nil {
		return err
	}
	h.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `INSERT INTO held_sales (hold_number, items_json, customer_id, order_type,
		subtotal, discount_amount, discount_type, vat_percentage, vat_amount, total, notes, user_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		h.HoldNumber, string(items), nullInt64(h.CustomerID), string(h.OrderType), h.Subtotal, h.DiscountAmount,
		string(h.DiscountType), h.VATPercentage, h.VATAmount, h.Total, nullString(h.Notes), h.UserID, h.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

// GetByID returns one held cart.
func (r *HeldSaleRepo) GetByID(ctx context.Context, id int64) (model.HeldSale, error) {
	h, err := scanHeldSale(r.DB.QueryRowContext(ctx, heldSaleSelect+" WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.HeldSale{}, ErrNotFound
	}
	return h, err
}

// List returns held carts, newest first.
func (r *HeldSaleRepo) List(ctx context.Context) ([]model.HeldSale, error) {
	rows, err := r.DB.QueryContext(ctx, heldSaleSelect+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.HeldSale{}
	for rows.Next() {
		h, err := scanHeldSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete discards a held cart.
func (r *HeldSaleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM held_sales WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TakeTx reads and removes a held cart in tx, used when resuming it.
func (r *HeldSaleRepo) TakeTx(ctx context.Context, tx *sql.Tx, id int64) (model.HeldSale, error) {
	h, err := scanHeldSale(tx.QueryRowContext(ctx, heldSaleSelect+" WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.HeldSale{}, ErrNotFound
	}
	if err != nil {
		return model.HeldSale{}, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM held_sales WHERE id=?", id); err != nil {
		return model.HeldSale{}, err
	}
	return h, nil
}
