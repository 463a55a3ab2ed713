package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// DeliveryBoyRepo manages the tenant's delivery staff.
type DeliveryBoyRepo struct{ DB *sql.DB }

func NewDeliveryBoyRepo(db *sql.DB) *DeliveryBoyRepo { return &DeliveryBoyRepo{DB: db} }

const deliveryBoySelect = "SELECT id, name, phone, address, status, created_at FROM delivery_boys"

func scanDeliveryBoy(s rowScanner) (model.DeliveryBoy, error) {
	var (
		d              model.DeliveryBoy
		phone, address sql.NullString
		status         string
	)
	if err := s.Scan(&d.ID, &d.Name, &phone, &address, &status, &d.CreatedAt); err != nil {
		return model.DeliveryBoy{}, err
	}
	d.Phone, d.Address = stringPtr(phone), stringPtr(address)
	d.Status = model.DeliveryBoyStatus(status)
	return d, nil
}

func validateDeliveryBoy(d *model.DeliveryBoy) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Invalid("name", "is required")
	}
	if d.Status == "" {
		d.Status = model.DeliveryBoyActive
	}
	if d.Status != model.DeliveryBoyActive && d.Status != model.DeliveryBoyInactive {
		return Invalid("status", "must be active or inactive")
	}
	return nil
}

// Create inserts a delivery person.
func (r *DeliveryBoyRepo) Create(ctx context.Context, d *model.DeliveryBoy) error {
	if err := validateDeliveryBoy(d); err != nil {
		return err
	}
	d.CreatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO delivery_boys (name, phone, address, status, created_at) VALUES (?,?,?,?,?)",
		d.Name, nullString(d.Phone), nullString(d.Address), string(d.Status), d.CreatedAt)
	if err != nil {
		return err
	}
	d.ID, err = res.LastInsertId()
	return err
}

// GetByID returns one delivery person.
func (r *DeliveryBoyRepo) GetByID(ctx context.Context, id int64) (model.DeliveryBoy, error) {
	return r.get(ctx, r.DB, id)
}

// GetTx reads a delivery person inside tx.
func (r *DeliveryBoyRepo) GetTx(ctx context.Context, tx *sql.Tx, id int64) (model.DeliveryBoy, error) {
	return r.get(ctx, tx, id)
}

func (r *DeliveryBoyRepo) get(ctx context.Context, q Querier, id int64) (model.DeliveryBoy, error) {
	d, err := scanDeliveryBoy(q.QueryRowContext(ctx, deliveryBoySelect+" WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.DeliveryBoy{}, ErrNotFound
	}
	return d, err
}

// List returns delivery staff, optionally only those with status.
func (r *DeliveryBoyRepo) List(ctx context.Context, status model.DeliveryBoyStatus) ([]model.DeliveryBoy, error) {
	query := deliveryBoySelect
	var args []any
	if status != "" {
		query += " WHERE status=?"
		args = append(args, string(status))
	}
	rows, err := r.DB.QueryContext(ctx, query+" ORDER BY name, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DeliveryBoy{}
	for rows.Next() {
		d, err := scanDeliveryBoy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update overwrites a delivery person's data.
func (r *DeliveryBoyRepo) Update(ctx context.Context, d *model.DeliveryBoy) error {
	if err := validateDeliveryBoy(d); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE delivery_boys SET name=?, phone=?, address=?, status=? WHERE id=?",
		d.Name, nullString(d.Phone), nullString(d.Address), string(d.Status), d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a delivery person unless they still carry deliveries that
// are not settled, which yields ErrConflict.
func (r *DeliveryBoyRepo) Delete(ctx context.Context, id int64) error {
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

	var open int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales
		WHERE delivery_boy_id=? AND delivery_status IS NOT NULL AND delivery_status <> ?`,
		id, string(model.DeliverySettled)).Scan(&open); err != nil {
		return err
	}
	if open > 0 {
		return ErrConflict
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM delivery_boys WHERE id=?", id)
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
