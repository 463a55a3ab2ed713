package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// SaleRepo persists committed sales and their lines.  Writes only come in
// Tx form: a sale header never exists without its lines.
type SaleRepo struct{ DB *sql.DB }

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{DB: db} }

// SaleFilter narrows List.  From is inclusive, To exclusive.
type SaleFilter struct {
	From           *time.Time
	To             *time.Time
	Query          string // sale number or customer name substring
	PaymentMethod  model.PaymentMethod
	OrderType      model.OrderType
	DeliveryStatus model.DeliveryStatus
	DeliveryBoyID  *int64
	Limit          int
	Offset         int
}

const saleSelect = `SELECT s.id, s.sale_number, s.customer_id, s.user_id, s.operator_name, s.subtotal,
	s.discount_amount, s.discount_type, s.vat_percentage, s.vat_amount, s.total, s.payment_method,
	s.payment_amount, s.change_amount, s.order_type, s.notes, s.delivery_boy_id, s.delivery_status,
	s.delivery_payment_collected, s.delivery_assigned_at, s.delivery_delivered_at, s.delivery_settled_at,
	s.created_at, c.name, d.name
	FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id
	LEFT JOIN delivery_boys d ON d.id = s.delivery_boy_id`

func scanSale(s rowScanner) (model.SaleDetail, error) {
	var (
		out                             model.SaleDetail
		customerID, deliveryBoyID       sql.NullInt64
		notes, status                   sql.NullString
		customerName, deliveryBoyName   sql.NullString
		assignedAt, deliveredAt, settle sql.NullTime
		discountType, method, orderType string
	)
	if err := s.Scan(&out.ID, &out.SaleNumber, &customerID, &out.UserID, &out.OperatorName, &out.Subtotal,
		&out.DiscountAmount, &discountType, &out.VATPercentage, &out.VATAmount, &out.Total, &method,
		&out.PaymentAmount, &out.ChangeAmount, &orderType, &notes, &deliveryBoyID, &status,
		&out.DeliveryPaymentCollected, &assignedAt, &deliveredAt, &settle,
		&out.CreatedAt, &customerName, &deliveryBoyName); err != nil {
		return model.SaleDetail{}, err
	}
	out.CustomerID = int64Ptr(customerID)
	out.DeliveryBoyID = int64Ptr(deliveryBoyID)
	out.Notes = stringPtr(notes)
	if status.Valid {
		st := model.DeliveryStatus(status.String)
		out.DeliveryStatus = &st
	}
	out.DeliveryAssignedAt = timePtr(assignedAt)
	out.DeliveryDeliveredAt = timePtr(deliveredAt)
	out.DeliverySettledAt = timePtr(settle)
	out.DiscountType = model.DiscountType(discountType)
	out.PaymentMethod = model.PaymentMethod(method)
	out.OrderType = model.OrderType(orderType)
	out.CustomerName = stringPtr(customerName)
	out.DeliveryBoyName = stringPtr(deliveryBoyName)
	out.CreatedAt = out.CreatedAt.UTC()
	return out, nil
}

// InsertTx writes the sale header and sets s.ID.  A clash on sale_number
// yields ErrDuplicate and leaves tx usable.
func (r *SaleRepo) InsertTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
	var status sql.NullString
	if s.DeliveryStatus != nil {
		status = sql.NullString{String: string(*s.DeliveryStatus), Valid: true}
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO sales (sale_number, customer_id, user_id, operator_name,
		subtotal, discount_amount, discount_type, vat_percentage, vat_amount, total, payment_method,
		payment_amount, change_amount, order_type, notes, delivery_boy_id, delivery_status,
		delivery_payment_collected, delivery_assigned_at, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.SaleNumber, nullInt64(s.CustomerID), s.UserID, s.OperatorName,
		s.Subtotal, s.DiscountAmount, string(s.DiscountType), s.VATPercentage, s.VATAmount, s.Total,
		string(s.PaymentMethod), s.PaymentAmount, s.ChangeAmount, string(s.OrderType), nullString(s.Notes),
		nullInt64(s.DeliveryBoyID), status, s.DeliveryPaymentCollected, nullTime(s.DeliveryAssignedAt),
		s.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// InsertItemTx writes one sale line and sets it.ID.
func (r *SaleRepo) InsertItemTx(ctx context.Context, tx *sql.Tx, it *model.SaleItem) error {
	res, err := tx.ExecContext(ctx, `INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, total_price)
		VALUES (?,?,?,?,?,?)`,
		it.SaleID, nullInt64(it.ProductID), it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
	if err != nil {
		return err
	}
	it.ID, err = res.LastInsertId()
	return err
}

// GetDetail returns a sale with names and lines.
func (r *SaleRepo) GetDetail(ctx context.Context, id int64) (model.SaleDetail, error) {
	return r.detail(ctx, r.DB, id)
}

// GetDetailTx is GetDetail inside tx.
func (r *SaleRepo) GetDetailTx(ctx context.Context, tx *sql.Tx, id int64) (model.SaleDetail, error) {
	return r.detail(ctx, tx, id)
}

func (r *SaleRepo) detail(ctx context.Context, q Querier, id int64) (model.SaleDetail, error) {
	d, err := scanSale(q.QueryRowContext(ctx, saleSelect+" WHERE s.id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SaleDetail{}, ErrNotFound
	}
	if err != nil {
		return model.SaleDetail{}, err
	}
	d.Items, err = r.items(ctx, q, id)
	if err != nil {
		return model.SaleDetail{}, err
	}
	return d, nil
}

// ItemsTx returns the lines of a sale inside tx, in insertion order.
func (r *SaleRepo) ItemsTx(ctx context.Context, tx *sql.Tx, saleID int64) ([]model.SaleItem, error) {
	return r.items(ctx, tx, saleID)
}

func (r *SaleRepo) items(ctx context.Context, q Querier, saleID int64) ([]model.SaleItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, sale_id, product_id, product_name, quantity, unit_price, total_price
		FROM sale_items WHERE sale_id=? ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SaleItem{}
	for rows.Next() {
		var (
			it  model.SaleItem
			pid sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.SaleID, &pid, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		it.ProductID = int64Ptr(pid)
		out = append(out, it)
	}
	return out, rows.Err()
}

// List returns sale headers (without lines), newest first.
func (r *SaleRepo) List(ctx context.Context, f SaleFilter) ([]model.SaleDetail, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, "s.created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "s.created_at < ?")
		args = append(args, f.To.UTC())
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(s.sale_number LIKE ? OR c.name LIKE ?)")
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if f.PaymentMethod != "" {
		where = append(where, "s.payment_method=?")
		args = append(args, string(f.PaymentMethod))
	}
	if f.OrderType != "" {
		where = append(where, "s.order_type=?")
		args = append(args, string(f.OrderType))
	}
	if f.DeliveryStatus != "" {
		where = append(where, "s.delivery_status=?")
		args = append(args, string(f.DeliveryStatus))
	}
	if f.DeliveryBoyID != nil {
		where = append(where, "s.delivery_boy_id=?")
		args = append(args, *f.DeliveryBoyID)
	}
	query := saleSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.id DESC"
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(f.Offset, 0))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SaleDetail{}
	for rows.Next() {
		d, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteTx removes a sale and its lines.
func (r *SaleRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM sale_items WHERE sale_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sales WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeliveryPatch lists the delivery columns to change.  Nil fields are left
// as they are.  AssignedAtIfUnset only fills delivery_assigned_at when it
// is still NULL.  ClearSettledAt resets delivery_settled_at to NULL and
// wins over SettledAt.
type DeliveryPatch struct {
	Status            *model.DeliveryStatus
	DeliveryBoyID     *int64
	PaymentCollected  *bool
	AssignedAt        *time.Time
	AssignedAtIfUnset *time.Time
	DeliveredAt       *time.Time
	SettledAt         *time.Time
	ClearSettledAt    bool
}

// UpdateDeliveryTx applies p to the sale.
func (r *SaleRepo) UpdateDeliveryTx(ctx context.Context, tx *sql.Tx, id int64, p DeliveryPatch) error {
	var (
		set  []string
		args []any
	)
	if p.Status != nil {
		set = append(set, "delivery_status=?")
		args = append(args, string(*p.Status))
	}
	if p.DeliveryBoyID != nil {
		set = append(set, "delivery_boy_id=?")
		args = append(args, *p.DeliveryBoyID)
	}
	if p.PaymentCollected != nil {
		set = append(set, "delivery_payment_collected=?")
		args = append(args, *p.PaymentCollected)
	}
	if p.AssignedAt != nil {
		set = append(set, "delivery_assigned_at=?")
		args = append(args, p.AssignedAt.UTC())
	} else if p.AssignedAtIfUnset != nil {
		set = append(set, "delivery_assigned_at=COALESCE(delivery_assigned_at, ?)")
		args = append(args, p.AssignedAtIfUnset.UTC())
	}
	if p.DeliveredAt != nil {
		set = append(set, "delivery_delivered_at=?")
		args = append(args, p.DeliveredAt.UTC())
	}
	if p.ClearSettledAt {
		set = append(set, "delivery_settled_at=NULL")
	} else if p.SettledAt != nil {
		set = append(set, "delivery_settled_at=?")
		args = append(args, p.SettledAt.UTC())
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, "UPDATE sales SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
