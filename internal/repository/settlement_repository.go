package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// SettlementRepo computes and records how much cash each delivery person
// owes for pay-after-delivery orders of a business day.
type SettlementRepo struct{ DB *sql.DB }

func NewSettlementRepo(db *sql.DB) *SettlementRepo { return &SettlementRepo{DB: db} }

// Day is a business calendar day expressed as a UTC half-open range.
type Day struct {
	Date string // YYYY-MM-DD in the business timezone
	From time.Time
	To   time.Time
}

// Summaries aggregates pay-after-delivery orders created within day, one
// row per delivery person that has at least one such order.  boyID
// restricts the result to one person.
func (r *SettlementRepo) Summaries(ctx context.Context, day Day, boyID *int64) ([]model.SettlementSummary, error) {
	return r.summaries(ctx, r.DB, day, boyID)
}

// SummaryTx returns the summary of one person inside tx.  A person without
// orders on that day gets a zero summary.
func (r *SettlementRepo) SummaryTx(ctx context.Context, tx *sql.Tx, day Day, boy model.DeliveryBoy) (model.SettlementSummary, error) {
	id := boy.ID
	rows, err := r.summaries(ctx, tx, day, &id)
	if err != nil {
		return model.SettlementSummary{}, err
	}
	if len(rows) == 0 {
		return model.SettlementSummary{DeliveryBoyID: boy.ID, DeliveryBoyName: boy.Name, Date: day.Date}, nil
	}
	return rows[0], nil
}

func (r *SettlementRepo) summaries(ctx context.Context, q Querier, day Day, boyID *int64) ([]model.SettlementSummary, error) {
	query := `SELECT s.delivery_boy_id, d.name, COUNT(*),
		COALESCE(SUM(CASE WHEN s.delivery_status IN (?, ?) THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN s.delivery_status IN (?, ?) THEN s.total ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN s.delivery_status = ? THEN s.total ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN s.delivery_status = ? AND s.delivery_settled_at IS NULL THEN s.total ELSE 0 END), 0)
		FROM sales s JOIN delivery_boys d ON d.id = s.delivery_boy_id
		WHERE s.payment_method = ? AND s.created_at >= ? AND s.created_at < ?`
	collected, settled := string(model.DeliveryPaymentCollected), string(model.DeliverySettled)
	args := []any{collected, settled, collected, settled, settled, collected,
		string(model.PayAfterDelivery), day.From.UTC(), day.To.UTC()}
	if boyID != nil {
		query += " AND s.delivery_boy_id = ?"
		args = append(args, *boyID)
	}
	query += " GROUP BY s.delivery_boy_id, d.name ORDER BY d.name, s.delivery_boy_id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []model.SettlementSummary
	for rows.Next() {
		var (
			sm      model.SettlementSummary
			pending float64
		)
		if err := rows.Scan(&sm.DeliveryBoyID, &sm.DeliveryBoyName, &sm.OrderCount, &sm.CollectedCount,
			&sm.TotalCollected, &sm.TotalSettled, &pending); err != nil {
			rows.Close()
			return nil, err
		}
		sm.Date = day.Date
		sm.PendingSettlement = pending
		out = append(out, sm)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []model.SettlementSummary{}, nil
	}

	partials, err := r.openPartials(ctx, q, day.Date)
	if err != nil {
		return nil, err
	}
	for i := range out {
		p := partials[out[i].DeliveryBoyID]
		out[i].PartialSettled = p
		out[i].PendingSettlement = max(out[i].PendingSettlement-p, 0)
	}
	return out, nil
}

// openPartials sums partial settlements for date not yet absorbed by a full
// settle, keyed by delivery person.
func (r *SettlementRepo) openPartials(ctx context.Context, q Querier, date string) (map[int64]float64, error) {
	rows, err := q.QueryContext(ctx, `SELECT delivery_boy_id, COALESCE(SUM(amount), 0) FROM delivery_settlements
		WHERE settle_date = ? AND absorbed_at IS NULL GROUP BY delivery_boy_id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]float64{}
	for rows.Next() {
		var (
			id  int64
			sum float64
		)
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}

// SettleTx marks every collected, unsettled pay-after-delivery order of boyID
// created within day as settled and absorbs that day's open partial
// settlements.  It returns the number of orders and the amount settled.
func (r *SettlementRepo) SettleTx(ctx context.Context, tx *sql.Tx, day Day, boyID int64, now time.Time) (int64, float64, error) {
	const match = `delivery_boy_id = ? AND payment_method = ? AND delivery_status = ?
		AND delivery_settled_at IS NULL AND created_at >= ? AND created_at < ?`
	args := []any{boyID, string(model.PayAfterDelivery), string(model.DeliveryPaymentCollected), day.From.UTC(), day.To.UTC()}

	var amount float64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(SUM(total), 0) FROM sales WHERE "+match, args...).Scan(&amount); err != nil {
		return 0, 0, err
	}
	res, err := tx.ExecContext(ctx, "UPDATE sales SET delivery_status = ?, delivery_settled_at = ? WHERE "+match,
		append([]any{string(model.DeliverySettled), now.UTC()}, args...)...)
	if err != nil {
		return 0, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE delivery_settlements SET absorbed_at = ?
		WHERE delivery_boy_id = ? AND settle_date = ? AND absorbed_at IS NULL`,
		now.UTC(), boyID, day.Date); err != nil {
		return 0, 0, err
	}
	return n, amount, nil
}

// InsertPartialTx records a partial settlement.
func (r *SettlementRepo) InsertPartialTx(ctx context.Context, tx *sql.Tx, p *model.PartialSettlement) error {
	p.CreatedAt = p.CreatedAt.UTC()
	res, err := tx.ExecContext(ctx, `INSERT INTO delivery_settlements
		(delivery_boy_id, settle_date, amount, notes, created_by, created_at) VALUES (?,?,?,?,?,?)`,
		p.DeliveryBoyID, p.SettleDate, p.Amount, nullString(p.Notes), p.CreatedBy, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

// Partials lists the partial settlements of one person for date.
func (r *SettlementRepo) Partials(ctx context.Context, boyID int64, date string) ([]model.PartialSettlement, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, delivery_boy_id, settle_date, amount, notes, created_by, created_at, absorbed_at
		FROM delivery_settlements WHERE delivery_boy_id = ? AND settle_date = ? ORDER BY id`, boyID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PartialSettlement{}
	for rows.Next() {
		var (
			p        model.PartialSettlement
			notes    sql.NullString
			absorbed sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.DeliveryBoyID, &p.SettleDate, &p.Amount, &notes, &p.CreatedBy, &p.CreatedAt, &absorbed); err != nil {
			return nil, err
		}
		p.Notes = stringPtr(notes)
		p.AbsorbedAt = timePtr(absorbed)
		out = append(out, p)
	}
	return out, rows.Err()
}
