package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/queue"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// errNotPayAfterDelivery is returned by every delivery operation on a sale
// paid any other way.
var errNotPayAfterDelivery = repository.Invalid("sale", "not a pay-after-delivery order")

// DeliveryService drives the delivery workflow of pay-after-delivery sales
// and the per-day cash settlement of delivery staff.
type DeliveryService struct {
	Events   queue.Publisher
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Location *time.Location
	// PublishTimeout bounds each event publish; zero means DefaultPublishTimeout.
	PublishTimeout time.Duration

	now func() time.Time
}

func (s *DeliveryService) publishTimeout() time.Duration {
	if s.PublishTimeout > 0 {
		return s.PublishTimeout
	}
	return DefaultPublishTimeout
}

// NewDeliveryService wires a DeliveryService.  loc defines business days.
func NewDeliveryService(events queue.Publisher, m *metrics.Metrics, log *zap.Logger, loc *time.Location) *DeliveryService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DeliveryService{Events: events, Metrics: m, Log: log, Location: loc, now: time.Now}
}

// Day resolves a YYYY-MM-DD date (today when empty) to the UTC range
// [00:00, next 00:00) of that day in the business timezone.
func (s *DeliveryService) Day(date string) (repository.Day, error) {
	date = strings.TrimSpace(date)
	var start time.Time
	if date == "" {
		n := s.now().In(s.Location)
		start = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.Location)
	} else {
		d, err := time.ParseInLocation("2006-01-02", date, s.Location)
		if err != nil {
			return repository.Day{}, repository.Invalid("date", "must be YYYY-MM-DD")
		}
		start = d
	}
	return repository.Day{
		Date: start.Format("2006-01-02"),
		From: start.UTC(),
		To:   start.AddDate(0, 0, 1).UTC(),
	}, nil
}

// deliverySale loads a sale inside tx and rejects it unless it is paid
// after delivery.
func deliverySale(ctx context.Context, store *repository.Store, tx *sql.Tx, id int64) (model.SaleDetail, error) {
	sale, err := store.Sales.GetDetailTx(ctx, tx, id)
	if err != nil {
		return model.SaleDetail{}, err
	}
	if !sale.IsPayAfterDelivery() {
		return model.SaleDetail{}, errNotPayAfterDelivery
	}
	return sale, nil
}

// Assign hands a pay-after-delivery sale to an active delivery person and
// moves it to assigned from whatever state it was in.
func (s *DeliveryService) Assign(ctx context.Context, store *repository.Store, saleID, boyID int64) (model.SaleDetail, error) {
	var out model.SaleDetail
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := deliverySale(ctx, store, tx, saleID); err != nil {
			return err
		}
		boy, err := store.DeliveryBoys.GetTx(ctx, tx, boyID)
		if err != nil {
			return err
		}
		if boy.Status != model.DeliveryBoyActive {
			return repository.Invalid("delivery_boy_id", "delivery person %d is inactive", boy.ID)
		}
		status := model.DeliveryAssigned
		now := s.now().UTC()
		if err := store.Sales.UpdateDeliveryTx(ctx, tx, saleID, repository.DeliveryPatch{
			Status:        &status,
			DeliveryBoyID: &boy.ID,
			AssignedAt:    &now,
		}); err != nil {
			return err
		}
		out, err = store.Sales.GetDetailTx(ctx, tx, saleID)
		return err
	})
	return out, err
}

// SetStatus moves a sale to any of the six workflow states.  Order is not
// enforced; each target state stamps its own column:
// out_for_delivery back-fills the assignment time, delivered and settled
// stamp their times, payment_collected raises the collected flag.
//
// Leaving settled clears delivery_settled_at so the order is pending again,
// and any state before payment_collected lowers the collected flag.
func (s *DeliveryService) SetStatus(ctx context.Context, store *repository.Store, saleID int64, status model.DeliveryStatus) (model.SaleDetail, error) {
	if !status.Valid() {
		return model.SaleDetail{}, repository.Invalid("status", "unknown delivery status %q", status)
	}
	var out model.SaleDetail
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		prev, err := deliverySale(ctx, store, tx, saleID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		patch := repository.DeliveryPatch{Status: &status}
		switch status {
		case model.DeliveryOutForDelivery:
			patch.AssignedAtIfUnset = &now
		case model.DeliveryDelivered:
			patch.DeliveredAt = &now
		case model.DeliveryPaymentCollected:
			collected := true
			patch.PaymentCollected = &collected
		case model.DeliverySettled:
			patch.SettledAt = &now
		}
		if status != model.DeliverySettled {
			patch.ClearSettledAt = true
		}
		if model.DeliveryPaymentCollected.IsForwardOf(status) {
			collected := false
			patch.PaymentCollected = &collected
		}
		if err := store.Sales.UpdateDeliveryTx(ctx, tx, saleID, patch); err != nil {
			return err
		}
		if prev.DeliveryStatus != nil && !status.IsForwardOf(*prev.DeliveryStatus) && status != *prev.DeliveryStatus {
			s.Log.Info("delivery status moved backwards",
				zap.Int64("sale_id", saleID),
				zap.String("from", string(*prev.DeliveryStatus)),
				zap.String("to", string(status)))
		}
		out, err = store.Sales.GetDetailTx(ctx, tx, saleID)
		return err
	})
	return out, err
}

func roundSummary(sm model.SettlementSummary) model.SettlementSummary {
	r := func(f float64) float64 { return decimal.NewFromFloat(f).Round(2).InexactFloat64() }
	sm.TotalCollected = r(sm.TotalCollected)
	sm.TotalSettled = r(sm.TotalSettled)
	sm.PartialSettled = r(sm.PartialSettled)
	sm.PendingSettlement = r(sm.PendingSettlement)
	return sm
}

// Summary reports the settlement position of every delivery person with
// pay-after-delivery orders on date, or only of boyID when set.
func (s *DeliveryService) Summary(ctx context.Context, store *repository.Store, date string, boyID *int64) ([]model.SettlementSummary, error) {
	day, err := s.Day(date)
	if err != nil {
		return nil, err
	}
	rows, err := store.Settlements.Summaries(ctx, day, boyID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = roundSummary(rows[i])
	}
	return rows, nil
}

// SettleResult is the outcome of a full or partial settlement.
type SettleResult struct {
	Orders  int64                   `json:"orders"`
	Amount  float64                 `json:"amount"`
	Summary model.SettlementSummary `json:"summary"`
}

// Settle marks every collected, unsettled order of boyID on date as
// settled in one update and absorbs that day's partial settlements.
func (s *DeliveryService) Settle(ctx context.Context, store *repository.Store, p model.Principal, boyID int64, date string) (SettleResult, error) {
	day, err := s.Day(date)
	if err != nil {
		return SettleResult{}, err
	}
	var res SettleResult
	var boy model.DeliveryBoy
	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		boy, err = store.DeliveryBoys.GetTx(ctx, tx, boyID)
		if err != nil {
			return err
		}
		res.Orders, res.Amount, err = store.Settlements.SettleTx(ctx, tx, day, boyID, s.now())
		if err != nil {
			return err
		}
		res.Summary, err = store.Settlements.SummaryTx(ctx, tx, day, boy)
		return err
	})
	if err != nil {
		return SettleResult{}, err
	}
	res.Amount = decimal.NewFromFloat(res.Amount).Round(2).InexactFloat64()
	res.Summary = roundSummary(res.Summary)
	s.Metrics.Settlement("full")
	s.publish(ctx, p, boy, day, "full", res)
	return res, nil
}

// SettlePartialRequest records cash handed over before the full settle.
type SettlePartialRequest struct {
	DeliveryBoyID int64   `json:"delivery_boy_id"`
	Date          string  `json:"date"`
	Amount        float64 `json:"amount"`
	Notes         *string `json:"notes"`
}

// SettlePartial records a partial settlement.  The amount must be positive
// and at most the pending settlement of that person and day; otherwise
// nothing is written.
func (s *DeliveryService) SettlePartial(ctx context.Context, store *repository.Store, p model.Principal, req SettlePartialRequest) (SettleResult, error) {
	day, err := s.Day(req.Date)
	if err != nil {
		return SettleResult{}, err
	}
	amount := decimal.NewFromFloat(req.Amount).Round(2)
	if !amount.IsPositive() {
		return SettleResult{}, repository.Invalid("amount", "must be positive")
	}
	var res SettleResult
	var boy model.DeliveryBoy
	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		boy, err = store.DeliveryBoys.GetTx(ctx, tx, req.DeliveryBoyID)
		if err != nil {
			return err
		}
		before, err := store.Settlements.SummaryTx(ctx, tx, day, boy)
		if err != nil {
			return err
		}
		pending := decimal.NewFromFloat(before.PendingSettlement).Round(2)
		if amount.GreaterThan(pending) {
			return repository.Invalid("amount", "exceeds pending settlement %s", pending.StringFixed(2))
		}
		if err := store.Settlements.InsertPartialTx(ctx, tx, &model.PartialSettlement{
			DeliveryBoyID: boy.ID,
			SettleDate:    day.Date,
			Amount:        amount.InexactFloat64(),
			Notes:         req.Notes,
			CreatedBy:     p.ID,
			CreatedAt:     s.now(),
		}); err != nil {
			return err
		}
		res.Amount = amount.InexactFloat64()
		res.Summary, err = store.Settlements.SummaryTx(ctx, tx, day, boy)
		return err
	})
	if err != nil {
		return SettleResult{}, err
	}
	res.Summary = roundSummary(res.Summary)
	s.Metrics.Settlement("partial")
	s.publish(ctx, p, boy, day, "partial", res)
	return res, nil
}

func (s *DeliveryService) publish(ctx context.Context, p model.Principal, boy model.DeliveryBoy, day repository.Day, kind string, res SettleResult) {
	ev := queue.DeliverySettledEvent{
		TenantCode:      p.TenantCode,
		DeliveryBoyID:   boy.ID,
		DeliveryBoyName: boy.Name,
		Date:            day.Date,
		Kind:            kind,
		Orders:          res.Orders,
		Amount:          res.Amount,
		SettledBy:       p.ID,
		SettledAt:       s.now().UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout())
	defer cancel()
	if err := s.Events.PublishDeliverySettled(pctx, ev); err != nil {
		s.Log.Warn("publish delivery settled", zap.Int64("delivery_boy_id", boy.ID), zap.Error(err))
	}
}

// IsNotPayAfterDelivery reports whether err is the delivery gating error.
func IsNotPayAfterDelivery(err error) bool { return errors.Is(err, errNotPayAfterDelivery) }
