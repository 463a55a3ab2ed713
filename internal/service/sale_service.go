// Package service holds the business operations of the POS: the sale
// commit protocol, the delivery workflow, held carts, logins and tenant
// provisioning.  Tenant-scoped operations receive the request's
// *repository.Store and never reach any other tenant.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/queue"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// CommitSaleRequest is the cart as submitted by the cashier.  Every amount
// is verified against the server's own computation before anything is
// written.
type CommitSaleRequest struct {
	CustomerID     *int64              `json:"customer_id"`
	Items          []model.CartLine    `json:"items"`
	Subtotal       float64             `json:"subtotal"`
	DiscountAmount float64             `json:"discount_amount"`
	DiscountType   model.DiscountType  `json:"discount_type"`
	DiscountValue  *float64            `json:"discount_value"`
	VATPercentage  float64             `json:"vat_percentage"`
	VATAmount      float64             `json:"vat_amount"`
	Total          float64             `json:"total"`
	PaymentMethod  model.PaymentMethod `json:"payment_method"`
	PaymentAmount  float64             `json:"payment_amount"`
	ChangeAmount   float64             `json:"change_amount"`
	OrderType      model.OrderType     `json:"order_type"`
	DeliveryBoyID  *int64              `json:"delivery_boy_id"`
	Notes          *string             `json:"notes"`
}

// normalize fills defaults and rejects malformed input that needs no
// database access to detect.
func (r *CommitSaleRequest) normalize() error {
	if len(r.Items) == 0 {
		return repository.Invalid("items", "cart must not be empty")
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			return repository.Invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if it.Quantity <= 0 {
			return repository.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	if r.DiscountType == "" {
		r.DiscountType = model.DiscountFixed
	}
	if !r.DiscountType.Valid() {
		return repository.Invalid("discount_type", "must be fixed or percentage")
	}
	if !r.PaymentMethod.Valid() {
		return repository.Invalid("payment_method", "must be one of cash, card, online, payAfterDelivery")
	}
	if r.OrderType == "" {
		r.OrderType = model.OrderDineIn
	}
	if !r.OrderType.Valid() {
		return repository.Invalid("order_type", "must be one of dine-in, takeaway, delivery")
	}
	if r.DeliveryBoyID != nil && r.PaymentMethod != model.PayAfterDelivery {
		return repository.Invalid("delivery_boy_id", "only applies to payAfterDelivery orders")
	}
	if r.Notes != nil && strings.TrimSpace(*r.Notes) == "" {
		r.Notes = nil
	}
	return nil
}

// SaleService commits and deletes sales.
type SaleService struct {
	Events   queue.Publisher
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Location *time.Location
	// PublishTimeout bounds each event publish; zero means DefaultPublishTimeout.
	PublishTimeout time.Duration

	now func() time.Time
}

// DefaultPublishTimeout caps how long a committed request waits on the
// broker before answering.
const DefaultPublishTimeout = 2 * time.Second

func (s *SaleService) publishTimeout() time.Duration {
	if s.PublishTimeout > 0 {
		return s.PublishTimeout
	}
	return DefaultPublishTimeout
}

// NewSaleService wires a SaleService.  A nil publisher disables events.
func NewSaleService(events queue.Publisher, m *metrics.Metrics, log *zap.Logger, loc *time.Location) *SaleService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SaleService{Events: events, Metrics: m, Log: log, Location: loc, now: time.Now}
}

// Commit turns a cart into a sale in one transaction: header, lines in
// input order and stock decrements for stock-tracked products.  Any failure
// leaves the store untouched.  It returns the sale as stored, joined with
// display names.
func (s *SaleService) Commit(ctx context.Context, store *repository.Store, p model.Principal, req CommitSaleRequest) (model.SaleDetail, error) {
	if err := req.normalize(); err != nil {
		return model.SaleDetail{}, err
	}

	var out model.SaleDetail
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		if req.CustomerID != nil {
			ok, err := store.Customers.ExistsTx(ctx, tx, *req.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return repository.Invalid("customer_id", "unknown customer %d", *req.CustomerID)
			}
		}

		sale := model.Sale{
			CustomerID:    req.CustomerID,
			UserID:        p.ID,
			OperatorName:  p.Username,
			DiscountType:  req.DiscountType,
			VATPercentage: req.VATPercentage,
			PaymentMethod: req.PaymentMethod,
			OrderType:     req.OrderType,
			Notes:         req.Notes,
			CreatedAt:     s.now().UTC(),
		}
		if req.PaymentMethod == model.PayAfterDelivery {
			status := model.DeliveryPending
			if req.DeliveryBoyID != nil {
				boy, err := store.DeliveryBoys.GetTx(ctx, tx, *req.DeliveryBoyID)
				if errors.Is(err, repository.ErrNotFound) {
					return repository.Invalid("delivery_boy_id", "unknown delivery person %d", *req.DeliveryBoyID)
				}
				if err != nil {
					return err
				}
				if boy.Status != model.DeliveryBoyActive {
					return repository.Invalid("delivery_boy_id", "delivery person %d is inactive", boy.ID)
				}
				status = model.DeliveryAssigned
				sale.DeliveryBoyID = &boy.ID
				at := sale.CreatedAt
				sale.DeliveryAssignedAt = &at
			}
			sale.DeliveryStatus = &status
		}

		catalog := make([]model.Product, len(req.Items))
		for i, it := range req.Items {
			prod, err := store.Products.GetTx(ctx, tx, it.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return repository.Invalid(fmt.Sprintf("items[%d].product_id", i), "unknown product %d", it.ProductID)
			}
			if err != nil {
				return err
			}
			catalog[i] = prod
		}
		if err := checkVATRate(ctx, store, tx, req.VATPercentage); err != nil {
			return err
		}
		totals, err := ComputeTotals(req, catalog)
		if err != nil {
			return err
		}
		sale.Subtotal = totals.Subtotal.InexactFloat64()
		sale.DiscountAmount = totals.Discount.InexactFloat64()
		sale.VATAmount = totals.VAT.InexactFloat64()
		sale.Total = totals.Total.InexactFloat64()
		sale.PaymentAmount = req.PaymentAmount
		sale.ChangeAmount = totals.Change.InexactFloat64()

		if err := s.insertHeader(ctx, store, tx, &sale); err != nil {
			return err
		}

		for i, it := range req.Items {
			pid := catalog[i].ID
			item := model.SaleItem{
				SaleID:      sale.ID,
				ProductID:   &pid,
				ProductName: catalog[i].Name,
				Quantity:    it.Quantity,
				UnitPrice:   catalog[i].Price,
				TotalPrice:  totals.LineTotals[i].InexactFloat64(),
			}
			if err := store.Sales.InsertItemTx(ctx, tx, &item); err != nil {
				return fmt.Errorf("insert line %d: %w", i, err)
			}
			if catalog[i].TrackStock {
				if _, err := store.Products.AdjustStockTx(ctx, tx, pid, -it.Quantity); err != nil {
					return err
				}
			}
		}

		out, err = store.Sales.GetDetailTx(ctx, tx, sale.ID)
		return err
	})
	if err != nil {
		return model.SaleDetail{}, err
	}

	s.Metrics.SaleCommitted(string(out.PaymentMethod))
	s.publish(ctx, p, out)
	return out, nil
}

// insertHeader allocates a sale number and inserts the header, drawing a
// fresh number when the UNIQUE constraint rejects one.
func (s *SaleService) insertHeader(ctx context.Context, store *repository.Store, tx *sql.Tx, sale *model.Sale) error {
	for attempt := 1; ; attempt++ {
		number, err := NewNumber("S", sale.CreatedAt, s.Location)
		if err != nil {
			return err
		}
		sale.SaleNumber = number
		err = store.Sales.InsertTx(ctx, tx, sale)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= maxNumberAttempts {
			return fmt.Errorf("insert sale header: %w", err)
		}
		s.Log.Debug("sale number clash, retrying", zap.String("sale_number", number))
	}
}

// checkVATRate rejects a sale whose VAT rate differs from the tenant's
// vat_percentage setting.
func checkVATRate(ctx context.Context, store *repository.Store, tx *sql.Tx, got float64) error {
	raw, err := store.Settings.GetTx(ctx, tx, model.SettingVATPercentage)
	if err != nil {
		return err
	}
	want, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("vat_percentage setting %q: %w", raw, err)
	}
	if !decimal.NewFromFloat(got).Sub(want).Abs().LessThan(decimal.New(1, -3)) {
		return repository.Invalid("vat_percentage", "must equal the configured rate %s", want.String())
	}
	return nil
}

func (s *SaleService) publish(ctx context.Context, p model.Principal, sale model.SaleDetail) {
	ev := queue.SaleCommittedEvent{
		TenantCode:    p.TenantCode,
		SaleID:        sale.ID,
		SaleNumber:    sale.SaleNumber,
		UserID:        sale.UserID,
		Operator:      sale.OperatorName,
		PaymentMethod: string(sale.PaymentMethod),
		OrderType:     string(sale.OrderType),
		ItemCount:     len(sale.Items),
		Total:         sale.Total,
		CommittedAt:   sale.CreatedAt.Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout())
	defer cancel()
	if err := s.Events.PublishSaleCommitted(pctx, ev); err != nil {
		s.Log.Warn("publish sale committed", zap.String("sale_number", sale.SaleNumber), zap.Error(err))
	}
}

// Get returns one sale with lines.
func (s *SaleService) Get(ctx context.Context, store *repository.Store, id int64) (model.SaleDetail, error) {
	return store.Sales.GetDetail(ctx, id)
}

// List returns sale headers matching f.
func (s *SaleService) List(ctx context.Context, store *repository.Store, f repository.SaleFilter) ([]model.SaleDetail, error) {
	return store.Sales.List(ctx, f)
}

// Delete removes a sale and gives back the stock its commit took: every
// line of a stock-tracked product adds its quantity back, then lines and
// header are deleted, all in one transaction.
func (s *SaleService) Delete(ctx context.Context, store *repository.Store, id int64) (model.SaleDetail, error) {
	var removed model.SaleDetail
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := store.Sales.GetDetailTx(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, it := range d.Items {
			if it.ProductID == nil {
				continue
			}
			if _, err := store.Products.AdjustStockTx(ctx, tx, *it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		if err := store.Sales.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		removed = d
		return nil
	})
	if err != nil {
		return model.SaleDetail{}, err
	}
	s.Metrics.SaleDeleted()
	return removed, nil
}
