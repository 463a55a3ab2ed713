package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// HoldRequest suspends a cart.  Amounts are stored as shown to the cashier;
// they are checked again when the resumed cart is committed.
type HoldRequest struct {
	Items          []model.CartLine   `json:"items"`
	CustomerID     *int64             `json:"customer_id"`
	OrderType      model.OrderType    `json:"order_type"`
	Subtotal       float64            `json:"subtotal"`
	DiscountAmount float64            `json:"discount_amount"`
	DiscountType   model.DiscountType `json:"discount_type"`
	VATPercentage  float64            `json:"vat_percentage"`
	VATAmount      float64            `json:"vat_amount"`
	Total          float64            `json:"total"`
	Notes          *string            `json:"notes"`
}

// HoldService parks and resumes carts.
type HoldService struct {
	Location *time.Location

	now func() time.Time
}

func NewHoldService(loc *time.Location) *HoldService {
	if loc == nil {
		loc = time.UTC
	}
	return &HoldService{Location: loc, now: time.Now}
}

// Hold stores the cart under a fresh hold number.
func (s *HoldService) Hold(ctx context.Context, store *repository.Store, p model.Principal, req HoldRequest) (model.HeldSale, error) {
	if len(req.Items) == 0 {
		return model.HeldSale{}, repository.Invalid("items", "cart must not be empty")
	}
	if req.OrderType == "" {
		req.OrderType = model.OrderDineIn
	}
	if !req.OrderType.Valid() {
		return model.HeldSale{}, repository.Invalid("order_type", "must be one of dine-in, takeaway, delivery")
	}
	if req.DiscountType == "" {
		req.DiscountType = model.DiscountFixed
	}
	if !req.DiscountType.Valid() {
		return model.HeldSale{}, repository.Invalid("discount_type", "must be fixed or percentage")
	}
	h := model.HeldSale{
		Items:          req.Items,
		CustomerID:     req.CustomerID,
		OrderType:      req.OrderType,
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		DiscountType:   req.DiscountType,
		VATPercentage:  req.VATPercentage,
		VATAmount:      req.VATAmount,
		Total:          req.Total,
		Notes:          req.Notes,
		UserID:         p.ID,
	}
	for attempt := 1; ; attempt++ {
		number, err := NewNumber("H", s.now(), s.Location)
		if err != nil {
			return model.HeldSale{}, err
		}
		h.HoldNumber = number
		err = store.HeldSales.Create(ctx, &h)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt >= maxNumberAttempts {
			return model.HeldSale{}, fmt.Errorf("insert held sale: %w", err)
		}
	}
}

// Resume removes the held cart and returns it for the cashier to continue.
func (s *HoldService) Resume(ctx context.Context, store *repository.Store, id int64) (model.HeldSale, error) {
	var h model.HeldSale
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		h, err = store.HeldSales.TakeTx(ctx, tx, id)
		return err
	})
	return h, err
}

func (s *HoldService) List(ctx context.Context, store *repository.Store) ([]model.HeldSale, error) {
	return store.HeldSales.List(ctx)
}

func (s *HoldService) Discard(ctx context.Context, store *repository.Store, id int64) error {
	return store.HeldSales.Delete(ctx, id)
}
