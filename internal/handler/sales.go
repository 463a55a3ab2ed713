package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/service"
)

// SaleHandler serves sale commit, lookup, listing and deletion.
type SaleHandler struct {
	Sales *service.SaleService
	Holds *service.HoldService
}

func NewSaleHandler(s *service.SaleService, h *service.HoldService) *SaleHandler {
	return &SaleHandler{Sales: s, Holds: h}
}

// CreateSale commits a cart.  The stored totals are the server's; a body
// whose totals disagree by more than a cent is rejected.
func (h *SaleHandler) CreateSale(c echo.Context) error {
	var req service.CommitSaleRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	p, store := scope(c)

	ctx, cancel := withTimeout(c)
	defer cancel()

	sale, err := h.Sales.Commit(ctx, store, p, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) GetSale(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	sale, err := h.Sales.Get(ctx, store, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

// ListSales: ?from=YYYY-MM-DD&to=YYYY-MM-DD (business days, both inclusive),
// q, payment_method, order_type, delivery_status, delivery_boy_id,
// limit, offset.
func (h *SaleHandler) ListSales(c echo.Context) error {
	f, err := h.saleFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Sales.List(ctx, store, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sales": list, "limit": f.Limit, "offset": f.Offset})
}

func (h *SaleHandler) saleFilter(c echo.Context) (repository.SaleFilter, error) {
	loc := h.Sales.Location
	f := repository.SaleFilter{
		Query:          strings.TrimSpace(c.QueryParam("q")),
		PaymentMethod:  model.PaymentMethod(c.QueryParam("payment_method")),
		OrderType:      model.OrderType(c.QueryParam("order_type")),
		DeliveryStatus: model.DeliveryStatus(c.QueryParam("delivery_status")),
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return f, repository.Invalid("payment_method", "unknown payment method %q", f.PaymentMethod)
	}
	if f.OrderType != "" && !f.OrderType.Valid() {
		return f, repository.Invalid("order_type", "unknown order type %q", f.OrderType)
	}
	if f.DeliveryStatus != "" && !f.DeliveryStatus.Valid() {
		return f, repository.Invalid("delivery_status", "unknown delivery status %q", f.DeliveryStatus)
	}
	if raw := c.QueryParam("from"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return f, repository.Invalid("from", "must be YYYY-MM-DD")
		}
		from := d.UTC()
		f.From = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return f, repository.Invalid("to", "must be YYYY-MM-DD")
		}
		to := d.AddDate(0, 0, 1).UTC()
		f.To = &to
	}
	boyID, err := queryInt64(c, "delivery_boy_id")
	if err != nil {
		return f, err
	}
	f.DeliveryBoyID = boyID
	if raw := c.QueryParam("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit < 0 {
			return f, repository.Invalid("limit", "must be a non-negative integer")
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if f.Offset, err = strconv.Atoi(raw); err != nil || f.Offset < 0 {
			return f, repository.Invalid("offset", "must be a non-negative integer")
		}
	}
	return f, nil
}

// DeleteSale removes a sale and restores the stock it consumed.
func (h *SaleHandler) DeleteSale(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if _, err := h.Sales.Delete(ctx, store, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- held carts -----

func (h *SaleHandler) HoldSale(c echo.Context) error {
	var req service.HoldRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	p, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	held, err := h.Holds.Hold(ctx, store, p, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, held)
}

func (h *SaleHandler) ListHeld(c echo.Context) error {
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Holds.List(ctx, store)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"held_sales": list})
}

// ResumeHeld returns the cart and removes it from the held list.
func (h *SaleHandler) ResumeHeld(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	held, err := h.Holds.Resume(ctx, store, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, held)
}

func (h *SaleHandler) DiscardHeld(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Holds.Discard(ctx, store, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
