package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/service"
)

// DeliveryHandler drives pay-after-delivery orders and cash settlement.
type DeliveryHandler struct {
	Deliveries *service.DeliveryService
}

func NewDeliveryHandler(d *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{Deliveries: d}
}

// ----- DTOs -----

type assignReq struct {
	DeliveryBoyID int64 `json:"delivery_boy_id" validate:"required,gt=0"`
}

type statusReq struct {
	Status model.DeliveryStatus `json:"status" validate:"required"`
}

type settleReq struct {
	DeliveryBoyID int64  `json:"delivery_boy_id" validate:"required,gt=0"`
	Date          string `json:"date"`
}

func (h *DeliveryHandler) Assign(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req assignReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	sale, err := h.Deliveries.Assign(ctx, store, id, req.DeliveryBoyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

// SetStatus moves an order to any of the six states; timestamps are
// stamped by the service.
func (h *DeliveryHandler) SetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	sale, err := h.Deliveries.SetStatus(ctx, store, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

// Settlement: ?date=YYYY-MM-DD (default today) and optional delivery_boy_id.
func (h *DeliveryHandler) Settlement(c echo.Context) error {
	boyID, err := queryInt64(c, "delivery_boy_id")
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Deliveries.Summary(ctx, store, c.QueryParam("date"), boyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"summaries": list})
}

func (h *DeliveryHandler) Settle(c echo.Context) error {
	var req settleReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	p, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Deliveries.Settle(ctx, store, p, req.DeliveryBoyID, req.Date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *DeliveryHandler) SettlePartial(c echo.Context) error {
	var req service.SettlePartialRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.DeliveryBoyID <= 0 {
		return writeError(c, repository.Invalid("delivery_boy_id", "required"))
	}
	p, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Deliveries.SettlePartial(ctx, store, p, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
