package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
)

// StaffHandler serves delivery people, tenant users and settings.
type StaffHandler struct {
	BcryptCost int
}

func NewStaffHandler(bcryptCost int) *StaffHandler {
	return &StaffHandler{BcryptCost: bcryptCost}
}

// ----- DTOs -----

type deliveryBoyReq struct {
	Name    string                  `json:"name" validate:"required,max=200"`
	Phone   *string                 `json:"phone"`
	Address *string                 `json:"address"`
	Status  model.DeliveryBoyStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type createUserReq struct {
	Username string     `json:"username" validate:"required,max=100"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=admin cashier"`
}

// ----- delivery people -----

// ListDeliveryBoys: optional ?status=active|inactive.
func (h *StaffHandler) ListDeliveryBoys(c echo.Context) error {
	status := model.DeliveryBoyStatus(c.QueryParam("status"))
	if status != "" && status != model.DeliveryBoyActive && status != model.DeliveryBoyInactive {
		return writeError(c, repository.Invalid("status", "must be active or inactive"))
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.DeliveryBoys.List(ctx, status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"delivery_boys": list})
}

func (h *StaffHandler) CreateDeliveryBoy(c echo.Context) error {
	var req deliveryBoyReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	d := model.DeliveryBoy{Name: req.Name, Phone: req.Phone, Address: req.Address, Status: req.Status}
	if err := store.DeliveryBoys.Create(ctx, &d); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *StaffHandler) UpdateDeliveryBoy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req deliveryBoyReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	d := model.DeliveryBoy{ID: id, Name: req.Name, Phone: req.Phone, Address: req.Address, Status: req.Status}
	if err := store.DeliveryBoys.Update(ctx, &d); err != nil {
		return writeError(c, err)
	}
	updated, err := store.DeliveryBoys.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteDeliveryBoy answers 409 while the person has unsettled deliveries.
func (h *StaffHandler) DeleteDeliveryBoy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := store.DeliveryBoys.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- users -----

func (h *StaffHandler) ListUsers(c echo.Context) error {
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := store.Users.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": list})
}

func (h *StaffHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := store.Users.Create(ctx, req.Username, req.Password, req.Role, h.BcryptCost)
	if err != nil {
		return writeError(c, err)
	}
	u, err := store.Users.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// ----- settings -----

// GetSettings returns the typed view and the raw key/value pairs.
func (h *StaffHandler) GetSettings(c echo.Context) error {
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	raw, err := store.Settings.All(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": model.SettingsFromMap(raw), "raw": raw})
}

// UpdateSettings upserts a flat {key: value} map; every key is validated
// before anything is written.
func (h *StaffHandler) UpdateSettings(c echo.Context) error {
	var req map[string]string
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if len(req) == 0 {
		return writeError(c, repository.Invalid("body", "no settings given"))
	}
	_, store := scope(c)
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := store.Settings.Upsert(ctx, req); err != nil {
		return writeError(c, err)
	}
	raw, err := store.Settings.All(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": model.SettingsFromMap(raw), "raw": raw})
}
