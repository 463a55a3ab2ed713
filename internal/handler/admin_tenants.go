package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/service"
)

// AdminHandler serves the super admin's tenant management endpoints.
type AdminHandler struct {
	Tenants *service.TenantService
}

func NewAdminHandler(t *service.TenantService) *AdminHandler {
	return &AdminHandler{Tenants: t}
}

type tenantStatusReq struct {
	Status model.TenantStatus `json:"status" validate:"required,oneof=active inactive"`
}

// CreateTenant provisions a tenant.  It starts inactive until the owner's
// first login.
func (h *AdminHandler) CreateTenant(c echo.Context) error {
	var req service.ProvisionRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Tenants.Provision(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *AdminHandler) ListTenants(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Tenants.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tenants": list})
}

// SetTenantStatus activates or deactivates a tenant.  Deactivation takes
// effect on the tenant's next request.
func (h *AdminHandler) SetTenantStatus(c echo.Context) error {
	var req tenantStatusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	t, err := h.Tenants.SetStatus(ctx, strings.TrimSpace(c.Param("code")), req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
