package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// Login: resolve credentials (super admin, tenant owner or staff) and
// return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TenantCode = strings.TrimSpace(req.TenantCode)
	if req.Username == "" || req.Password == "" {
		return writeError(c, repository.Invalid("username", "username/password required"))
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me: echo the principal carried by the token.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "missing token"})
	}
	return c.JSON(http.StatusOK, p)
}
