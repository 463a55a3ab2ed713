package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness and whether the directory is reachable.
type HealthHandler struct {
	Directory  *sql.DB
	OpenStores func() int
}

// Health returns 200 with the open tenant store count while the directory
// answers a ping, 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	body := echo.Map{"status": "ok"}
	if h.OpenStores != nil {
		body["tenant_stores_open"] = h.OpenStores()
	}
	if h.Directory != nil {
		if err := h.Directory.PingContext(ctx); err != nil {
			body["status"] = "degraded"
			body["directory"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}
