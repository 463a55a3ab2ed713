package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/restaurant-pos/internal/config"
	"github.com/iliyamo/restaurant-pos/internal/database"
	"github.com/iliyamo/restaurant-pos/internal/handler"
	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/service"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

const secret = "router-test-secret"

// APITestSuite drives the whole route table over HTTP with a SQLite
// directory and no Redis or broker.
type APITestSuite struct {
	suite.Suite
	e     *echo.Echo
	super string
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	ctx := context.Background()
	base := s.T().TempDir()
	dirDB, err := database.OpenSQLite(filepath.Join(base, "directory.db"), 4)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = dirDB.Close() })
	s.Require().NoError(database.EnsureDirectorySchema(ctx, dirDB, database.DriverSQLite))

	dir := repository.NewDirectoryRepo(dirDB)
	pool := tenant.NewPool(filepath.Join(base, "tenants"), time.Minute, nil)
	s.T().Cleanup(func() { _ = pool.Close() })
	m := metrics.New("pos")

	auth := service.NewAuthService(dir, pool, secret, 60, bcrypt.MinCost, m, nil)
	s.Require().NoError(auth.EnsureSuperAdmin(ctx, "root", "root-pass"))

	e := echo.New()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewRequestValidator()
	e.Use(m.Middleware())
	Register(e, Deps{
		JWTSecret: secret,
		Pool:      pool,
		Directory: dir,
		RateLimit: config.RateLimitConfig{Enabled: true},
		Cache:     config.CacheConfig{Enabled: true},
		Metrics:   m,

		Health:     &handler.HealthHandler{Directory: dirDB, OpenStores: pool.OpenCount},
		Auth:       handler.NewAuthHandler(auth),
		Admin:      handler.NewAdminHandler(service.NewTenantService(dir, pool, bcrypt.MinCost, nil)),
		Sales:      handler.NewSaleHandler(service.NewSaleService(nil, m, nil, time.UTC), service.NewHoldService(time.UTC)),
		Deliveries: handler.NewDeliveryHandler(service.NewDeliveryService(nil, m, nil, time.UTC)),
		Catalog:    handler.NewCatalogHandler(),
		Staff:      handler.NewStaffHandler(bcrypt.MinCost),
	})
	s.e = e
	s.super = s.login("", "root", "root-pass")
}

func (s *APITestSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (s *APITestSuite) login(code, user, pass string) string {
	rec, body := s.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": user, "password": pass, "tenant_code": code})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return body["token"].(string)
}

func (s *APITestSuite) provision(code string) string {
	rec, body := s.do(http.MethodPost, "/v1/admin/tenants", s.super, echo.Map{
		"tenant_code": code, "restaurant_name": "Bistro", "owner_username": "owner", "owner_password": "owner-pass",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Equal("inactive", body["status"])
	return s.login(code, "owner", "owner-pass")
}

func (s *APITestSuite) TestHealthAndMetrics() {
	rec, body := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("ok", body["status"])

	rec, _ = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `pos_logins_total{outcome="success"}`)
}

func (s *APITestSuite) TestSaleFlow() {
	owner := s.provision("BISTRO")

	rec, product := s.do(http.MethodPost, "/v1/products", owner, echo.Map{
		"name": "Burger", "price": 8.5, "track_stock": true, "stock_quantity": 10,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	productID := product["id"].(float64)

	rec, sale := s.do(http.MethodPost, "/v1/sales", owner, echo.Map{
		"items": []echo.Map{{"product_id": productID, "product_name": "Burger", "quantity": 2, "unit_price": 8.5, "total_price": 17}},
		"subtotal": 17, "total": 17, "payment_method": "cash", "payment_amount": 20, "change_amount": 3,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Regexp(`^S-\d{8}-\d{6}-[0-9A-F]{6}$`, sale["sale_number"])
	saleID := int64(sale["id"].(float64))

	rec, got := s.do(http.MethodGet, fmt.Sprintf("/v1/sales/%d", saleID), owner, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(got["items"], 1)

	rec, _ = s.do(http.MethodGet, fmt.Sprintf("/v1/products/%d", int64(productID)), owner, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"stock_quantity":8`)

	rec, body := s.do(http.MethodGet, "/v1/sales/9999", owner, nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("not_found", body["error"])

	rec, body = s.do(http.MethodPost, "/v1/sales", owner, echo.Map{
		"items": []echo.Map{{"product_id": productID, "quantity": 1, "unit_price": 8.5, "total_price": 8.5}},
		"subtotal": 8.5, "total": 1, "payment_method": "cash", "payment_amount": 1,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_error", body["error"])

	rec, _ = s.do(http.MethodPost, "/v1/users", owner, echo.Map{"username": "amina", "password": "cashier-pass", "role": "cashier"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	cashier := s.login("bistro", "amina", "cashier-pass")

	rec, body = s.do(http.MethodDelete, fmt.Sprintf("/v1/sales/%d", saleID), cashier, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", body["error"])

	rec, _ = s.do(http.MethodDelete, fmt.Sprintf("/v1/sales/%d", saleID), owner, nil)
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *APITestSuite) TestTenantsAreIsolated() {
	alpha := s.provision("ALPHA")
	beta := s.provision("BETA")

	rec, _ := s.do(http.MethodPost, "/v1/categories", alpha, echo.Map{"name": "Drinks"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	_, body := s.do(http.MethodGet, "/v1/categories", beta, nil)
	s.Empty(body["categories"])
	_, body = s.do(http.MethodGet, "/v1/categories", alpha, nil)
	s.Len(body["categories"], 1)
}

func (s *APITestSuite) TestDeactivatedTenantIsBlockedImmediately() {
	owner := s.provision("BISTRO")
	rec, _ := s.do(http.MethodGet, "/v1/products", owner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodPut, "/v1/admin/tenants/BISTRO/status", s.super, echo.Map{"status": "inactive"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(http.MethodGet, "/v1/products", owner, nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("tenant_inactive", body["error"])

	rec, body = s.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "owner", "password": "owner-pass", "tenant_code": "BISTRO"})
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("tenant_inactive", body["error"])
}

func (s *APITestSuite) TestLoginErrorsAreDistinct() {
	s.provision("BISTRO")

	rec, body := s.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "owner", "password": "x", "tenant_code": "NOPE"})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("tenant_not_found", body["error"])

	rec, body = s.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "owner", "password": "wrong", "tenant_code": "BISTRO"})
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("bad_credentials", body["error"])

	rec, body = s.do(http.MethodPost, "/v1/auth/login", "", echo.Map{"username": "", "password": ""})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation_error", body["error"])
}

func (s *APITestSuite) TestRoleBoundaries() {
	owner := s.provision("BISTRO")

	rec, _ := s.do(http.MethodGet, "/v1/products", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(http.MethodGet, "/v1/products", s.super, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodGet, "/v1/admin/tenants", owner, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, body := s.do(http.MethodGet, "/v1/admin/tenants", s.super, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(body["tenants"], 1)

	rec, body = s.do(http.MethodGet, "/v1/me", owner, nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("BISTRO", body["tenant_code"])
	s.Equal("admin", body["role"])
}
