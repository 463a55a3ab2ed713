package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-pos/internal/config"
	"github.com/iliyamo/restaurant-pos/internal/handler"
	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/model"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

// Deps is everything the route table needs.
type Deps struct {
	JWTSecret string
	Pool      *tenant.Pool
	Directory *repository.DirectoryRepo
	Redis     *redis.Client // nil disables rate limiting and caching
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Metrics   *metrics.Metrics

	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Admin      *handler.AdminHandler
	Sales      *handler.SaleHandler
	Deliveries *handler.DeliveryHandler
	Catalog    *handler.CatalogHandler
	Staff      *handler.StaffHandler
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}
}

// RegisterAuth mounts login under /v1/auth behind the token bucket, and
// /v1/me for any valid token.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/login", d.Auth.Login, middleware.NewTokenBucket(d.RateLimit, d.Redis))

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.JWTSecret))
}

// RegisterAdmin mounts the super admin's tenant management.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleSuperAdmin),
	)
	g.POST("/tenants", d.Admin.CreateTenant)
	g.GET("/tenants", d.Admin.ListTenants)
	g.PUT("/tenants/:code/status", d.Admin.SetTenantStatus)
}

// RegisterTenant mounts every tenant-scoped route.  The resolver binds the
// caller's store for the duration of each request.
//
// Route-level RequireRole runs after group middleware, so the response
// cache only wraps routes whose GETs are open to every tenant role; writes
// on the cached group drop the tenant's entries.
func RegisterTenant(e *echo.Echo, d Deps) {
	t := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleCashier),
		tenant.Resolver(d.Pool, d.Directory),
	)
	admin := middleware.RequireRole(model.RoleAdmin)

	cached := t.Group("", middleware.NewRedisCache(d.Cache, d.Redis))

	// ---- Sales ----
	cached.POST("/sales", d.Sales.CreateSale)
	cached.GET("/sales", d.Sales.ListSales)
	cached.GET("/sales/:id", d.Sales.GetSale)
	cached.DELETE("/sales/:id", d.Sales.DeleteSale, admin)

	// ---- Held carts ----
	t.POST("/held-sales", d.Sales.HoldSale)
	t.GET("/held-sales", d.Sales.ListHeld)
	t.POST("/held-sales/:id/resume", d.Sales.ResumeHeld)
	t.DELETE("/held-sales/:id", d.Sales.DiscardHeld)

	// ---- Deliveries ----
	cached.PUT("/deliveries/:id/assign", d.Deliveries.Assign)
	cached.PUT("/deliveries/:id/status", d.Deliveries.SetStatus)
	t.GET("/deliveries/settlement", d.Deliveries.Settlement, admin)
	cached.POST("/deliveries/settle", d.Deliveries.Settle, admin)
	cached.POST("/deliveries/settle-partial", d.Deliveries.SettlePartial, admin)

	// ---- Catalog ----
	cached.GET("/products", d.Catalog.ListProducts)
	cached.GET("/products/low-stock", d.Catalog.LowStock)
	cached.GET("/products/:id", d.Catalog.GetProduct)
	cached.POST("/products", d.Catalog.CreateProduct, admin)
	cached.PUT("/products/:id", d.Catalog.UpdateProduct, admin)
	cached.DELETE("/products/:id", d.Catalog.DeleteProduct, admin)

	cached.GET("/categories", d.Catalog.ListCategories)
	cached.POST("/categories", d.Catalog.CreateCategory, admin)
	cached.PUT("/categories/:id", d.Catalog.RenameCategory, admin)
	cached.DELETE("/categories/:id", d.Catalog.DeleteCategory, admin)

	cached.GET("/customers", d.Catalog.ListCustomers)
	cached.POST("/customers", d.Catalog.CreateCustomer)
	cached.PUT("/customers/:id", d.Catalog.UpdateCustomer)

	// ---- Staff & settings ----
	cached.GET("/delivery-boys", d.Staff.ListDeliveryBoys)
	cached.POST("/delivery-boys", d.Staff.CreateDeliveryBoy, admin)
	cached.PUT("/delivery-boys/:id", d.Staff.UpdateDeliveryBoy, admin)
	cached.DELETE("/delivery-boys/:id", d.Staff.DeleteDeliveryBoy, admin)

	cached.GET("/settings", d.Staff.GetSettings)
	cached.PUT("/settings", d.Staff.UpdateSettings, admin)

	t.GET("/users", d.Staff.ListUsers, admin)
	t.POST("/users", d.Staff.CreateUser, admin)
}

// Register wires the whole route table.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterAdmin(e, d)
	RegisterTenant(e, d)
}
