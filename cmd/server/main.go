package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-pos/internal/config"
	"github.com/iliyamo/restaurant-pos/internal/database"
	"github.com/iliyamo/restaurant-pos/internal/handler"
	"github.com/iliyamo/restaurant-pos/internal/logger"
	"github.com/iliyamo/restaurant-pos/internal/metrics"
	"github.com/iliyamo/restaurant-pos/internal/middleware"
	"github.com/iliyamo/restaurant-pos/internal/queue"
	"github.com/iliyamo/restaurant-pos/internal/repository"
	"github.com/iliyamo/restaurant-pos/internal/router"
	"github.com/iliyamo/restaurant-pos/internal/service"
	"github.com/iliyamo/restaurant-pos/internal/tenant"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "restaurant-pos",
	}); err != nil {
		panic("init logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Directory
	dirDB, driver, err := database.OpenDirectory(cfg)
	if err != nil {
		log.Fatal("open directory", zap.Error(err))
	}
	if err := database.EnsureDirectorySchema(ctx, dirDB, driver); err != nil {
		log.Fatal("directory schema", zap.Error(err))
	}
	dir := repository.NewDirectoryRepo(dirDB)
	log.Info("directory ready", zap.String("driver", driver))

	m := metrics.New("pos")

	// Tenant stores
	pool := tenant.NewPool(cfg.TenantDataDir, cfg.TenantIdleTTL, log.Named("tenant"))
	pool.OnChange = m.SetTenantPoolOpen
	go pool.RunSweeper(ctx, cfg.TenantSweepEvery)

	// Redis (optional)
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	// Events (optional)
	var events queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = queue.NewAMQPPublisher(cfg.RabbitURL, log.Named("queue"))
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, log.Named("audit")); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	loc := cfg.Location()
	authSvc := service.NewAuthService(dir, pool, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, m, log.Named("auth"))
	tenantSvc := service.NewTenantService(dir, pool, cfg.BcryptCost, log.Named("tenants"))
	saleSvc := service.NewSaleService(events, m, log.Named("sales"), loc)
	holdSvc := service.NewHoldService(loc)
	deliverySvc := service.NewDeliveryService(events, m, log.Named("deliveries"), loc)

	// Seeding must not delay startup.
	go func() {
		sctx, scancel := context.WithTimeout(ctx, 30*time.Second)
		defer scancel()
		if err := authSvc.EnsureSuperAdmin(sctx, cfg.SuperAdminUsername, cfg.SuperAdminPassword); err != nil {
			log.Error("seed super admin", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("2M"))
	e.Use(middleware.RequestID)
	e.Use(logger.Middleware())
	e.Use(m.Middleware())

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Pool:      pool,
		Directory: dir,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Metrics:   m,

		Health:     &handler.HealthHandler{Directory: dirDB, OpenStores: pool.OpenCount},
		Auth:       handler.NewAuthHandler(authSvc),
		Admin:      handler.NewAdminHandler(tenantSvc),
		Sales:      handler.NewSaleHandler(saleSvc, holdSvc),
		Deliveries: handler.NewDeliveryHandler(deliverySvc),
		Catalog:    handler.NewCatalogHandler(),
		Staff:      handler.NewStaffHandler(cfg.BcryptCost),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	cancel() // stop sweeper and consumer
	if err := pool.Close(); err != nil {
		log.Error("close tenant stores", zap.Error(err))
	}
	if err := dirDB.Close(); err != nil {
		log.Error("close directory", zap.Error(err))
	}
}
