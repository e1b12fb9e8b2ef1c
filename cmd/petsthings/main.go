package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pets-things/pets-things/internal/app"
	"github.com/pets-things/pets-things/internal/auth"
	"github.com/pets-things/pets-things/internal/booking"
	"github.com/pets-things/pets-things/internal/cats"
	"github.com/pets-things/pets-things/internal/inventory"
	"github.com/pets-things/pets-things/internal/masterdata/categories"
	"github.com/pets-things/pets-things/internal/masterdata/locations"
	"github.com/pets-things/pets-things/internal/masterdata/products"
	"github.com/pets-things/pets-things/internal/masterdata/rooms"
	"github.com/pets-things/pets-things/internal/masterdata/suppliers"
	"github.com/pets-things/pets-things/internal/observability"
	"github.com/pets-things/pets-things/internal/platform/cache"
	"github.com/pets-things/pets-things/internal/platform/db"
	"github.com/pets-things/pets-things/internal/purchasing"
	"github.com/pets-things/pets-things/internal/rbac"
	"github.com/pets-things/pets-things/internal/reports"
	"github.com/pets-things/pets-things/internal/sales"
	"github.com/pets-things/pets-things/internal/shared"
	"github.com/pets-things/pets-things/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "petsthings_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, idempotencyStore)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	productService := products.NewService(products.NewRepository(pool), inventoryService)
	productHandler := products.NewHandler(logger, productService, rbacMiddleware)
	categoryService := categories.NewService(categories.NewRepository(pool))
	categoryHandler := categories.NewHandler(logger, categoryService, rbacMiddleware)
	locationService := locations.NewService(locations.NewRepository(pool), inventoryService)
	locationHandler := locations.NewHandler(logger, locationService, rbacMiddleware)
	roomService := rooms.NewService(rooms.NewRepository(pool))
	roomHandler := rooms.NewHandler(logger, roomService, rbacMiddleware)
	supplierService := suppliers.NewService(suppliers.NewRepository(pool))
	supplierHandler := suppliers.NewHandler(logger, supplierService, rbacMiddleware)

	catService := cats.NewService(cats.NewRepository(pool))
	catHandler := cats.NewHandler(logger, catService, rbacMiddleware)

	salesService := sales.NewService(sales.NewRepository(pool), auditLogger)
	salesHandler := sales.NewHandler(logger, salesService, rbacMiddleware)

	purchasingService := purchasing.NewService(purchasing.NewRepository(pool), auditLogger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService, rbacMiddleware)

	bookingService := booking.NewService(booking.NewRepository(pool), auditLogger)
	bookingHandler := booking.NewHandler(logger, bookingService, rbacMiddleware)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache subscription", slog.Any("error", err))
	}
	reportService := reports.NewService(reports.NewRepository(pool), reportCache)
	reportHandler := reports.NewHandler(logger, reportService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		ProductHandler:    productHandler,
		CategoryHandler:   categoryHandler,
		LocationHandler:   locationHandler,
		RoomHandler:       roomHandler,
		SupplierHandler:   supplierHandler,
		CatHandler:        catHandler,
		InventoryHandler:  inventoryHandler,
		SalesHandler:      salesHandler,
		PurchasingHandler: purchasingHandler,
		BookingHandler:    bookingHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
