package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stockflow/internal/caching"
	"stockflow/internal/config"
	"stockflow/internal/handlers"
	"stockflow/internal/jobs"
	"stockflow/internal/jobs/background"
	"stockflow/internal/ledger"
	"stockflow/internal/middleware"
	"stockflow/internal/repositories"
	"stockflow/internal/services"
	"stockflow/pkg/database"
	"stockflow/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not configured yet
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("stockflow stopped with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DB.URL, cfg.DB.MaxConns, log.Component("database"))
	if err != nil {
		return err
	}
	defer pool.Close()

	// Redis backs the snapshot cache and, when selected, the ledger lock
	var redisClient *redis.Client
	cacheSvc := caching.NewNoopCacheService()
	if cfg.Redis.Enabled() {
		redisClient = caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.Component("redis"))
		defer redisClient.Close()
		cacheSvc = caching.NewRedisCacheService(redisClient, log.Component("cache"))
	} else {
		log.Warn().Msg("REDIS_ADDR not set, stock cache disabled")
	}

	var locker ledger.Locker = ledger.NewKeyedMutex()
	if cfg.Locks.Backend == "redis" {
		locker = ledger.NewRedisLocker(redisClient, "stockflow:", cfg.Locks.TTL, 0, log.Component("locks"))
	}
	log.Info().Str("backend", cfg.Locks.Backend).Dur("timeout", cfg.Locks.Timeout).Msg("ledger locks configured")

	// Repositories
	productRepo := repositories.NewProductRepository(pool)
	locationRepo := repositories.NewLocationRepository(pool)
	orderRepo := repositories.NewOrderRepository(pool)
	pickListRepo := repositories.NewPickListRepository(pool)
	returnRepo := repositories.NewReturnRepository(pool)
	receiptRepo := repositories.NewReceiptRepository(pool)
	alertRepo := repositories.NewAlertRepository(pool)
	movementRepo := repositories.NewMovementRepository(pool)

	stockLedger := ledger.New(
		repositories.NewLedgerRepository(pool),
		locker,
		ledger.WithLockTimeout(cfg.Locks.Timeout),
		ledger.WithLogger(log.Component("ledger")),
	)

	// Services
	movements := services.NewMovementLog(movementRepo, log.Component("movements"))
	catalogSvc := services.NewCatalogService(productRepo, locationRepo, orderRepo, log.Component("catalog"))
	allocationSvc := services.NewAllocationService(productRepo, locationRepo, stockLedger, movements, log.Component("allocation"))
	fulfillmentSvc := services.NewFulfillmentService(orderRepo, pickListRepo, allocationSvc, stockLedger, log.Component("fulfillment"))
	pickingSvc := services.NewPickingService(pickListRepo, orderRepo, productRepo, stockLedger, movements, log.Component("picking"))
	returnSvc := services.NewReturnService(returnRepo, orderRepo, productRepo, locationRepo, allocationSvc, stockLedger, log.Component("returns"))
	receiptSvc := services.NewReceiptService(receiptRepo, productRepo, allocationSvc, stockLedger, log.Component("receipts"))
	alertSvc := services.NewAlertService(productRepo, alertRepo, stockLedger, cacheSvc, log.Component("alerts"))
	stockSvc := services.NewStockService(productRepo, locationRepo, stockLedger, movements, cacheSvc, cfg.Redis.StockTTL, log.Component("stock"))

	var reportSvc services.ReportService
	var storageProbe func(context.Context) error
	if cfg.Minio.Enabled() {
		storage, err := services.NewMinioReportStorage(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			return err
		}
		if err := storage.EnsureBucketExists(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("report bucket not reachable yet")
		}
		reportSvc = services.NewReportService(movements, storage, cfg.Reports.URLExpiry, log.Component("reports"))
		storageProbe = storage.EnsureBucketExists
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set, movement report export disabled")
	}

	// Background jobs
	var scheduler *background.JobScheduler
	if cfg.Jobs.Enabled {
		sweep := jobs.NewLowStockSweep(alertSvc, log.Component("jobs"))
		var reportRunner background.Runner
		if reportSvc != nil {
			report := jobs.NewMovementReport(reportSvc, log.Component("jobs"))
			reportRunner = func(ctx context.Context) error {
				_, err := report.Run(ctx)
				return err
			}
		}
		scheduler, err = background.NewJobScheduler(background.Config{
			SweepInterval: cfg.Jobs.SweepInterval,
			ReportHourUTC: cfg.Jobs.ReportHourUTC,
		}, func(ctx context.Context) error {
			_, err := sweep.Run(ctx)
			return err
		}, reportRunner, log.Component("scheduler"))
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				log.Error().Err(err).Msg("scheduler shutdown failed")
			}
		}()
	}

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpLog := log.Component("http")
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			event := httpLog.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = httpLog.Error().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	versionMiddleware := middleware.NewVersionMiddleware()
	if sunset := cfg.API.V1Sunset; sunset != nil {
		versionMiddleware.Deprecate("v1", *sunset, cfg.API.DeprecationNote)
		log.Warn().Time("sunset", *sunset).Msg("API v1 is deprecated")
	}
	e.Use(versionMiddleware.APIVersionResolver())

	var cachePinger handlers.Pinger = cacheSvc
	healthHandlers := handlers.NewHealthHandlers(pool, cachePinger, storageProbe, version)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)

	v1 := versionMiddleware.VersionRoute(e, "v1", middleware.JWT(cfg.JWT.Secret))
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET not set, API is unauthenticated")
	}

	api := &handlers.API{
		Catalog:    handlers.NewCatalogHandlers(catalogSvc, stockSvc, httpLog),
		Allocation: handlers.NewAllocationHandlers(allocationSvc, httpLog),
		Stock:      handlers.NewStockHandlers(stockSvc, httpLog),
		PickLists:  handlers.NewPickListHandlers(fulfillmentSvc, pickingSvc, httpLog),
		Returns:    handlers.NewReturnHandlers(returnSvc, httpLog),
		Receipts:   handlers.NewReceiptHandlers(receiptSvc, httpLog),
		Alerts:     handlers.NewAlertHandlers(alertSvc, httpLog),
		Reports:    handlers.NewReportHandlers(reportSvc, httpLog),
	}
	api.Register(v1)
	if scheduler != nil {
		handlers.NewJobHandlers(scheduler).Register(v1)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("version", version).Msg("stockflow listening")
		if err := e.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
