package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appcollection "github.com/fsuperadmin/backend/internal/application/collection"
	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/infrastructure/auth"
	"github.com/fsuperadmin/backend/internal/infrastructure/cache"
	"github.com/fsuperadmin/backend/internal/infrastructure/config"
	"github.com/fsuperadmin/backend/internal/infrastructure/ledger"
	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"github.com/fsuperadmin/backend/internal/infrastructure/metrics"
	"github.com/fsuperadmin/backend/internal/infrastructure/persistence"
	"github.com/fsuperadmin/backend/internal/infrastructure/telemetry"
	"github.com/fsuperadmin/backend/internal/interfaces/http/handler"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/fsuperadmin/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Cobro API
//	@version		1.0
//	@description	Multi-sale payment collection and reconciliation

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()
	zap.ReplaceGlobals(log)

	log.Info("Starting collection service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("ledger_mode", cfg.Ledger.Mode),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	var (
		gateway collection.LedgerGateway
		pinger  handler.Pinger
	)
	switch cfg.Ledger.Mode {
	case config.LedgerModeRemote:
		gateway = ledger.NewClient(cfg.Ledger.BaseURL, ledger.NewHTTPClient(cfg.Ledger))
		log.Info("Using remote ledger", zap.String("base_url", cfg.Ledger.BaseURL))
	default:
		db, err := openLocalLedger(cfg, log)
		if err != nil {
			log.Fatal("Failed to open local ledger", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		gateway = persistence.NewLocalLedger(db.DB)
		pinger = db
	}

	store, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create submission key store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Error closing submission key store", zap.Error(err))
		}
	}()

	m := metrics.New()
	svc := appcollection.NewService(gateway, auth.ContextIdentity{}, appcollection.Config{
		SessionTTL:       cfg.Collection.SessionTTL,
		DeletePermission: cfg.Collection.DeletePermission,
		IdempotencyTTL:   cfg.Collection.IdempotencyTTL,
	},
		appcollection.WithIdempotencyStore(store),
		appcollection.WithMetrics(m),
		appcollection.WithLogger(log),
	)
	svc.StartSweeper(ctx, cfg.Collection.SweepInterval)

	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
	defer limiter.Stop()

	engine, err := router.NewEngine(router.EngineDeps{
		Config:      cfg,
		Logger:      log,
		JWT:         auth.NewJWTService(cfg.JWT),
		Metrics:     m,
		RateLimiter: limiter,
		Collections: handler.NewCollectionHandler(svc),
		System:      handler.NewSystemHandler(version, pinger, svc),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openLocalLedger connects the database, installs query tracing and migrates
// the ledger tables when enabled.
func openLocalLedger(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowQueryThreshold)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBSystem:        dbSystem,
		SlowQueryThresh: cfg.Database.SlowQueryThreshold,
	}, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	log.Info("Local ledger connected", zap.String("driver", cfg.Database.Driver))
	return db, nil
}
