package router

import (
	"github.com/fsuperadmin/backend/internal/infrastructure/auth"
	"github.com/fsuperadmin/backend/internal/infrastructure/config"
	"github.com/fsuperadmin/backend/internal/infrastructure/logger"
	"github.com/fsuperadmin/backend/internal/infrastructure/metrics"
	"github.com/fsuperadmin/backend/internal/interfaces/http/handler"
	"github.com/fsuperadmin/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineDeps carries everything NewEngine wires into the HTTP stack
type EngineDeps struct {
	Config      *config.Config
	Logger      *zap.Logger
	JWT         *auth.JWTService
	Metrics     *metrics.Collection
	RateLimiter *middleware.RateLimiter
	Collections *handler.CollectionHandler
	System      *handler.SystemHandler
}

// NewEngine builds the gin engine with the global middleware chain, the
// unauthenticated health endpoints and the versioned API.
func NewEngine(deps EngineDeps) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(deps.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(deps.Logger),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.Metrics.Enabled && deps.Metrics != nil {
		engine.Use(deps.Metrics.GinMiddleware())
		engine.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	engine.GET("/health", deps.System.Health)
	engine.GET("/ready", deps.System.Ready)

	jwtCfg := middleware.DefaultJWTConfig(deps.JWT)
	jwtCfg.Logger = deps.Logger

	var submitGuards []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled && deps.RateLimiter != nil {
		submitGuards = append(submitGuards, middleware.RateLimit(deps.RateLimiter))
	}

	NewRouter(engine, WithMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
	)).
		Register(SystemRoutes(deps.System)).
		Register(CollectionRoutes(deps.Collections, submitGuards...)).
		Setup()
	return engine, nil
}
