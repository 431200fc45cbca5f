package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/cache"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"github.com/tenantapi/backend/internal/interfaces/http/handler"
	"github.com/tenantapi/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Dependencies is everything the HTTP engine needs
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	AccessTokens       middleware.AccessTokenValidator
	Permissions        middleware.PermissionResolver
	RateLimiter        cache.RateLimiter
	IdempotencyRecords shared.IdempotencyRepository
	IdempotencyClaims  shared.IdempotencyStore
	Metrics            *telemetry.PipelineMetrics
	// Meter enables HTTP server metrics when set
	Meter metric.Meter

	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Health   *handler.HealthHandler
}

// NewEngine builds the gin engine with the full middleware stack:
// RequestID, Recovery, Logger, Tracing, Metrics, Secure, CORS, BodyLimit
// globally, then AuthGuard, RateLimit, the permission check and
// Idempotency per API route.
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	securityConfig := middleware.DefaultSecurityConfig()
	securityConfig.HSTSEnabled = cfg.IsProduction()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(deps.Meter))
	engine.Use(middleware.Secure(securityConfig))
	engine.Use(middleware.CORS(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", deps.Health.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(authRoutes(deps))
	r.Register(productRoutes(deps))
	r.Setup()

	return engine
}

// authRoutes are public; only the per-IP auth limit applies
func authRoutes(deps Dependencies) *DomainGroup {
	cfg := deps.Config.HTTP
	routes := NewDomainGroup("auth", "/auth")
	if cfg.AuthRateLimitEnabled {
		routes.Use(middleware.RateLimit(deps.RateLimiter, middleware.RateLimitConfig{
			Name:    "auth",
			Limit:   cfg.AuthRateLimitRequests,
			Window:  cfg.AuthRateLimitWindow,
			KeyFunc: middleware.IPKey,
		}, deps.Logger))
	}
	routes.POST("/login", deps.Auth.Login)
	routes.POST("/refresh", deps.Auth.Refresh)
	routes.POST("/logout", deps.Auth.Logout)
	return routes
}

func productRoutes(deps Dependencies) *DomainGroup {
	cfg := deps.Config
	log := deps.Logger

	readLimit := rateLimit(deps, "read", cfg.HTTP.ReadRateLimit, cfg.HTTP.RateLimitWindow)
	writeLimit := rateLimit(deps, "write", cfg.HTTP.WriteRateLimit, cfg.HTTP.RateLimitWindow)
	idempotent := middleware.Idempotency(middleware.IdempotencyOptions{
		Records: deps.IdempotencyRecords,
		Claims:  deps.IdempotencyClaims,
		Config: shared.IdempotencyConfig{
			TTL:           cfg.Idempotency.TTL,
			MinKeyLength:  cfg.Idempotency.MinKeyLength,
			ClaimInFlight: cfg.Idempotency.ClaimInFlight,
			ClaimTTL:      cfg.Idempotency.ClaimTTL,
		},
		Metrics: deps.Metrics,
		Logger:  log,
	})
	canRead := middleware.RequirePermission(deps.Permissions, identity.PermissionProductRead, log)
	canWrite := middleware.RequirePermission(deps.Permissions, identity.PermissionProductWrite, log)

	routes := NewDomainGroup("catalog", "/products")
	routes.Use(middleware.AuthGuard(deps.AccessTokens, log))
	routes.Use(middleware.Profiling(cfg.Profiling.Enabled))

	routes.GET("", readLimit, canRead, deps.Products.List)
	routes.POST("", writeLimit, canWrite, idempotent, deps.Products.Create)
	routes.PATCH("/:id", writeLimit, canWrite, idempotent, deps.Products.Update)
	routes.DELETE("/:id", writeLimit, canWrite, idempotent, deps.Products.Delete)
	return routes
}

// rateLimit returns nil when rate limiting is off; DomainGroup skips nil handlers
func rateLimit(deps Dependencies, name string, limit int, window time.Duration) gin.HandlerFunc {
	if !deps.Config.HTTP.RateLimitEnabled {
		return nil
	}
	return middleware.RateLimit(deps.RateLimiter, middleware.RateLimitConfig{
		Name:   name,
		Limit:  limit,
		Window: window,
	}, deps.Logger)
}
