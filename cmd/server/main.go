package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/tenantapi/backend/internal/application/catalog"
	identityapp "github.com/tenantapi/backend/internal/application/identity"
	"github.com/tenantapi/backend/internal/application/maintenance"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/persistence"
	"github.com/tenantapi/backend/internal/infrastructure/platform"
	"github.com/tenantapi/backend/internal/interfaces/http/handler"
	"github.com/tenantapi/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	p, err := platform.Open(ctx, cfg, "api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	log := p.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.Close(shutdownCtx); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	}()

	log.Info("Starting tenant API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db := p.Database.DB

	// Repositories
	userRepo := persistence.NewGormUserRepository(db)
	roleRepo := persistence.NewGormRoleRepository(db)
	refreshTokenRepo := persistence.NewGormRefreshTokenRepository(db)
	idempotencyRepo := persistence.NewGormIdempotencyRepository(db)
	productStore := persistence.NewGormProductStore(db)
	auditRepo := persistence.NewGormAuditRepository(db)

	// Services
	jwtService, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to create JWT service", zap.Error(err))
	}
	tokenService := identityapp.NewTokenService(jwtService, refreshTokenRepo, identityapp.TokenServiceConfig{
		RefreshTokenTTL: cfg.Refresh.Expiration,
		WriteTimeout:    5 * time.Second,
	}, p.Metrics, log)
	authService := identityapp.NewAuthService(userRepo, auth.NewPasswordHasher(0), tokenService, log)
	permissionService := identityapp.NewPermissionService(userRepo, roleRepo)
	productService := catalogapp.NewProductService(productStore, auditRepo, log)

	var meter metric.Meter
	if p.HTTPMeterEnabled() {
		meter = p.Meters.Meter(cfg.Telemetry.ServiceName + "/http")
	}

	engine := router.NewEngine(router.Dependencies{
		Config:             cfg,
		Logger:             log,
		AccessTokens:       jwtService,
		Permissions:        permissionService,
		RateLimiter:        p.Cache.RateLimiter(),
		IdempotencyRecords: idempotencyRepo,
		IdempotencyClaims:  p.Cache.IdempotencyStore(),
		Metrics:            p.Metrics,
		Meter:              meter,
		Auth:               handler.NewAuthHandler(authService, handler.NewCookieSettings(cfg)),
		Products:           handler.NewProductHandler(productService),
		Health:             handler.NewHealthHandler(p.Database, log),
	})

	// In-process maintenance, for deployments without a separate worker
	if cfg.Maintenance.Enabled {
		archive, err := p.ArchiveStore(ctx)
		if err != nil {
			log.Fatal("Failed to open audit archive", zap.Error(err))
		}
		deps := maintenance.Dependencies{
			Idempotency:   idempotencyRepo,
			RefreshTokens: refreshTokenRepo,
			Products:      productStore,
			Audit:         auditRepo,
		}
		if archive != nil {
			deps.Archive = archive
		}
		svc, err := maintenance.NewService(deps, maintenance.ConfigFrom(cfg), p.Metrics, log)
		if err != nil {
			log.Fatal("Failed to create maintenance service", zap.Error(err))
		}
		sched, err := svc.NewScheduler(cfg.Maintenance, log)
		if err != nil {
			log.Fatal("Failed to create maintenance scheduler", zap.Error(err))
		}
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Error("Error stopping maintenance scheduler", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
