// Package platform opens the process-wide infrastructure shared by the
// server and worker binaries: logging, telemetry, profiling, the database
// and the cache factory.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/tenantapi/backend/internal/infrastructure/cache"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/persistence"
	"github.com/tenantapi/backend/internal/infrastructure/storage"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Platform holds opened infrastructure. Close releases it in reverse order.
type Platform struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tracer   *telemetry.TracerProvider
	Meters   *telemetry.MeterProvider
	Logs     *telemetry.LoggerProvider
	Profiler *telemetry.Profiler
	Database *persistence.Database
	Cache    *cache.Factory
	Metrics  *telemetry.PipelineMetrics

	closers []func(context.Context) error
}

// Open builds the logger, starts telemetry and connects to the database and
// cache. component is appended to the service name, for example "worker".
func Open(ctx context.Context, cfg *config.Config, component string) (*Platform, error) {
	p := &Platform{Config: cfg}

	logCfg := &logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	base, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	base = base.With(zap.String("component", component))
	p.Logger = base

	// Log export needs a provider before the bridged logger can exist.
	p.Logs, err = telemetry.NewLoggerProvider(ctx, cfg.Telemetry, base)
	if err != nil {
		return nil, err
	}
	if p.Logs.IsEnabled() {
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		bridged, err := logger.New(logCfg, p.Logs.Core(level))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		p.Logger = bridged.With(zap.String("component", component))
		p.Logs.SetLogger(p.Logger)
	}
	p.onClose(p.Logs.Shutdown)
	log := p.Logger

	if p.Profiler, err = telemetry.NewProfiler(cfg.Profiling, cfg.Telemetry.ServiceName+"."+component, log); err != nil {
		p.abort(ctx)
		return nil, err
	}
	p.onClose(func(context.Context) error { return p.Profiler.Stop() })

	if p.Tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log); err != nil {
		p.abort(ctx)
		return nil, err
	}
	if cfg.Profiling.SpanProfiles && p.Profiler.IsEnabled() {
		p.Tracer.EnableSpanProfiles()
	}
	p.onClose(p.Tracer.Shutdown)

	if p.Meters, err = telemetry.NewMeterProvider(ctx, cfg.Telemetry, log); err != nil {
		p.abort(ctx)
		return nil, err
	}
	p.onClose(p.Meters.Shutdown)

	if p.Metrics, err = telemetry.NewPipelineMetrics(p.Meters.Meter(cfg.Telemetry.ServiceName)); err != nil {
		p.abort(ctx)
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithSQL(cfg.Telemetry.DBLogFullSQL),
	)
	if p.Database, err = persistence.NewDatabaseWithLogger(&cfg.Database, gormLog); err != nil {
		p.abort(ctx)
		return nil, err
	}
	p.onClose(func(context.Context) error { return p.Database.Close() })
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := telemetry.RegisterDBTracing(p.Database.DB, cfg.Telemetry, dbSystem(cfg.Database.Driver), log); err != nil {
		p.abort(ctx)
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	if p.Cache, err = cache.NewFactory(ctx, cfg.Redis, cache.WithLogger(log)); err != nil {
		p.abort(ctx)
		return nil, err
	}
	p.onClose(func(context.Context) error { return p.Cache.Close() })

	return p, nil
}

// HTTPMeterEnabled reports whether HTTP server metrics should be recorded.
func (p *Platform) HTTPMeterEnabled() bool {
	return p.Meters.IsEnabled()
}

// Close shuts everything down, last opened first, and flushes the logger.
func (p *Platform) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	_ = p.Logger.Sync()
	return errors.Join(errs...)
}

func (p *Platform) onClose(fn func(context.Context) error) {
	p.closers = append(p.closers, fn)
}

func (p *Platform) abort(ctx context.Context) {
	if err := p.Close(ctx); err != nil {
		p.Logger.Warn("Error releasing partially opened platform", zap.Error(err))
	}
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// ArchiveStore connects to object storage when audit archiving is on.
// It returns nil otherwise.
func (p *Platform) ArchiveStore(ctx context.Context) (*storage.S3ObjectStorage, error) {
	if !p.Config.Maintenance.ArchiveAudit {
		return nil, nil
	}
	store, err := storage.NewS3ObjectStorage(ctx, p.Config.Storage, storage.WithLogger(p.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create archive storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
