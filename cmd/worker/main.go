package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tenantapi/backend/internal/application/maintenance"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/persistence"
	"github.com/tenantapi/backend/internal/infrastructure/platform"
	"go.uber.org/zap"
)

func main() {
	once := flag.String("once", "", "Run a single job and exit (purge_idempotency_records, purge_refresh_tokens, purge_soft_deleted_products, purge_audit_logs)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := platform.Open(ctx, cfg, "worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	log := p.Logger

	code := run(ctx, p, *once)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.Close(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	os.Exit(code)
}

func run(ctx context.Context, p *platform.Platform, once string) int {
	cfg, log := p.Config, p.Logger
	db := p.Database.DB

	deps := maintenance.Dependencies{
		Idempotency:   persistence.NewGormIdempotencyRepository(db),
		RefreshTokens: persistence.NewGormRefreshTokenRepository(db),
		Products:      persistence.NewGormProductStore(db),
		Audit:         persistence.NewGormAuditRepository(db),
	}
	archive, err := p.ArchiveStore(ctx)
	if err != nil {
		log.Error("Failed to open audit archive", zap.Error(err))
		return 1
	}
	if archive != nil {
		deps.Archive = archive
	}

	svc, err := maintenance.NewService(deps, maintenance.ConfigFrom(cfg), p.Metrics, log)
	if err != nil {
		log.Error("Failed to create maintenance service", zap.Error(err))
		return 1
	}
	sched, err := svc.NewScheduler(cfg.Maintenance, log)
	if err != nil {
		log.Error("Failed to create maintenance scheduler", zap.Error(err))
		return 1
	}

	if once != "" {
		n, err := sched.RunOnce(ctx, once)
		if err != nil {
			log.Error("Job failed", zap.String("job", once), zap.Error(err))
			return 1
		}
		log.Info("Job finished", zap.String("job", once), zap.Int64("rows", n))
		return 0
	}

	if err := sched.Start(ctx); err != nil {
		log.Error("Failed to start maintenance scheduler", zap.Error(err))
		return 1
	}
	log.Info("Worker running", zap.Strings("jobs", sched.Jobs()))

	<-ctx.Done()
	log.Info("Shutting down worker...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		log.Error("Error stopping maintenance scheduler", zap.Error(err))
		return 1
	}
	return 0
}
