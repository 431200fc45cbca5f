package maintenance

import (
	"context"
	"time"

	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// Jobs returns the purge operations as scheduler jobs with their configured
// intervals. Each run uses the wall clock at the time it starts.
func (s *Service) Jobs(cfg config.MaintenanceConfig) []scheduler.Job {
	bind := func(purge func(context.Context, time.Time) (int64, error)) scheduler.JobFunc {
		return func(ctx context.Context) (int64, error) {
			return purge(ctx, time.Now().UTC())
		}
	}
	return []scheduler.Job{
		{Name: JobIdempotencyRecords, Interval: cfg.IdempotencyInterval, Run: bind(s.PurgeExpiredIdempotencyRecords)},
		{Name: JobRefreshTokens, Interval: cfg.RefreshTokenInterval, Run: bind(s.PurgeExpiredRefreshTokens)},
		{Name: JobSoftDeletedProducts, Interval: cfg.ProductInterval, Run: bind(s.PurgeSoftDeletedProducts)},
		{Name: JobAuditLogs, Interval: cfg.AuditInterval, Run: bind(s.PurgeOldAuditLogs)},
	}
}

// NewScheduler registers the purge jobs on a maintenance scheduler
func (s *Service) NewScheduler(cfg config.MaintenanceConfig, logger *zap.Logger) (*scheduler.MaintenanceScheduler, error) {
	sched, err := scheduler.NewMaintenanceScheduler(scheduler.SchedulerConfigFrom(cfg), logger)
	if err != nil {
		return nil, err
	}
	for _, job := range s.Jobs(cfg) {
		if err := sched.Register(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}
