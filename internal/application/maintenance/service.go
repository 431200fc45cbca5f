// Package maintenance purges rows that have outlived their retention windows.
// Every purge is safe to re-run: a second run finds nothing left to delete.
package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/catalog"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Job names, also used as the metric label
const (
	JobIdempotencyRecords  = "purge_idempotency_records"
	JobRefreshTokens       = "purge_refresh_tokens"
	JobSoftDeletedProducts = "purge_soft_deleted_products"
	JobAuditLogs           = "purge_audit_logs"
)

// ErrArchiveStoreRequired is returned when audit archiving is on without a store
var ErrArchiveStoreRequired = errors.New("audit archiving requires an archive store")

// AuditStore is the part of the audit log maintenance needs
type AuditStore interface {
	FindOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]shared.AuditEntry, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveStore receives audit archive objects
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Config holds retention windows
type Config struct {
	RefreshTokenRetention time.Duration
	SoftDeletedRetention  time.Duration
	AuditRetention        time.Duration
	ArchiveAudit          bool
	AuditBatchSize        int
	ArchivePrefix         string
}

// ConfigFrom extracts the maintenance settings from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		RefreshTokenRetention: cfg.Refresh.Retention,
		SoftDeletedRetention:  cfg.Maintenance.SoftDeletedRetention,
		AuditRetention:        cfg.Maintenance.AuditRetention,
		ArchiveAudit:          cfg.Maintenance.ArchiveAudit,
		AuditBatchSize:        cfg.Maintenance.AuditBatchSize,
		ArchivePrefix:         cfg.Maintenance.AuditArchivePrefix,
	}
}

// Dependencies are the stores the purges run against. Archive is only
// needed when audit archiving is on.
type Dependencies struct {
	Idempotency   shared.IdempotencyRepository
	RefreshTokens identity.RefreshTokenRepository
	Products      catalog.ProductPurger
	Audit         AuditStore
	Archive       ArchiveStore
}

// Service runs the four purge operations
type Service struct {
	deps    Dependencies
	config  Config
	metrics *telemetry.PipelineMetrics
	logger  *zap.Logger
}

// NewService creates a maintenance service. metrics may be nil.
func NewService(deps Dependencies, cfg Config, metrics *telemetry.PipelineMetrics, logger *zap.Logger) (*Service, error) {
	if cfg.ArchiveAudit && deps.Archive == nil {
		return nil, ErrArchiveStoreRequired
	}
	if cfg.AuditBatchSize <= 0 {
		cfg.AuditBatchSize = 1000
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "audit-archive"
	}
	return &Service{deps: deps, config: cfg, metrics: metrics, logger: logger}, nil
}

// PurgeExpiredIdempotencyRecords deletes records whose expiry has passed
func (s *Service) PurgeExpiredIdempotencyRecords(ctx context.Context, now time.Time) (int64, error) {
	return s.run(ctx, JobIdempotencyRecords, func() (int64, error) {
		return s.deps.Idempotency.DeleteExpired(ctx, now)
	})
}

// PurgeExpiredRefreshTokens deletes tokens that expired more than the
// retention window ago
func (s *Service) PurgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.run(ctx, JobRefreshTokens, func() (int64, error) {
		return s.deps.RefreshTokens.DeleteExpiredBefore(ctx, now.Add(-s.config.RefreshTokenRetention))
	})
}

// PurgeSoftDeletedProducts hard-deletes products soft-deleted longer ago than
// the retention window
func (s *Service) PurgeSoftDeletedProducts(ctx context.Context, now time.Time) (int64, error) {
	return s.run(ctx, JobSoftDeletedProducts, func() (int64, error) {
		return s.deps.Products.PurgeSoftDeleted(ctx, now.Add(-s.config.SoftDeletedRetention))
	})
}

// PurgeOldAuditLogs deletes audit rows older than the retention window,
// archiving them first when configured
func (s *Service) PurgeOldAuditLogs(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.config.AuditRetention)
	return s.run(ctx, JobAuditLogs, func() (int64, error) {
		if !s.config.ArchiveAudit {
			return s.deps.Audit.DeleteOlderThan(ctx, cutoff)
		}
		return s.archiveAndDelete(ctx, cutoff, now)
	})
}

func (s *Service) run(ctx context.Context, job string, purge func() (int64, error)) (int64, error) {
	start := time.Now()
	n, err := purge()
	took := time.Since(start)
	if err != nil {
		s.logger.Error("Purge failed",
			zap.String("job", job),
			zap.Int64("rows", n),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return n, fmt.Errorf("%s: %w", job, err)
	}

	s.metrics.Purged(ctx, job, n, took)
	s.logger.Info("Purge completed",
		zap.String("job", job),
		zap.Int64("rows", n),
		zap.Duration("took", took),
	)
	return n, nil
}

// archiveAndDelete moves audit rows to object storage one batch at a time.
// A batch is only deleted after its archive objects were written, so a
// failed upload leaves the rows for the next run.
func (s *Service) archiveAndDelete(ctx context.Context, cutoff, now time.Time) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		batch, err := s.deps.Audit.FindOlderThan(ctx, cutoff, s.config.AuditBatchSize)
		if err != nil {
			return total, fmt.Errorf("load audit batch: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		if err := s.archiveBatch(ctx, batch, now); err != nil {
			return total, err
		}

		ids := make([]string, len(batch))
		for i := range batch {
			ids[i] = batch[i].ID
		}
		n, err := s.deps.Audit.DeleteByIDs(ctx, ids)
		total += n
		if err != nil {
			return total, fmt.Errorf("delete archived audit rows: %w", err)
		}

		if len(batch) < s.config.AuditBatchSize {
			return total, nil
		}
	}
}

// archiveRecord is the JSON Lines shape of an archived audit entry
type archiveRecord struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenantId"`
	ActorID   string         `json:"actorId"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entityId"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *Service) archiveBatch(ctx context.Context, batch []shared.AuditEntry, now time.Time) error {
	byTenant := make(map[string]*bytes.Buffer)
	order := make([]string, 0)
	for _, e := range batch {
		buf, ok := byTenant[e.TenantID]
		if !ok {
			buf = &bytes.Buffer{}
			byTenant[e.TenantID] = buf
			order = append(order, e.TenantID)
		}
		line, err := json.Marshal(archiveRecord{
			ID:        e.ID,
			TenantID:  e.TenantID,
			ActorID:   e.ActorID,
			Action:    e.Action,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("encode audit entry %s: %w", e.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	for _, tenantID := range order {
		key := ArchiveKey(s.config.ArchivePrefix, tenantID, now)
		if err := s.deps.Archive.Put(ctx, key, byTenant[tenantID].Bytes(), "application/x-ndjson"); err != nil {
			return fmt.Errorf("archive audit batch for tenant %s: %w", tenantID, err)
		}
		s.logger.Debug("Audit batch archived", zap.String("tenant_id", tenantID), zap.String("key", key))
	}
	return nil
}

// ArchiveKey builds <prefix>/<tenant>/<yyyy>/<mm>/<dd>/<uuid>.jsonl
func ArchiveKey(prefix, tenantID string, at time.Time) string {
	at = at.UTC()
	return path.Join(prefix, tenantID,
		fmt.Sprintf("%04d", at.Year()),
		fmt.Sprintf("%02d", int(at.Month())),
		fmt.Sprintf("%02d", at.Day()),
		uuid.NewString()+".jsonl",
	)
}
