package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository writes and purges audit_logs rows.
type GormAuditRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db, now: time.Now}
}

// Write implements shared.AuditSink. Missing id and timestamp are filled in.
func (r *GormAuditRepository) Write(ctx context.Context, entry shared.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	model, err := models.AuditLogModelFromDomain(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindOlderThan returns up to limit entries created before cutoff, oldest first
func (r *GormAuditRepository) FindOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]shared.AuditEntry, error) {
	var rows []models.AuditLogModel
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]shared.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// DeleteByIDs hard-deletes the given audit rows
func (r *GormAuditRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.AuditLogModel{})
	return res.RowsAffected, res.Error
}

// DeleteOlderThan hard-deletes every audit row created before cutoff
func (r *GormAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLogModel{})
	return res.RowsAffected, res.Error
}

// Ensure GormAuditRepository implements AuditSink
var _ shared.AuditSink = (*GormAuditRepository)(nil)
