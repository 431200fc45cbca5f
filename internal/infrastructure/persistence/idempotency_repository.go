package persistence

import (
	"context"
	"time"

	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIdempotencyRepository implements shared.IdempotencyRepository using GORM
type GormIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormIdempotencyRepository creates a new GormIdempotencyRepository
func NewGormIdempotencyRepository(db *gorm.DB) *GormIdempotencyRepository {
	return &GormIdempotencyRepository{db: db}
}

// Find returns the unexpired record for (tenantID, key)
func (r *GormIdempotencyRepository) Find(ctx context.Context, tenantID, key string, now time.Time) (*shared.IdempotencyRecord, error) {
	var model models.IdempotencyRecordModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND key = ? AND expires_at > ?", tenantID, key, now).
		First(&model).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts the record. An expired row holding the same key is removed
// first so the key becomes usable again before the purge job runs.
func (r *GormIdempotencyRepository) Create(ctx context.Context, record *shared.IdempotencyRecord) error {
	model := models.IdempotencyRecordModelFromDomain(record)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("tenant_id = ? AND key = ? AND expires_at <= ?", record.TenantID, record.Key, record.CreatedAt).
			Delete(&models.IdempotencyRecordModel{}).Error; err != nil {
			return err
		}
		return tx.Create(model).Error
	})
	if IsDuplicateKey(err) {
		return shared.ErrDuplicateKey.WithCause(err)
	}
	return err
}

// DeleteExpired removes records whose expiry has passed
func (r *GormIdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.IdempotencyRecordModel{})
	return res.RowsAffected, res.Error
}

// Ensure GormIdempotencyRepository implements IdempotencyRepository
var _ shared.IdempotencyRepository = (*GormIdempotencyRepository)(nil)
