package persistence

import (
	"context"
	"time"

	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRefreshTokenRepository implements identity.RefreshTokenRepository using GORM
type GormRefreshTokenRepository struct {
	db *gorm.DB
}

// NewGormRefreshTokenRepository creates a new GormRefreshTokenRepository
func NewGormRefreshTokenRepository(db *gorm.DB) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

// Create stores a new refresh token
func (r *GormRefreshTokenRepository) Create(ctx context.Context, token *identity.RefreshToken) error {
	return r.db.WithContext(ctx).Create(models.RefreshTokenModelFromDomain(token)).Error
}

// FindByHash returns the token with the given hash
func (r *GormRefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*identity.RefreshToken, error) {
	var model models.RefreshTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&model).Error; err != nil {
		if IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Rotate revokes the presented token and inserts its successor in one transaction.
// The revoke is conditional on revoked_at still being NULL, so of two concurrent
// rotations of the same token exactly one succeeds.
func (r *GormRefreshTokenRepository) Rotate(ctx context.Context, tokenHash string, next *identity.RefreshToken, now time.Time) (*identity.RotationResult, error) {
	result := &identity.RotationResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.RefreshTokenModel
		if err := tx.Where("token_hash = ?", tokenHash).First(&current).Error; err != nil {
			if IsNotFound(err) {
				return identity.ErrRefreshTokenNotFound
			}
			return err
		}
		prev := current.ToDomain()
		result.Previous = prev

		if prev.IsRevoked() {
			return identity.ErrRefreshTokenRevoked
		}
		if prev.IsExpired(now) {
			return identity.ErrRefreshTokenExpired
		}

		var owner models.UserModel
		err := tx.Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", prev.UserID, prev.TenantID).
			First(&owner).Error
		if err != nil {
			if IsNotFound(err) {
				return identity.ErrRefreshTokenOwnerMissing
			}
			return err
		}

		next.TenantID = prev.TenantID
		next.UserID = prev.UserID

		res := tx.Model(&models.RefreshTokenModel{}).
			Where("id = ? AND revoked_at IS NULL", prev.ID).
			Updates(map[string]any{"revoked_at": now, "replaced_by_id": next.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return identity.ErrRefreshTokenRaced
		}

		if err := tx.Create(models.RefreshTokenModelFromDomain(next)).Error; err != nil {
			return err
		}

		result.Successor = next
		result.Identity = owner.ToDomain().Identity()
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// RevokeByHash revokes an active token; unknown and revoked tokens affect zero rows
func (r *GormRefreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RefreshTokenModel{}).
		Where("token_hash = ? AND revoked_at IS NULL", tokenHash).
		Update("revoked_at", now)
	return res.RowsAffected, res.Error
}

// DeleteExpiredBefore hard-deletes tokens that expired before cutoff
func (r *GormRefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.RefreshTokenModel{})
	return res.RowsAffected, res.Error
}

// Ensure GormRefreshTokenRepository implements RefreshTokenRepository
var _ identity.RefreshTokenRepository = (*GormRefreshTokenRepository)(nil)
