package persistence

import (
	"context"

	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByEmail finds a live user by normalised email within a tenant
func (r *GormUserRepository) FindByEmail(ctx context.Context, tenantID, email string) (*identity.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND email = ? AND deleted_at IS NULL", tenantID, identity.NormalizeEmail(email)).
		First(&model).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a live user within a tenant
func (r *GormUserRepository) FindByID(ctx context.Context, tenantID, userID string) (*identity.User, error) {
	var model models.UserModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", userID, tenantID).
		First(&model).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormUserRepository implements UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
