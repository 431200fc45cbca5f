package persistence

import (
	"context"

	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRoleRepository implements identity.RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// FindPermissions returns the permission codes granted to a role.
// An unknown role has no permissions.
func (r *GormRoleRepository) FindPermissions(ctx context.Context, tenantID, roleID string) ([]string, error) {
	codes := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&models.RolePermissionModel{}).
		Where("role_id = ? AND tenant_id = ?", roleID, tenantID).
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Ensure GormRoleRepository implements RoleRepository
var _ identity.RoleRepository = (*GormRoleRepository)(nil)
