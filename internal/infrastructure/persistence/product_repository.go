package persistence

import (
	"context"
	"time"

	"github.com/tenantapi/backend/internal/domain/catalog"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/models"
	"github.com/tenantapi/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormProductStore hands out tenant-bound product repositories and runs the
// cross-tenant purge. It is the only holder of the unscoped handle.
type GormProductStore struct {
	db *gorm.DB
}

// NewGormProductStore creates a new GormProductStore
func NewGormProductStore(db *gorm.DB) *GormProductStore {
	return &GormProductStore{db: db}
}

// ForTenant returns a repository bound to tenantID
func (s *GormProductStore) ForTenant(tenantID string) (catalog.ProductRepository, error) {
	acc, err := tenant.New(s.db, tenantID)
	if err != nil {
		return nil, err
	}
	return &GormProductRepository{acc: acc}, nil
}

// PurgeSoftDeleted hard-deletes products soft-deleted before deletedBefore, across all tenants
func (s *GormProductStore) PurgeSoftDeleted(ctx context.Context, deletedBefore time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", deletedBefore).
		Delete(&models.ProductModel{})
	return res.RowsAffected, res.Error
}

// GormProductRepository implements catalog.ProductRepository over a tenant Accessor
type GormProductRepository struct {
	acc *tenant.Accessor
}

// TenantID returns the bound tenant
func (r *GormProductRepository) TenantID() string {
	return r.acc.TenantID()
}

// List returns up to limit live products, newest first
func (r *GormProductRepository) List(ctx context.Context, limit int) ([]*catalog.Product, error) {
	var rows []models.ProductModel
	err := r.acc.Query(ctx, &models.ProductModel{}).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	products := make([]*catalog.Product, len(rows))
	for i := range rows {
		products[i] = rows[i].ToDomain()
	}
	return products, nil
}

// FindByID returns a live product of the bound tenant
func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	return findProduct(ctx, r.acc, id)
}

func findProduct(ctx context.Context, acc *tenant.Accessor, id string) (*catalog.Product, error) {
	var row models.ProductModel
	if err := acc.Query(ctx, &models.ProductModel{}).Where("id = ?", id).First(&row).Error; err != nil {
		if IsNotFound(err) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// Create stores a product stamped with the bound tenant
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	row := models.ProductModelFromDomain(product)
	if err := r.acc.Create(ctx, row); err != nil {
		if IsDuplicateKey(err) {
			return shared.ErrDuplicateKey.WithMessage("a product with this sku already exists").WithCause(err)
		}
		return err
	}
	product.TenantID = row.TenantID
	product.CreatedAt = row.CreatedAt
	product.UpdatedAt = row.UpdatedAt
	return nil
}

// Update applies a partial update and reads the row back in the same transaction
func (r *GormProductRepository) Update(ctx context.Context, id string, update catalog.ProductUpdate) (*catalog.Product, error) {
	var updated *catalog.Product
	err := r.acc.Transaction(ctx, func(tx *tenant.Accessor) error {
		n, err := tx.Update(ctx, &models.ProductModel{}, id, update.Columns())
		if err != nil {
			return err
		}
		if n == 0 {
			return shared.ErrNotFound
		}
		updated, err = findProduct(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete marks a live product of the bound tenant deleted
func (r *GormProductRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	n, err := r.acc.SoftDelete(ctx, &models.ProductModel{}, id, now)
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Interface assertions
var (
	_ catalog.ProductRepository        = (*GormProductRepository)(nil)
	_ catalog.ProductRepositoryFactory = (*GormProductStore)(nil)
	_ catalog.ProductPurger            = (*GormProductStore)(nil)
)
