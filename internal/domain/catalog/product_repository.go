package catalog

import (
	"context"
	"time"
)

// ProductRepository is bound to one tenant. Every read is filtered to that
// tenant and skips soft-deleted rows; every write is stamped with it. Ids that
// belong to another tenant behave exactly like ids that do not exist.
type ProductRepository interface {
	// TenantID returns the tenant the repository is bound to
	TenantID() string

	// List returns up to limit live products, newest first
	List(ctx context.Context, limit int) ([]*Product, error)

	// FindByID returns a live product or shared.ErrNotFound
	FindByID(ctx context.Context, id string) (*Product, error)

	// Create stores a product. A per-tenant SKU collision returns shared.ErrDuplicateKey
	Create(ctx context.Context, product *Product) error

	// Update applies a partial update and returns the stored product
	Update(ctx context.Context, id string, update ProductUpdate) (*Product, error)

	// SoftDelete marks a live product deleted
	SoftDelete(ctx context.Context, id string, now time.Time) error
}

// ProductRepositoryFactory hands out tenant-bound repositories.
// An empty tenant id is rejected.
type ProductRepositoryFactory interface {
	ForTenant(tenantID string) (ProductRepository, error)
}

// ProductPurger hard-deletes products across tenants for maintenance.
type ProductPurger interface {
	PurgeSoftDeleted(ctx context.Context, deletedBefore time.Time) (int64, error)
}
