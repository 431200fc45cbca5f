// Package tenant provides the tenant-bound database view used by repositories.
//
// An Accessor is constructed for exactly one tenant. Reads through it are
// filtered on tenant_id and exclude soft-deleted rows; inserts through it are
// stamped with the bound tenant. Updates and deletes aimed at another tenant's
// row match zero rows, so callers cannot tell them apart from missing rows.
//
// Usage:
//
//	acc, err := tenant.New(db, tenantID)
//	acc.Query(ctx, &models.ProductModel{}).Where("id = ?", id).First(&row)
package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when an Accessor is built without a tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Owned is implemented by models that carry a tenant_id column.
type Owned interface {
	SetTenantID(tenantID string)
}

// Scope filters a query to one tenant
func Scope(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// Live filters out soft-deleted rows
func Live(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

// Accessor is a database view bound to one tenant.
type Accessor struct {
	db       *gorm.DB
	tenantID string
}

// New binds db to tenantID.
func New(db *gorm.DB, tenantID string) (*Accessor, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantIDRequired
	}
	return &Accessor{db: db, tenantID: tenantID}, nil
}

// TenantID returns the bound tenant
func (a *Accessor) TenantID() string {
	return a.tenantID
}

// Query starts a statement on model limited to the tenant's live rows.
func (a *Accessor) Query(ctx context.Context, model any) *gorm.DB {
	return a.db.WithContext(ctx).Model(model).Scopes(Scope(a.tenantID), Live)
}

// Create stamps row with the bound tenant and inserts it.
// Any tenant id already set on row is overwritten.
func (a *Accessor) Create(ctx context.Context, row Owned) error {
	row.SetTenantID(a.tenantID)
	return a.db.WithContext(ctx).Create(row).Error
}

// Update sets cols on the live row with the given id and returns the number of
// rows changed. Zero means absent, deleted, or owned by another tenant.
func (a *Accessor) Update(ctx context.Context, model any, id string, cols map[string]any) (int64, error) {
	res := a.Query(ctx, model).Where("id = ?", id).Updates(cols)
	return res.RowsAffected, res.Error
}

// SoftDelete stamps deleted_at on the live row with the given id.
func (a *Accessor) SoftDelete(ctx context.Context, model any, id string, now time.Time) (int64, error) {
	return a.Update(ctx, model, id, map[string]any{"deleted_at": now})
}

// Transaction runs fn with an Accessor bound to the same tenant inside one transaction.
func (a *Accessor) Transaction(ctx context.Context, fn func(tx *Accessor) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Accessor{db: tx, tenantID: a.tenantID})
	})
}
