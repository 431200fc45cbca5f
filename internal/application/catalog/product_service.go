package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tenantapi/backend/internal/domain/catalog"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// EntityProduct is the audit entity name for products
const EntityProduct = "product"

// ProductService handles product operations for an authenticated actor.
// Every call is scoped to the actor's tenant.
type ProductService struct {
	products catalog.ProductRepositoryFactory
	audit    shared.AuditSink
	logger   *zap.Logger
	now      func() time.Time
}

// NewProductService creates a new ProductService
func NewProductService(products catalog.ProductRepositoryFactory, audit shared.AuditSink, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		audit:    audit,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns the newest live products of the actor's tenant.
// The limit is clamped to [1, MaxListLimit]; zero means DefaultListLimit.
func (s *ProductService) List(ctx context.Context, actor identity.Identity, limit int) ([]*catalog.Product, error) {
	repo, err := s.products.ForTenant(actor.TenantID)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return repo.List(ctx, limit)
}

// Create stores a new product. A SKU already used in the tenant, including
// by a soft-deleted product, returns shared.ErrDuplicateKey.
func (s *ProductService) Create(ctx context.Context, actor identity.Identity, input CreateProductInput) (*catalog.Product, error) {
	repo, err := s.products.ForTenant(actor.TenantID)
	if err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(input.SKU, input.Name, input.Unit, input.Price)
	if err != nil {
		return nil, err
	}
	if err := repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.record(ctx, actor, shared.AuditProductCreate, product.ID, map[string]any{"sku": product.SKU})
	return product, nil
}

// Update applies a partial update to a live product of the tenant
func (s *ProductService) Update(ctx context.Context, actor identity.Identity, id string, update catalog.ProductUpdate) (*catalog.Product, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	repo, err := s.products.ForTenant(actor.TenantID)
	if err != nil {
		return nil, err
	}

	product, err := repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, shared.AuditProductUpdate, product.ID, update.AuditMeta())
	return product, nil
}

// Delete soft-deletes a live product of the tenant
func (s *ProductService) Delete(ctx context.Context, actor identity.Identity, id string) error {
	repo, err := s.products.ForTenant(actor.TenantID)
	if err != nil {
		return err
	}
	if err := repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}

	s.record(ctx, actor, shared.AuditProductDelete, id, nil)
	return nil
}

// record writes an audit entry. The mutation has already committed, so a
// failed write is logged and not returned.
func (s *ProductService) record(ctx context.Context, actor identity.Identity, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditEntry{
		ID:        uuid.NewString(),
		TenantID:  actor.TenantID,
		ActorID:   actor.UserID,
		Action:    action,
		Entity:    EntityProduct,
		EntityID:  entityID,
		Meta:      meta,
		CreatedAt: s.now(),
	}
	if err := s.audit.Write(ctx, entry); err != nil {
		logger.Enrich(ctx, s.logger).Error("Audit write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
