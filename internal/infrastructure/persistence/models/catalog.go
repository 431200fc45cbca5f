package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tenantapi/backend/internal/domain/catalog"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	TenantID  string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_tenant_sku,priority:1"`
	SKU       string           `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_products_tenant_sku,priority:2"`
	Name      string           `gorm:"type:varchar(200);not null"`
	Unit      *string          `gorm:"type:varchar(32)"`
	Price     *decimal.Decimal `gorm:"type:decimal(18,4)"`
	DeletedAt *time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// SetTenantID implements TenantOwned.
func (m *ProductModel) SetTenantID(tenantID string) {
	m.TenantID = tenantID
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:        m.ID,
		TenantID:  m.TenantID,
		SKU:       m.SKU,
		Name:      m.Name,
		Unit:      m.Unit,
		Price:     m.Price,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		DeletedAt: m.DeletedAt,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		BaseModel: BaseModel{ID: p.ID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt},
		TenantID:  p.TenantID,
		SKU:       p.SKU,
		Name:      p.Name,
		Unit:      p.Unit,
		Price:     p.Price,
		DeletedAt: p.DeletedAt,
	}
}
