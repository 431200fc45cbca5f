package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tenantapi/backend/internal/domain/catalog"
)

// ListProductsQuery is the query of GET /products
type ListProductsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CreateProductRequest is the body of POST /products.
// Price accepts a JSON number or a decimal string.
type CreateProductRequest struct {
	SKU   string           `json:"sku" binding:"required,notblank,max=64"`
	Name  string           `json:"name" binding:"required,notblank,max=200"`
	Unit  *string          `json:"unit" binding:"omitempty,min=1,max=32"`
	Price *decimal.Decimal `json:"price"`
}

// UpdateProductRequest is the body of PATCH /products/:id. At least one field is required.
type UpdateProductRequest struct {
	Name  *string          `json:"name" binding:"omitempty,notblank,max=200"`
	Unit  *string          `json:"unit" binding:"omitempty,min=1,max=32"`
	Price *decimal.Decimal `json:"price"`
}

// ProductResponse is the JSON shape of a product
type ProductResponse struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Unit      *string   `json:"unit"`
	Price     *string   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToProductResponse converts a product. Prices render as decimal strings.
func ToProductResponse(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		ID:        p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Unit:      p.Unit,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Price != nil {
		s := p.Price.String()
		resp.Price = &s
	}
	return resp
}

// ToProductResponses converts a list of products
func ToProductResponses(products []*catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ToProductResponse(p))
	}
	return out
}
