package catalog

import "github.com/shopspring/decimal"

// List limits for products
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// CreateProductInput contains the fields of a new product
type CreateProductInput struct {
	SKU   string
	Name  string
	Unit  *string
	Price *decimal.Decimal
}
