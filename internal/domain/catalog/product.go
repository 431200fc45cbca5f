// Package catalog holds tenant-owned products.
package catalog

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tenantapi/backend/internal/domain/shared"
)

// Field bounds for products.
const (
	MaxSKULength  = 64
	MaxNameLength = 200
	MaxUnitLength = 32
)

// Product is a tenant-scoped catalog entry. Deleting a product only sets
// DeletedAt; rows are hard-deleted later by maintenance.
type Product struct {
	ID        string
	TenantID  string
	SKU       string
	Name      string
	Unit      *string
	Price     *decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewProduct validates input and creates a product with a fresh id.
// The tenant is stamped later by the tenant-bound repository.
func NewProduct(sku, name string, unit *string, price *decimal.Decimal) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if unit != nil {
		if err := validateUnit(*unit); err != nil {
			return nil, err
		}
	}
	if price != nil {
		if err := validatePrice(*price); err != nil {
			return nil, err
		}
	}

	return &Product{
		ID:    uuid.NewString(),
		SKU:   sku,
		Name:  name,
		Unit:  unit,
		Price: price,
	}, nil
}

// ProductUpdate is a partial update. Nil fields are left untouched.
type ProductUpdate struct {
	Name  *string
	Unit  *string
	Price *decimal.Decimal
}

// IsEmpty reports whether no field is set.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Unit == nil && u.Price == nil
}

// Validate checks bounds and that at least one field is present.
func (u ProductUpdate) Validate() error {
	if u.IsEmpty() {
		return shared.ErrInvalidInput.WithMessage("no fields to update")
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return err
		}
	}
	if u.Unit != nil {
		if err := validateUnit(*u.Unit); err != nil {
			return err
		}
	}
	if u.Price != nil {
		return validatePrice(*u.Price)
	}
	return nil
}

// Columns maps the set fields to storage columns.
func (u ProductUpdate) Columns() map[string]any {
	cols := make(map[string]any, 3)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Unit != nil {
		cols["unit"] = *u.Unit
	}
	if u.Price != nil {
		cols["price"] = *u.Price
	}
	return cols
}

// AuditMeta is the update body as recorded in the audit trail.
func (u ProductUpdate) AuditMeta() map[string]any {
	meta := make(map[string]any, 3)
	if u.Name != nil {
		meta["name"] = *u.Name
	}
	if u.Unit != nil {
		meta["unit"] = *u.Unit
	}
	if u.Price != nil {
		meta["price"] = u.Price.String()
	}
	return meta
}

func validateSKU(sku string) error {
	n := utf8.RuneCountInString(sku)
	if n == 0 || strings.TrimSpace(sku) == "" {
		return shared.ErrInvalidInput.WithMessage("sku cannot be empty")
	}
	if n > MaxSKULength {
		return shared.ErrInvalidInput.WithMessage("sku cannot exceed 64 characters")
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return shared.ErrInvalidInput.WithMessage("name cannot be empty")
	}
	if n > MaxNameLength {
		return shared.ErrInvalidInput.WithMessage("name cannot exceed 200 characters")
	}
	return nil
}

func validateUnit(unit string) error {
	n := utf8.RuneCountInString(unit)
	if n == 0 {
		return shared.ErrInvalidInput.WithMessage("unit cannot be empty")
	}
	if n > MaxUnitLength {
		return shared.ErrInvalidInput.WithMessage("unit cannot exceed 32 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("price cannot be negative")
	}
	return nil
}
