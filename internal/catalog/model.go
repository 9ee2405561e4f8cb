package catalog

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Product is a sellable item. CurrentStock is maintained by the stock ledger only.
type Product struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	CategoryID   int64        `json:"category_id"`
	CategoryName string       `json:"category"`
	SupplierName string       `json:"supplier_name"`
	Unit         string       `json:"unit"`
	Price        shared.Money `json:"price"`
	MinStock     int64        `json:"min_stock"`
	CurrentStock int64        `json:"current_stock"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// LowStock reports whether the product sits at or below its reorder level but is not sold out.
func (p Product) LowStock() bool {
	return p.CurrentStock > 0 && p.CurrentStock <= p.MinStock
}

// Category groups products.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategorySummary is a category with its active product count.
type CategorySummary struct {
	Category
	ActiveProducts int64 `json:"active_products"`
}

// ProductInput is the writable part of a product. Category is resolved by
// CategoryID when set, otherwise by Category name, creating it if missing.
// InitialStock is honoured on create only.
type ProductInput struct {
	Name         string       `json:"name" validate:"required,max=120"`
	CategoryID   int64        `json:"category_id" validate:"gte=0"`
	Category     string       `json:"category" validate:"required_without=CategoryID,max=80"`
	SupplierName string       `json:"supplier_name" validate:"max=120"`
	Unit         string       `json:"unit" validate:"required,max=20"`
	Price        shared.Money `json:"price" validate:"gte=0"`
	MinStock     int64        `json:"min_stock" validate:"gte=0"`
	InitialStock int64        `json:"initial_stock" validate:"gte=0"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search     string
	CategoryID int64
	ActiveOnly bool
}

var (
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = fmt.Errorf("catalog: product not found: %w", httpx.ErrNotFound)
	// ErrCategoryNotFound indicates an unknown category id.
	ErrCategoryNotFound = fmt.Errorf("catalog: category not found: %w", httpx.ErrValidation)
	// ErrDuplicateProduct indicates another product has the same name and supplier.
	ErrDuplicateProduct = fmt.Errorf("catalog: a product with this name and supplier already exists: %w", httpx.ErrConflict)
	// ErrProductInUse indicates ledger or sale rows still reference the product.
	ErrProductInUse = fmt.Errorf("catalog: product has stock or sales history, deactivate it instead: %w", httpx.ErrConflict)
)
