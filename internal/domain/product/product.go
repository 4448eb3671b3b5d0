// Package product defines the catalog entity and its listing queries.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound  = errors.New("product not found")
	ErrNameTaken = errors.New("product name already exists")
)

// InsufficientStockError indicates a requested quantity exceeds the product's
// available stock. It names the offending product so carts and checkout can
// report which line failed.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sort fields accepted by ListQuery. Anything else fails validation instead
// of silently falling back to a default.
const (
	SortByName      = "name"
	SortByPrice     = "price"
	SortByStock     = "stockQuantity"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
)

// ListQuery selects a page of the catalog.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
}

// CacheInvalidator drops caches derived from catalog data. The catalog
// service calls it after any write that can change a price, name, or
// availability already baked into a cached cart summary.
type CacheInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
