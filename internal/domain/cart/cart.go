// Package cart maintains the per-customer shopping cart.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart operations.
var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// Cart is the mutable pre-purchase collection for one customer. It is created
// lazily on first add and survives checkout (cleared, not deleted).
type Cart struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time
}

// Line is a cart item joined with its current product data. Prices are always
// the product's current price; checkout is what freezes them.
type Line struct {
	ItemID      string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Stock       int
	Quantity    int
}

// Subtotal returns quantity times the current unit price.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the cart as presented to the customer: lines with subtotals and
// a recomputed total.
type Summary struct {
	Items []SummaryItem
	Total decimal.Decimal
}

// SummaryItem is one line of a cart summary.
type SummaryItem struct {
	ItemID      string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// Repository defines persistence operations for carts. All item operations are
// scoped to a cart ID, so ownership is established once per request when the
// caller's cart is resolved.
type Repository interface {
	// GetOrCreate returns the customer's cart, creating an empty one on first use.
	GetOrCreate(ctx context.Context, customerID string) (*Cart, error)
	// UpsertItem inserts a line or increments the quantity of an existing line
	// for the same product.
	UpsertItem(ctx context.Context, cartID, productID string, quantity int) error
	// Lines returns the cart's items joined with current product data.
	Lines(ctx context.Context, cartID string) ([]Line, error)
	// SetItemQuantity updates a line in place. It returns ErrItemNotFound when
	// the item does not belong to the given cart.
	SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	// RemoveItem deletes a line by ID. Returns ErrItemNotFound when absent.
	RemoveItem(ctx context.Context, cartID, itemID string) error
	// RemoveProduct deletes the line holding the given product, if any.
	// Removing an absent product is a no-op.
	RemoveProduct(ctx context.Context, cartID, productID string) error
	// Clear deletes all lines, leaving the cart row intact.
	Clear(ctx context.Context, cartID string) error
}

// SummaryCache caches computed cart summaries per customer. Implementations
// must tolerate misses; the cart service treats the cache as best-effort.
type SummaryCache interface {
	Get(ctx context.Context, customerID string) (*Summary, error)
	Set(ctx context.Context, customerID string, s *Summary) error
	Invalidate(ctx context.Context, customerID string) error
}
