// Package order implements checkout and the order lifecycle.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/halleyx/storefront-api/internal/domain/cart"
)

// Sentinel errors for order operations.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// Order is an immutable record of a completed purchase. Item names and prices
// are copied from the catalog at checkout time and never re-derived.
type Order struct {
	ID          string
	CustomerID  string
	Items       []Item
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a single order line with denormalized product data.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Subtotal returns quantity times the frozen unit price.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AdminOrder is an order annotated with the owning customer for admin listings.
type AdminOrder struct {
	Order
	CustomerName  string
	CustomerEmail string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateFromCart reads the cart's lines, persists the order that build
	// derives from them, decrements each product's stock, and clears the
	// cart, all in one transaction. The lines are read inside that
	// transaction, so the snapshot and the decrements see the same catalog
	// state. When any decrement would drive stock negative it returns
	// *product.InsufficientStockError and no effect is applied.
	CreateFromCart(ctx context.Context, cartID string, build func(lines []cart.Line) (*Order, error)) (*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListAll(ctx context.Context) ([]AdminOrder, error)
	// UpdateStatus persists a transition only while the order still holds the
	// from status. A lost race surfaces *InvalidTransitionError with the
	// status actually found.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
}
