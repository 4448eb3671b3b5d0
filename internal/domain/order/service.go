package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/product"
)

// Service encapsulates checkout and order lifecycle logic.
type Service struct {
	orders Repository
	carts  cart.Repository
	cache  cart.SummaryCache
}

// NewService creates an order Service. cache may be nil; when set, the
// customer's cached cart summary is invalidated after checkout clears the cart.
func NewService(orders Repository, carts cart.Repository, cache cart.SummaryCache) *Service {
	return &Service{orders: orders, carts: carts, cache: cache}
}

// Checkout converts the customer's cart into a PENDING order. The snapshot
// freezes each line's product name and unit price as read inside the checkout
// transaction. Order creation, stock decrements, and cart clearing happen in
// that same transaction; any stock shortfall aborts the whole checkout.
func (s *Service) Checkout(ctx context.Context, customerID string) (*Order, error) {
	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}

	o, err := s.orders.CreateFromCart(ctx, c.ID, func(lines []cart.Line) (*Order, error) {
		return buildOrder(customerID, lines)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, customerID)
	}
	return o, nil
}

// buildOrder derives the order snapshot from cart lines the repository read
// inside the checkout transaction.
func buildOrder(customerID string, lines []cart.Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// The stock here comes from the same transaction as the decrements, so
	// this check fails before any rows are written. The conditional decrement
	// stays authoritative against writers outside the transaction.
	for _, l := range lines {
		if l.Quantity > l.Stock {
			return nil, &product.InsufficientStockError{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Requested:   l.Quantity,
				Available:   l.Stock,
			}
		}
	}

	o := &Order{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]Item, len(lines)),
	}
	for i, l := range lines {
		o.Items[i] = Item{
			ID:          uuid.New().String(),
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		}
		o.TotalAmount = o.TotalAmount.Add(o.Items[i].Subtotal())
	}
	o.TotalAmount = o.TotalAmount.Round(2)
	return o, nil
}

// ListForCustomer returns the customer's own orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListAll returns every order annotated with the owning customer. Admin only;
// the handler layer enforces the role.
func (s *Service) ListAll(ctx context.Context) ([]AdminOrder, error) {
	return s.orders.ListAll(ctx)
}

// Get returns an order when it is owned by the given customer. A foreign
// order surfaces ErrNotFound so existence of other customers' orders does not
// leak.
func (s *Service) Get(ctx context.Context, customerID, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, ErrNotFound
	}
	return o, nil
}

// UpdateStatus transitions an order's status per the lifecycle state machine.
// The persisted update re-checks the status it validated against, so a
// concurrent transition surfaces *InvalidTransitionError instead of being
// overwritten.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if err := s.orders.UpdateStatus(ctx, orderID, o.Status, next); err != nil {
		return nil, err
	}
	o.Status = next
	return o, nil
}
