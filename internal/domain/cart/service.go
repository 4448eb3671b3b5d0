package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/halleyx/storefront-api/internal/domain/product"
)

// Service implements cart mutations and summary computation. Stock is enforced
// softly here at add time; checkout re-validates inside its transaction and is
// authoritative.
type Service struct {
	carts    Repository
	products product.Repository
	cache    SummaryCache
}

// NewService creates a cart Service. cache may be nil.
func NewService(carts Repository, products product.Repository, cache SummaryCache) *Service {
	return &Service{carts: carts, products: products, cache: cache}
}

// AddItem adds quantity units of a product to the customer's cart, creating
// the cart on first use and merging with an existing line for the same
// product. It returns the updated summary.
func (s *Service) AddItem(ctx context.Context, customerID, productID string, quantity int) (*Summary, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}

	// Soft stock check: existing line quantity plus the requested amount must
	// fit the current stock.
	lines, err := s.carts.Lines(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	have := 0
	for _, l := range lines {
		if l.ProductID == productID {
			have = l.Quantity
			break
		}
	}
	if have+quantity > p.StockQuantity {
		return nil, &product.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   have + quantity,
			Available:   p.StockQuantity,
		}
	}

	if err := s.carts.UpsertItem(ctx, c.ID, productID, quantity); err != nil {
		return nil, errors.Wrap(err, "add item")
	}
	s.invalidate(ctx, customerID)

	return s.summarize(ctx, c.ID, customerID)
}

// SetQuantity updates a line in the customer's cart. Quantity zero removes the
// line; negative quantities fail validation. A line in another customer's cart
// surfaces ErrItemNotFound so nothing about other carts leaks.
func (s *Service) SetQuantity(ctx context.Context, customerID, itemID string, quantity int) (*Summary, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}

	if quantity == 0 {
		err = s.carts.RemoveItem(ctx, c.ID, itemID)
	} else {
		err = s.carts.SetItemQuantity(ctx, c.ID, itemID, quantity)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, customerID)

	return s.summarize(ctx, c.ID, customerID)
}

// RemoveProduct removes the line for a product. Removing an absent product is
// a no-op success.
func (s *Service) RemoveProduct(ctx context.Context, customerID, productID string) (*Summary, error) {
	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}
	if err := s.carts.RemoveProduct(ctx, c.ID, productID); err != nil {
		return nil, errors.Wrap(err, "remove product")
	}
	s.invalidate(ctx, customerID)

	return s.summarize(ctx, c.ID, customerID)
}

// Clear empties the customer's cart.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return errors.Wrap(err, "resolve cart")
	}
	if err := s.carts.Clear(ctx, c.ID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	s.invalidate(ctx, customerID)
	return nil
}

// GetSummary returns the customer's cart with per-line subtotals and a total
// recomputed from current product prices.
func (s *Service) GetSummary(ctx context.Context, customerID string) (*Summary, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, customerID); err == nil && cached != nil {
			return cached, nil
		}
	}

	c, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve cart")
	}
	return s.summarize(ctx, c.ID, customerID)
}

func (s *Service) summarize(ctx context.Context, cartID, customerID string) (*Summary, error) {
	lines, err := s.carts.Lines(ctx, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}

	sum := Summarize(lines)

	if s.cache != nil {
		if err := s.cache.Set(ctx, customerID, sum); err != nil {
			zctx.From(ctx).Debug("cart cache set failed", zap.Error(err))
		}
	}
	return sum, nil
}

// Summarize converts joined cart lines into a summary with a recomputed total.
func Summarize(lines []Line) *Summary {
	sum := &Summary{
		Items: make([]SummaryItem, len(lines)),
		Total: decimal.Zero,
	}
	for i, l := range lines {
		sub := l.Subtotal()
		sum.Items[i] = SummaryItem{
			ItemID:      l.ItemID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    sub,
		}
		sum.Total = sum.Total.Add(sub)
	}
	return sum
}

func (s *Service) invalidate(ctx context.Context, customerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, customerID); err != nil {
		zctx.From(ctx).Debug("cart cache invalidate failed", zap.Error(err))
	}
}
