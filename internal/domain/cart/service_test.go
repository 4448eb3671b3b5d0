package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halleyx/storefront-api/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	cart   *Cart
	lines  []Line
	nextID int
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, customerID string) (*Cart, error) {
	if m.cart == nil {
		m.cart = &Cart{ID: "cart-1", CustomerID: customerID}
	}
	return m.cart, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, cartID, productID string, quantity int) error {
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines[i].Quantity += quantity
			return nil
		}
	}
	m.nextID++
	m.lines = append(m.lines, Line{
		ItemID:    fmt.Sprintf("item-%d", m.nextID),
		ProductID: productID,
		Quantity:  quantity,
	})
	return nil
}

func (m *mockCartRepo) Lines(_ context.Context, _ string) ([]Line, error) {
	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out, nil
}

func (m *mockCartRepo) SetItemQuantity(_ context.Context, _, itemID string, quantity int) error {
	for i := range m.lines {
		if m.lines[i].ItemID == itemID {
			m.lines[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *mockCartRepo) RemoveItem(_ context.Context, _, itemID string) error {
	for i := range m.lines {
		if m.lines[i].ItemID == itemID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *mockCartRepo) RemoveProduct(_ context.Context, _, productID string) error {
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.lines = nil
	return nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func newProductRepo(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) GetByName(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}
func (m *mockProductRepo) List(_ context.Context, _ product.ListQuery) ([]product.Product, int, error) {
	return nil, 0, nil
}
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Delete(_ context.Context, _ string) error           { return nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockSummaryCache struct {
	stored      map[string]*Summary
	sets        int
	invalidates int
}

func newSummaryCache() *mockSummaryCache {
	return &mockSummaryCache{stored: make(map[string]*Summary)}
}

func (m *mockSummaryCache) Get(_ context.Context, customerID string) (*Summary, error) {
	s, ok := m.stored[customerID]
	if !ok {
		return nil, fmt.Errorf("miss")
	}
	return s, nil
}

func (m *mockSummaryCache) Set(_ context.Context, customerID string, s *Summary) error {
	m.sets++
	m.stored[customerID] = s
	return nil
}

func (m *mockSummaryCache) Invalidate(_ context.Context, customerID string) error {
	m.invalidates++
	delete(m.stored, customerID)
	return nil
}

// versionedSummaryCache keys entries by customer and catalog version, the way
// the Redis-backed cache does. Bumping the version orphans every entry.
type versionedSummaryCache struct {
	version int
	entries map[string]*Summary
}

func newVersionedSummaryCache() *versionedSummaryCache {
	return &versionedSummaryCache{entries: make(map[string]*Summary)}
}

func (c *versionedSummaryCache) key(customerID string) string {
	return fmt.Sprintf("v%d:%s", c.version, customerID)
}

func (c *versionedSummaryCache) Get(_ context.Context, customerID string) (*Summary, error) {
	s, ok := c.entries[c.key(customerID)]
	if !ok {
		return nil, fmt.Errorf("miss")
	}
	return s, nil
}

func (c *versionedSummaryCache) Set(_ context.Context, customerID string, s *Summary) error {
	c.entries[c.key(customerID)] = s
	return nil
}

func (c *versionedSummaryCache) Invalidate(_ context.Context, customerID string) error {
	delete(c.entries, c.key(customerID))
	return nil
}

func (c *versionedSummaryCache) InvalidateCatalog(_ context.Context) error {
	c.version++
	return nil
}

// --- Helpers ---

func widget(stock int) *product.Product {
	return &product.Product{
		ID:            "p1",
		Name:          "Widget",
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
	}
}

// --- Tests ---

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo(widget(10)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), "c1", "p1", -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo(), nil)

	_, err := svc.AddItem(context.Background(), "c1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_MergesExistingLine(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)

	sum, err := svc.AddItem(context.Background(), "c1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, sum.Items, 1)
	assert.Equal(t, 5, sum.Items[0].Quantity)
}

func TestAddItem_ExceedsStock(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo(widget(5)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 6)

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
}

func TestAddItem_ExceedsStockAcrossAdds(t *testing.T) {
	// The soft check counts the existing line, not just the new quantity.
	svc := NewService(newCartRepo(), newProductRepo(widget(5)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 3)
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "c1", "p1", 3)

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
}

func TestSetQuantity_Update(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), nil)

	sum, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)
	itemID := sum.Items[0].ItemID

	sum, err = svc.SetQuantity(context.Background(), "c1", itemID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Items[0].Quantity)
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), nil)

	sum, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)
	itemID := sum.Items[0].ItemID

	sum, err = svc.SetQuantity(context.Background(), "c1", itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
}

func TestSetQuantity_Negative(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo(widget(10)), nil)

	_, err := svc.SetQuantity(context.Background(), "c1", "item-1", -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSetQuantity_UnknownItem(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo(widget(10)), nil)

	_, err := svc.SetQuantity(context.Background(), "c1", "missing", 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveProduct_Idempotent(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)

	sum, err := svc.RemoveProduct(context.Background(), "c1", "p1")
	require.NoError(t, err)
	assert.Empty(t, sum.Items)

	// Removing again is not an error.
	sum, err = svc.RemoveProduct(context.Background(), "c1", "p1")
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
}

func TestClear(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "c1"))

	sum, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, sum.Items)
	assert.True(t, decimal.Zero.Equal(sum.Total))
}

func TestGetSummary_Totals(t *testing.T) {
	repo := newCartRepo()
	prods := newProductRepo(
		widget(10),
		&product.Product{ID: "p2", Name: "Gadget", Price: decimal.RequireFromString("4.50"), StockQuantity: 10},
	)
	svc := NewService(repo, prods, nil)

	_, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "c1", "p2", 3)
	require.NoError(t, err)

	// The mock store keeps no price data; inject joined product data the way
	// the SQL join would.
	for i := range repo.lines {
		switch repo.lines[i].ProductID {
		case "p1":
			repo.lines[i].ProductName = "Widget"
			repo.lines[i].UnitPrice = decimal.RequireFromString("10.00")
		case "p2":
			repo.lines[i].ProductName = "Gadget"
			repo.lines[i].UnitPrice = decimal.RequireFromString("4.50")
		}
	}

	sum, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, sum.Items, 2)
	assert.True(t, decimal.RequireFromString("20.00").Equal(sum.Items[0].Subtotal))
	assert.True(t, decimal.RequireFromString("13.50").Equal(sum.Items[1].Subtotal))
	assert.True(t, decimal.RequireFromString("33.50").Equal(sum.Total))
}

func TestGetSummary_CacheHit(t *testing.T) {
	cache := newSummaryCache()
	cached := &Summary{Total: decimal.RequireFromString("42.00")}
	cache.stored["c1"] = cached

	svc := NewService(newCartRepo(), newProductRepo(), cache)

	sum, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.Same(t, cached, sum)
}

func TestMutationsInvalidateCache(t *testing.T) {
	cache := newSummaryCache()
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(widget(10)), cache)

	sum, err := svc.AddItem(context.Background(), "c1", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidates)
	assert.Equal(t, 1, cache.sets, "fresh summary is written back")

	_, err = svc.SetQuantity(context.Background(), "c1", sum.Items[0].ItemID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidates)

	require.NoError(t, svc.Clear(context.Background(), "c1"))
	assert.Equal(t, 3, cache.invalidates)
}

func TestGetSummary_PriceChangeVisibleWithCache(t *testing.T) {
	vc := newVersionedSummaryCache()
	repo := newCartRepo()
	prods := newProductRepo(widget(10))
	svc := NewService(repo, prods, vc)

	repo.lines = []Line{{
		ItemID:      "item-1",
		ProductID:   "p1",
		ProductName: "Widget",
		UnitPrice:   decimal.RequireFromString("10.00"),
		Stock:       10,
		Quantity:    2,
	}}

	first, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(first.Total))

	// The second read is served from the cache.
	second, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	// An admin price change must show on the next read even though the cart
	// itself did not change.
	newPrice := decimal.RequireFromString("25.00")
	catalog := product.NewService(prods, vc)
	_, err = catalog.Update(context.Background(), "p1", product.Patch{Price: &newPrice})
	require.NoError(t, err)
	repo.lines[0].UnitPrice = newPrice

	sum, err := svc.GetSummary(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50.00").Equal(sum.Total))
	assert.True(t, newPrice.Equal(sum.Items[0].UnitPrice))
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	assert.Empty(t, sum.Items)
	assert.True(t, decimal.Zero.Equal(sum.Total))
}
