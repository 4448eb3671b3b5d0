package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	current *cart.Cart
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{current: &cart.Cart{ID: "cart-1", CustomerID: "c1"}}
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, customerID string) (*cart.Cart, error) {
	m.current.CustomerID = customerID
	return m.current, nil
}

func (m *mockCartRepo) Lines(_ context.Context, _ string) ([]cart.Line, error) { return nil, nil }

func (m *mockCartRepo) UpsertItem(_ context.Context, _, _ string, _ int) error { return nil }
func (m *mockCartRepo) SetItemQuantity(_ context.Context, _, _ string, _ int) error {
	return nil
}
func (m *mockCartRepo) RemoveItem(_ context.Context, _, _ string) error    { return nil }
func (m *mockCartRepo) RemoveProduct(_ context.Context, _, _ string) error { return nil }
func (m *mockCartRepo) Clear(_ context.Context, _ string) error            { return nil }

// mockOrderRepo supplies the cart lines its transactional read would produce
// through the lines field. getStale, when set, is what GetByID hands out, so
// tests can model a snapshot overtaken by a concurrent update.
type mockOrderRepo struct {
	byID      map[string]*Order
	lines     []cart.Line
	created   *Order
	createErr error
	getStale  *Order
}

func newOrderRepo(orders ...*Order) *mockOrderRepo {
	byID := make(map[string]*Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	return &mockOrderRepo{byID: byID}
}

func (m *mockOrderRepo) CreateFromCart(_ context.Context, _ string, build func([]cart.Line) (*Order, error)) (*Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	o, err := build(m.lines)
	if err != nil {
		return nil, err
	}
	m.created = o
	m.byID[o.ID] = o
	return o, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.getStale != nil {
		return m.getStale, nil
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]Order, error) {
	var out []Order
	for _, o := range m.byID {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]AdminOrder, error) {
	var out []AdminOrder
	for _, o := range m.byID {
		out = append(out, AdminOrder{Order: *o})
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return &InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	return nil
}

type mockSummaryCache struct {
	invalidated []string
}

func (m *mockSummaryCache) Get(_ context.Context, _ string) (*cart.Summary, error) {
	return nil, nil
}
func (m *mockSummaryCache) Set(_ context.Context, _ string, _ *cart.Summary) error { return nil }
func (m *mockSummaryCache) Invalidate(_ context.Context, customerID string) error {
	m.invalidated = append(m.invalidated, customerID)
	return nil
}

// --- Helpers ---

func line(productID, name, price string, qty, stock int) cart.Line {
	return cart.Line{
		ItemID:      "item-" + productID,
		ProductID:   productID,
		ProductName: name,
		UnitPrice:   decimal.RequireFromString(price),
		Stock:       stock,
		Quantity:    qty,
	}
}

// --- Tests ---

func TestCheckout_EmptyCart(t *testing.T) {
	svc := NewService(newOrderRepo(), newCartRepo(), nil)

	_, err := svc.Checkout(context.Background(), "c1")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_SnapshotAndTotal(t *testing.T) {
	orders := newOrderRepo()
	orders.lines = []cart.Line{
		line("p1", "Widget", "10.00", 2, 5),
		line("p2", "Gadget", "4.50", 3, 10),
	}
	svc := NewService(orders, newCartRepo(), nil)

	o, err := svc.Checkout(context.Background(), "c1")

	require.NoError(t, err)
	assert.Equal(t, "c1", o.CustomerID)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("33.50").Equal(o.TotalAmount))

	require.Len(t, o.Items, 2)
	assert.Equal(t, "Widget", o.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Items[0].UnitPrice))
	assert.Equal(t, 2, o.Items[0].Quantity)

	require.NotNil(t, orders.created)
	assert.Equal(t, o.ID, orders.created.ID)
}

func TestCheckout_SnapshotFromTransactionalRead(t *testing.T) {
	// The snapshot is built from the lines the repository reads inside its
	// transaction, so a price change right before checkout lands in the order.
	orders := newOrderRepo()
	orders.lines = []cart.Line{line("p1", "Widget", "12.00", 2, 5)}
	svc := NewService(orders, newCartRepo(), nil)

	o, err := svc.Checkout(context.Background(), "c1")

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.00").Equal(o.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("24.00").Equal(o.TotalAmount))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	orders := newOrderRepo()
	orders.lines = []cart.Line{line("p1", "Widget", "10.00", 6, 5)}
	svc := NewService(orders, newCartRepo(), nil)

	_, err := svc.Checkout(context.Background(), "c1")

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Nil(t, orders.created, "no order is persisted")
}

func TestCheckout_RepoStockConflict(t *testing.T) {
	// The repository detected a concurrent stock change inside its transaction.
	orders := newOrderRepo()
	orders.createErr = &product.InsufficientStockError{ProductID: "p1", ProductName: "Widget", Requested: 2, Available: 1}
	svc := NewService(orders, newCartRepo(), nil)

	_, err := svc.Checkout(context.Background(), "c1")

	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)
}

func TestCheckout_InvalidatesCartCache(t *testing.T) {
	orders := newOrderRepo()
	orders.lines = []cart.Line{line("p1", "Widget", "10.00", 1, 5)}
	cache := &mockSummaryCache{}
	svc := NewService(orders, newCartRepo(), cache)

	_, err := svc.Checkout(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, cache.invalidated)
}

func TestGet_OwnOrder(t *testing.T) {
	o := &Order{ID: "o1", CustomerID: "c1", Status: StatusPending}
	svc := NewService(newOrderRepo(o), newCartRepo(), nil)

	got, err := svc.Get(context.Background(), "c1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
}

func TestGet_ForeignOrderHidden(t *testing.T) {
	o := &Order{ID: "o1", CustomerID: "c1", Status: StatusPending}
	svc := NewService(newOrderRepo(o), newCartRepo(), nil)

	_, err := svc.Get(context.Background(), "c2", "o1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_Allowed(t *testing.T) {
	o := &Order{ID: "o1", CustomerID: "c1", Status: StatusPending}
	repo := newOrderRepo(o)
	svc := NewService(repo, newCartRepo(), nil)

	got, err := svc.UpdateStatus(context.Background(), "o1", StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.Status)

	got, err = svc.UpdateStatus(context.Background(), "o1", StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	o := &Order{ID: "o1", CustomerID: "c1", Status: StatusCancelled}
	svc := NewService(newOrderRepo(o), newCartRepo(), nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusShipped)

	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusCancelled, trErr.From)
	assert.Equal(t, StatusShipped, trErr.To)
}

func TestUpdateStatus_ConcurrentTransitionLoses(t *testing.T) {
	// Another request moved the order to SHIPPED after this one read PENDING.
	// The compare-and-set in the repository rejects the stale transition.
	o := &Order{ID: "o1", CustomerID: "c1", Status: StatusShipped}
	repo := newOrderRepo(o)
	repo.getStale = &Order{ID: "o1", CustomerID: "c1", Status: StatusPending}
	svc := NewService(repo, newCartRepo(), nil)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusCancelled)

	var trErr *InvalidTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusShipped, trErr.From)
	assert.Equal(t, StatusCancelled, trErr.To)
	assert.Equal(t, StatusShipped, o.Status, "stored status is untouched")
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc := NewService(newOrderRepo(), newCartRepo(), nil)

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}
