package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halleyx/storefront-api/internal/domain/cart"
)

const (
	// The insert-then-select pair makes lazy cart creation race-safe: two
	// concurrent first adds both land on the same row via the unique
	// customer_id constraint.
	ensureCartSQL = `INSERT INTO carts (id, customer_id) VALUES ($1, $2)
		ON CONFLICT (customer_id) DO NOTHING`

	getCartSQL = `SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	cartLinesSQL = `SELECT ci.id, p.id, p.name, p.price, p.stock_quantity, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	setCartItemQuantitySQL = `UPDATE cart_items SET quantity = $3
		WHERE cart_id = $1 AND id = $2`

	removeCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`

	removeCartProductSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the customer's cart, lazily creating it on first use.
func (r *CartRepository) GetOrCreate(ctx context.Context, customerID string) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, ensureCartSQL, uuid.New().String(), customerID); err != nil {
		return nil, fmt.Errorf("ensuring cart for customer %q: %w", customerID, err)
	}

	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartSQL, customerID).Scan(&c.ID, &c.CustomerID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting cart for customer %q: %w", customerID, err)
	}
	return &c, nil
}

// UpsertItem inserts a line or increments the existing line's quantity for
// the same product.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, uuid.New().String(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return nil
}

// Lines returns the cart's items joined with current product data.
func (r *CartRepository) Lines(ctx context.Context, cartID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, cartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("reading cart %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ItemID, &l.ProductID, &l.ProductName, &l.UnitPrice, &l.Stock, &l.Quantity)
	return l, err
}

// SetItemQuantity updates a line scoped to the given cart; a missing or
// foreign item surfaces cart.ErrItemNotFound.
func (r *CartRepository) SetItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error {
	tag, err := r.pool.Exec(ctx, setCartItemQuantitySQL, cartID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// RemoveItem deletes a line by ID within the given cart.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	tag, err := r.pool.Exec(ctx, removeCartItemSQL, cartID, itemID)
	if err != nil {
		return fmt.Errorf("removing cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// RemoveProduct deletes the line for a product; absent lines are a no-op.
func (r *CartRepository) RemoveProduct(ctx context.Context, cartID, productID string) error {
	if _, err := r.pool.Exec(ctx, removeCartProductSQL, cartID, productID); err != nil {
		return fmt.Errorf("removing product %q from cart: %w", productID, err)
	}
	return nil
}

// Clear deletes all lines, leaving the cart row intact.
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}
	return nil
}
