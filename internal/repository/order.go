package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/order"
	"github.com/halleyx/storefront-api/internal/domain/product"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// Conditional decrement: zero rows affected means the stock ran out under
	// us, which aborts the surrounding transaction.
	decrementStockSQL = `UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`

	getOrderSQL = `SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersByCustomerSQL = `SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders WHERE customer_id = $1
		ORDER BY created_at DESC`

	listAllOrdersSQL = `SELECT o.id, o.customer_id, o.total_amount, o.status, o.created_at, o.updated_at,
			u.first_name, u.last_name, u.email
		FROM orders o
		JOIN users u ON u.id = o.customer_id
		ORDER BY o.created_at DESC`

	orderItemsSQL = `SELECT id, order_id, COALESCE(product_id, ''), product_name, unit_price, quantity
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY id`

	// Compare-and-set: zero rows affected means the status moved under us and
	// the caller's validated transition no longer applies.
	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`

	productStockSQL = `SELECT stock_quantity FROM products WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart reads the cart's lines, persists the order built from them
// along with its item snapshot, decrements each product's stock with a
// conditional update, and clears the source cart — all in one transaction.
// Reading the lines inside the transaction keeps the snapshot and the
// decrements on the same catalog state. A failed decrement rolls everything
// back and returns *product.InsufficientStockError for the offending line, so
// two concurrent checkouts can never both claim the last unit.
func (r *OrderRepository) CreateFromCart(ctx context.Context, cartID string, build func(lines []cart.Line) (*order.Order, error)) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin checkout tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, cartLinesSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("reading cart %q: %w", cartID, err)
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("reading cart %q: %w", cartID, err)
	}

	o, err := build(lines)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, insertOrderSQL, o.ID, o.CustomerID, o.TotalAmount, o.Status).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting order item for %q: %w", item.ProductID, err)
		}

		tag, err := tx.Exec(ctx, decrementStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrementing stock for %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			stockErr := &product.InsufficientStockError{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Requested:   item.Quantity,
			}
			// Zero rows does not abort the tx, so the current stock is still
			// readable for the error message.
			_ = tx.QueryRow(ctx, productStockSQL, item.ProductID).Scan(&stockErr.Available)
			return nil, stockErr
		}
	}

	if _, err := tx.Exec(ctx, clearCartSQL, cartID); err != nil {
		return nil, fmt.Errorf("clearing cart %q: %w", cartID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout tx: %w", err)
	}
	return o, nil
}

// GetByID returns an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first, with items.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAll returns every order annotated with the owning customer, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.AdminOrder, error) {
	rows, err := r.pool.Query(ctx, listAllOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}

	annotated, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.AdminOrder, error) {
		var (
			ao          order.AdminOrder
			first, last string
		)
		err := row.Scan(
			&ao.ID, &ao.CustomerID, &ao.TotalAmount, &ao.Status, &ao.CreatedAt, &ao.UpdatedAt,
			&first, &last, &ao.CustomerEmail,
		)
		ao.CustomerName = joinName(first, last)
		return ao, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}

	ids := make([]string, len(annotated))
	for i := range annotated {
		ids[i] = annotated[i].ID
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range annotated {
		annotated[i].Items = items[annotated[i].ID]
	}
	return annotated, nil
}

// UpdateStatus persists a transition the service validated, but only while
// the order still holds the expected from status. Two concurrent requests
// that both validated against the same snapshot cannot stack their updates;
// the loser gets *order.InvalidTransitionError with the status it lost to.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, to, from)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx, getOrderStatusSQL, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("updating order %q status: %w", id, err)
		}
		return &order.InvalidTransitionError{From: order.Status(current), To: to}
	}
	return nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]order.Item, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, orderItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}

	byOrder := make(map[string][]order.Item, len(orderIDs))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	return byOrder, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
