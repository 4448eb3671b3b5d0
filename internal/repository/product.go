package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halleyx/storefront-api/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, stock_quantity, image_url, created_at, updated_at`

	insertProductSQL = `INSERT INTO products (id, name, description, price, stock_quantity, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductByNameSQL = `SELECT ` + productColumns + ` FROM products WHERE name = $1`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock_quantity = $5, image_url = $6, updated_at = now()
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// sortColumns maps API sort fields to safe column expressions. The service
// layer has already validated the field against its whitelist; this map is
// what keeps user input out of the ORDER BY clause.
var sortColumns = map[string]string{
	product.SortByName:      "name",
	product.SortByPrice:     "price",
	product.SortByStock:     "stock_quantity",
	product.SortByCreatedAt: "created_at",
	product.SortByUpdatedAt: "updated_at",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create persists a new product. A duplicate name surfaces
// product.ErrNameTaken, backing up the service-level pre-check against races.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.ImageURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return product.ErrNameTaken
		}
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.get(ctx, getProductByIDSQL, id)
}

// GetByName returns a single product by its unique name.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*product.Product, error) {
	return r.get(ctx, getProductByNameSQL, name)
}

func (r *ProductRepository) get(ctx context.Context, sql, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product: %w", err)
	}
	return &p, nil
}

// List returns a page of the catalog per the (already validated) query, plus
// the total match count.
func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) ([]product.Product, int, error) {
	col, ok := sortColumns[q.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unmapped sort field %q", q.SortBy)
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	where := ""
	args := []any{q.Limit, (q.Page - 1) * q.Limit}
	if q.Search != "" {
		where = `WHERE name ILIKE $3 OR description ILIKE $3`
		args = append(args, "%"+q.Search+"%")
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s %s LIMIT $1 OFFSET $2`,
		productColumns, where, col, dir)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}

	countSQL := `SELECT count(*) FROM products`
	countArgs := []any{}
	if q.Search != "" {
		countSQL += ` WHERE name ILIKE $1 OR description ILIKE $1`
		countArgs = append(countArgs, "%"+q.Search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	return items, total, nil
}

// Update rewrites all mutable columns of a product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.ImageURL,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return product.ErrNameTaken
		}
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product. Cart lines referencing it go with it (FK
// cascade); order items keep their denormalized copy.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
