package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halleyx/storefront-api/internal/domain/user"
)

const (
	insertUserSQL = `INSERT INTO users (id, email, password_hash, first_name, last_name, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	getUserByIDSQL = `SELECT id, email, password_hash, first_name, last_name, role, status, created_at, updated_at
		FROM users WHERE id = $1`

	getUserByEmailSQL = `SELECT id, email, password_hash, first_name, last_name, role, status, created_at, updated_at
		FROM users WHERE email = $1`

	listCustomersSQL = `SELECT id, email, password_hash, first_name, last_name, role, status, created_at, updated_at
		FROM users WHERE role = 'CUSTOMER'
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	countCustomersSQL = `SELECT count(*) FROM users WHERE role = 'CUSTOMER'`

	updateUserStatusSQL = `UPDATE users SET status = $2, updated_at = now() WHERE id = $1`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new account. A duplicate email surfaces user.ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, insertUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.Status,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GetByID returns an account by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

// GetByEmail returns an account by its unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.get(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) get(ctx context.Context, sql, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// ListCustomers returns a page of customer accounts, newest first, plus the
// total customer count.
func (r *UserRepository) ListCustomers(ctx context.Context, q user.ListQuery) ([]user.User, int, error) {
	offset := (q.Page - 1) * q.Limit

	rows, err := r.pool.Query(ctx, listCustomersSQL, q.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing customers: %w", err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("listing customers: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countCustomersSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting customers: %w", err)
	}
	return users, total, nil
}

// UpdateStatus sets an account's ACTIVE/BLOCKED status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status user.Status) error {
	tag, err := r.pool.Exec(ctx, updateUserStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating user %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
