// Package user defines customer and administrator accounts.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role distinguishes the two principal kinds.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// Status controls whether a customer may authenticate.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusBlocked Status = "BLOCKED"
)

// Sentinel errors for account lookups and mutations.
var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User represents a customer or administrator account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Name returns the display name used when annotating orders for admins.
func (u *User) Name() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// ListQuery selects a page of customer accounts.
type ListQuery struct {
	Page  int
	Limit int
}

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListCustomers(ctx context.Context, q ListQuery) ([]User, int, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
