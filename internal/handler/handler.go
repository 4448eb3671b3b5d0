// Package handler exposes the HTTP/JSON API: auth, catalog, cart, orders,
// and the admin surface.
package handler

import (
	"context"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/order"
	"github.com/halleyx/storefront-api/internal/domain/product"
	"github.com/halleyx/storefront-api/internal/domain/user"
)

// AuthService is the slice of the auth domain the handlers need.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*user.User, string, error)
	Login(ctx context.Context, email, password string, role user.Role) (*user.User, string, error)
	Impersonate(ctx context.Context, admin auth.Identity, customerID string) (*user.User, string, error)
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// ProductService is the slice of the catalog domain the handlers need.
type ProductService interface {
	Create(ctx context.Context, in product.CreateInput) (*product.Product, error)
	List(ctx context.Context, q product.ListQuery) (*product.ListResult, error)
	Get(ctx context.Context, id string) (*product.Product, error)
	Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

// CartService is the slice of the cart domain the handlers need.
type CartService interface {
	AddItem(ctx context.Context, customerID, productID string, quantity int) (*cart.Summary, error)
	SetQuantity(ctx context.Context, customerID, itemID string, quantity int) (*cart.Summary, error)
	RemoveProduct(ctx context.Context, customerID, productID string) (*cart.Summary, error)
	Clear(ctx context.Context, customerID string) error
	GetSummary(ctx context.Context, customerID string) (*cart.Summary, error)
}

// OrderService is the slice of the order domain the handlers need.
type OrderService interface {
	Checkout(ctx context.Context, customerID string) (*order.Order, error)
	ListForCustomer(ctx context.Context, customerID string) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.AdminOrder, error)
	UpdateStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error)
}

// Handler holds the domain services behind the HTTP surface.
type Handler struct {
	auth     AuthService
	products ProductService
	carts    CartService
	orders   OrderService
	users    user.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	auth AuthService,
	products ProductService,
	carts CartService,
	orders OrderService,
	users user.Repository,
) *Handler {
	return &Handler{
		auth:     auth,
		products: products,
		carts:    carts,
		orders:   orders,
		users:    users,
	}
}
