package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the API router. Public routes are the auth endpoints and
// catalog reads; everything else sits behind bearer authentication with
// per-route role requirements.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/customer-login", h.customerLogin)
		r.Post("/admin-login", h.adminLogin)
		r.With(h.authenticate).Get("/me", h.me)
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate, h.requireAdmin)
			r.Post("/", h.createProduct)
			r.Patch("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(h.authenticate, h.requireCustomer)
		r.Get("/", h.getCart)
		r.Post("/add", h.addCartItem)
		r.Patch("/items/{id}", h.setCartItemQuantity)
		r.Post("/remove", h.removeCartItem)
		r.Delete("/", h.clearCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate, h.requireCustomer)
			r.Post("/", h.checkout)
			r.Get("/", h.listOwnOrders)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authenticate, h.requireAdmin)
			r.Get("/all", h.listAllOrders)
			r.Patch("/{id}/status", h.updateOrderStatus)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.authenticate, h.requireAdmin)
		r.Get("/customers", h.listCustomers)
		r.Patch("/customers/{id}/status", h.setCustomerStatus)
		r.Post("/impersonate/{customerId}", h.impersonate)
	})

	return r
}
