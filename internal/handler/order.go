package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/order"
)

type orderItemJSON struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId,omitempty"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type orderJSON struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Items       []orderItemJSON `json:"items"`
	TotalAmount float64         `json:"totalAmount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type adminOrderJSON struct {
	orderJSON
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

func toOrderJSON(o *order.Order) orderJSON {
	out := orderJSON{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Items:       make([]orderItemJSON, len(o.Items)),
		TotalAmount: o.TotalAmount.InexactFloat64(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i, it := range o.Items {
		out.Items[i] = orderItemJSON{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal().InexactFloat64(),
		}
	}
	return out
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	o, err := h.orders.Checkout(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderJSON(o))
}

func (h *Handler) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	orders, err := h.orders.ListForCustomer(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = toOrderJSON(&orders[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]adminOrderJSON, len(orders))
	for i := range orders {
		out[i] = adminOrderJSON{
			orderJSON:     toOrderJSON(&orders[i].Order),
			CustomerName:  orders[i].CustomerName,
			CustomerEmail: orders[i].CustomerEmail,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	next, err := order.ParseStatus(req.Status)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderJSON(o))
}
