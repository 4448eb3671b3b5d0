package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/cart"
)

type cartItemJSON struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type cartJSON struct {
	Items []cartItemJSON `json:"items"`
	Total float64        `json:"total"`
}

func toCartJSON(s *cart.Summary) cartJSON {
	out := cartJSON{
		Items: make([]cartItemJSON, len(s.Items)),
		Total: s.Total.InexactFloat64(),
	}
	for i, it := range s.Items {
		out.Items[i] = cartItemJSON{
			ID:          it.ItemID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.InexactFloat64(),
		}
	}
	return out
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type removeItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	sum, err := h.carts.GetSummary(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartJSON(sum))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "productId is required")
		return
	}

	sum, err := h.carts.AddItem(r.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartJSON(sum))
}

func (h *Handler) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	sum, err := h.carts.SetQuantity(r.Context(), id.UserID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartJSON(sum))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	var req removeItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "productId is required")
		return
	}

	sum, err := h.carts.RemoveProduct(r.Context(), id.UserID, req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartJSON(sum))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
