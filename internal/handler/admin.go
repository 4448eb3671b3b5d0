package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/user"
)

type customerListResponse struct {
	Items []userJSON `json:"items"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	q := user.ListQuery{Page: 1, Limit: 20}

	page, err := intParam(r, "page")
	if err != nil || page < 0 {
		badRequest(w, "page must be a positive integer")
		return
	}
	if page > 0 {
		q.Page = page
	}

	limit, err := intParam(r, "limit")
	if err != nil || limit < 0 {
		badRequest(w, "limit must be a positive integer")
		return
	}
	if limit > 0 {
		q.Limit = limit
	}

	customers, total, err := h.users.ListCustomers(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := customerListResponse{
		Items: make([]userJSON, len(customers)),
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
	}
	for i := range customers {
		resp.Items[i] = toUserJSON(&customers[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

type setCustomerStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setCustomerStatus(w http.ResponseWriter, r *http.Request) {
	var req setCustomerStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	status := user.Status(req.Status)
	if status != user.StatusActive && status != user.StatusBlocked {
		badRequest(w, "status must be ACTIVE or BLOCKED")
		return
	}

	customerID := chi.URLParam(r, "id")
	target, err := h.users.GetByID(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target.Role != user.RoleCustomer {
		writeError(w, r, user.ErrNotFound)
		return
	}

	if err := h.users.UpdateStatus(r.Context(), customerID, status); err != nil {
		writeError(w, r, err)
		return
	}
	target.Status = status
	respondJSON(w, http.StatusOK, toUserJSON(target))
}

// impersonate issues a short-lived customer-scoped token for support flows.
func (h *Handler) impersonate(w http.ResponseWriter, r *http.Request) {
	admin, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	target, token, err := h.auth.Impersonate(r.Context(), admin, chi.URLParam(r, "customerId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserJSON(target)})
}
