package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/order"
	"github.com/halleyx/storefront-api/internal/domain/product"
	"github.com/halleyx/storefront-api/internal/domain/user"
)

// errorResponse is the wire shape of every failure: a machine-readable kind
// plus a human message. Internal details never leak.
type errorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps domain errors onto the HTTP error taxonomy. Anything
// unmapped is a 500 with a generic body; 5xx responses signal safe retry,
// 4xx responses do not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		valErr        *product.ValidationError
		authValErr    *auth.ValidationError
		stockErr      *product.InsufficientStockError
		transitionErr *order.InvalidTransitionError
	)

	switch {
	case errors.As(err, &valErr), errors.As(err, &authValErr),
		errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "validation", err)

	case errors.Is(err, order.ErrEmptyCart):
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Code: http.StatusBadRequest, Kind: "empty_cart", Message: err.Error(),
		})

	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "unauthorized", err)

	case errors.Is(err, auth.ErrBlocked), errors.Is(err, auth.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err)

	case errors.Is(err, product.ErrNotFound), errors.Is(err, user.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound), errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err)

	case errors.Is(err, product.ErrNameTaken), errors.Is(err, user.ErrEmailTaken):
		respondError(w, http.StatusConflict, "conflict", err)

	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "insufficient_stock", stockErr)

	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, "invalid_transition", transitionErr)

	default:
		logInternal(r, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    http.StatusInternalServerError,
			Kind:    "internal",
			Message: "internal server error",
		})
	}
}

func respondError(w http.ResponseWriter, status int, kind string, err error) {
	respondJSON(w, status, errorResponse{Code: status, Kind: kind, Message: err.Error()})
}

// badRequest reports a malformed request body or parameter as a validation
// failure.
func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Code: http.StatusBadRequest, Kind: "validation", Message: message,
	})
}
