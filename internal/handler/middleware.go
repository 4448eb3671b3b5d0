package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/user"
)

type identityKey struct{}

// identityFrom extracts the authenticated principal from the request context.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// authenticate verifies the bearer token and stores the resulting identity in
// the request context. Verification re-checks the account's status, so a
// customer blocked mid-session is cut off on their next request.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}

		id, err := h.auth.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCustomer admits customers, including impersonation sessions.
func (h *Handler) requireCustomer(next http.Handler) http.Handler {
	return h.requireRole(user.RoleCustomer, next)
}

// requireAdmin admits admins only. Impersonation sessions are rejected even
// though an admin opened them: a delegated customer credential must never
// escalate back to admin actions.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return h.requireRole(user.RoleAdmin, next)
}

func (h *Handler) requireRole(role user.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}
		if id.Role != role || (role == user.RoleAdmin && id.Impersonated()) {
			writeError(w, r, auth.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
