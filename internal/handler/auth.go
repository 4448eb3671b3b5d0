package handler

import (
	"net/http"

	"github.com/halleyx/storefront-api/internal/domain/auth"
	"github.com/halleyx/storefront-api/internal/domain/user"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  userJSON `json:"user"`
}

type userJSON struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

func toUserJSON(u *user.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Status:    string(u.Status),
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	u, token, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Token: token, User: toUserJSON(u)})
}

func (h *Handler) customerLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, user.RoleCustomer)
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, user.RoleAdmin)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, role user.Role) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserJSON(u)})
}

type meResponse struct {
	User          userJSON `json:"user"`
	Impersonated  bool     `json:"impersonated,omitempty"`
	ActingAdminID string   `json:"actingAdminId,omitempty"`
}

// me reports the current principal. For impersonation sessions it exposes the
// impersonated customer plus the acting admin's ID for audit display.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrInvalidToken)
		return
	}

	u, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meResponse{
		User:          toUserJSON(u),
		Impersonated:  id.Impersonated(),
		ActingAdminID: id.ActingAdminID,
	})
}
