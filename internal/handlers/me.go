package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sokoline/api/internal/platform/auth"
	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/services"
)

// MeHandlers exposes the authenticated user's own profile surface.
type MeHandlers struct {
	authn   *auth.Authenticator
	loyalty services.LoyaltyService
}

// NewMeHandlers constructs the user scoped handlers.
func NewMeHandlers(authn *auth.Authenticator, loyalty services.LoyaltyService) *MeHandlers {
	return &MeHandlers{authn: authn, loyalty: loyalty}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.profile)
	r.Get("/loyalty", h.loyaltyBalance)
}

func (h *MeHandlers) profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":  identity.UserID,
		"email":   identity.Email,
		"isAdmin": identity.IsAdmin,
	})
}

func (h *MeHandlers) loyaltyBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	points, err := h.loyalty.Balance(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrLoyaltyUserNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("loyalty_error", "loyalty request failed", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"points": points})
}
