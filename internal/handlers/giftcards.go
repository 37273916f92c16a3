package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/services"
)

const maxGiftCardBodySize = 4 * 1024

// GiftCardHandlers lets shoppers check a gift card before applying it at
// checkout. Issuing cards is an admin operation.
type GiftCardHandlers struct {
	cards services.GiftCardService
}

// NewGiftCardHandlers constructs the public gift card handlers.
func NewGiftCardHandlers(cards services.GiftCardService) *GiftCardHandlers {
	return &GiftCardHandlers{cards: cards}
}

// Routes wires the /gift-cards endpoints onto the provided router.
func (h *GiftCardHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/verify", h.verify)
}

type verifyGiftCardRequest struct {
	Code string `json:"code"`
}

type giftCardSummary struct {
	Code           string     `json:"code"`
	RemainingCents int64      `json:"remainingCents"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

func (h *GiftCardHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cards == nil {
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_service_unavailable", "gift card service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxGiftCardBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req verifyGiftCardRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	card, err := h.cards.Verify(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		writeGiftCardError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildGiftCardSummary(card))
}

func buildGiftCardSummary(card domain.GiftCard) giftCardSummary {
	return giftCardSummary{
		Code:           card.Code,
		RemainingCents: card.RemainingCents,
		ExpiresAt:      card.ExpiresAt,
	}
}

func writeGiftCardError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrGiftCardInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrGiftCardNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_not_found", "gift card not found", http.StatusNotFound))
	case errors.Is(err, services.ErrGiftCardExpired):
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_expired", "gift card has expired", http.StatusBadRequest))
	case errors.Is(err, services.ErrGiftCardExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_exhausted", "gift card has no remaining balance", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_error", "gift card request failed", http.StatusInternalServerError))
	}
}
