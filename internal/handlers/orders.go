package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokoline/api/internal/platform/auth"
	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/repositories"
	"github.com/sokoline/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

// OrderHandlers exposes checkout and order reads for shoppers. Checkout
// accepts anonymous guests; reads are scoped to the authenticated user.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs the shopper-facing order handlers.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{authn: authn, orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.With(h.authn.OptionalAuth()).Post("/", h.create)
		r.Group(func(group chi.Router) {
			group.Use(h.authn.RequireAuth())
			group.Get("/", h.list)
			group.Get("/{orderID}", h.get)
		})
		return
	}
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
}

type orderLineRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type createOrderRequest struct {
	Email           string             `json:"email"`
	ShippingName    string             `json:"shippingName"`
	ShippingAddress string             `json:"shippingAddress"`
	ShippingPhone   string             `json:"shippingPhone"`
	Lines           []orderLineRequest `json:"lines"`
	GiftCardCode    string             `json:"giftCardCode"`
	RedeemPoints    int64              `json:"redeemPoints"`
	PaymentProvider string             `json:"paymentProvider"`
}

func (h *OrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		Email:           strings.TrimSpace(req.Email),
		ShippingName:    strings.TrimSpace(req.ShippingName),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		ShippingPhone:   strings.TrimSpace(req.ShippingPhone),
		GiftCardCode:    strings.TrimSpace(req.GiftCardCode),
		RedeemPoints:    req.RedeemPoints,
		PaymentProvider: strings.TrimSpace(req.PaymentProvider),
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, services.OrderLineInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if identity, ok := auth.IdentityFromContext(ctx); ok && identity.UserID != uuid.Nil {
		userID := identity.UserID
		cmd.UserID = &userID
		if cmd.Email == "" {
			cmd.Email = identity.Email
		}
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, order)
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	offset, err := parseOptionalInt(r.URL.Query().Get("offset"), "offset")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	userID := identity.UserID
	orders, total, err := h.orders.ListOrders(ctx, repositories.OrderListFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": orders, "total": total})
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	userID := identity.UserID
	scope := &userID
	if identity.IsAdmin {
		scope = nil
	}

	order, err := h.orders.GetOrder(ctx, orderID, scope)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderGiftCardRejected):
		httpx.WriteError(ctx, w, httpx.NewError("gift_card_rejected", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderPointsExceedBalance):
		httpx.WriteError(ctx, w, httpx.NewError("points_exceed_balance", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "order request failed", http.StatusInternalServerError))
	}
}
