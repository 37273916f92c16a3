package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/services"
)

const maxWebhookBodySize = 64 * 1024

// WebhookHandlers receives asynchronous payment confirmations from the
// provider side. Signature verification happens in front of these handlers,
// on the webhook route group. Callbacks are acknowledged even when the
// referenced order is unknown so providers stop retrying; failures to decode
// are rejected.
type WebhookHandlers struct {
	payments services.PaymentService
	log      services.Logger
}

// NewWebhookHandlers constructs the provider callback handlers.
func NewWebhookHandlers(payments services.PaymentService, log services.Logger) *WebhookHandlers {
	h := &WebhookHandlers{payments: payments, log: log}
	if h.log == nil {
		h.log = func(context.Context, string, map[string]any) {}
	}
	return h
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/mpesa", h.mpesa)
	r.Post("/stripe", h.stripe)
	r.Post("/paypal", h.paypal)
}

type mpesaCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (h *WebhookHandlers) mpesa(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var callback mpesaCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "callback body must be valid JSON", http.StatusBadRequest))
		return
	}

	ref := strings.TrimSpace(callback.Body.StkCallback.CheckoutRequestID)
	if ref == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "CheckoutRequestID is required", http.StatusBadRequest))
		return
	}

	if callback.Body.StkCallback.ResultCode == 0 {
		h.settle(ctx, "mpesa", ref, true)
	} else {
		h.log(ctx, "webhooks.mpesa.failed", map[string]any{
			"ref":         ref,
			"result_code": callback.Body.StkCallback.ResultCode,
			"result_desc": callback.Body.StkCallback.ResultDesc,
		})
		h.settle(ctx, "mpesa", ref, false)
	}

	// Daraja expects this exact acknowledgement shape.
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

func (h *WebhookHandlers) stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var event stripeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event body must be valid JSON", http.StatusBadRequest))
		return
	}

	ref := strings.TrimSpace(event.Data.Object.ID)
	if ref == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "data.object.id is required", http.StatusBadRequest))
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.settle(ctx, "stripe", ref, true)
	case "payment_intent.payment_failed", "payment_intent.canceled":
		h.settle(ctx, "stripe", ref, false)
	default:
		h.log(ctx, "webhooks.stripe.ignored", map[string]any{"type": event.Type, "ref": ref})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
}

type paypalEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID string `json:"id"`
	} `json:"resource"`
}

func (h *WebhookHandlers) paypal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var event paypalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "event body must be valid JSON", http.StatusBadRequest))
		return
	}

	ref := strings.TrimSpace(event.Resource.ID)
	if ref == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "resource.id is required", http.StatusBadRequest))
		return
	}

	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED", "PAYMENT.CAPTURE.COMPLETED":
		h.settle(ctx, "paypal", ref, true)
	case "PAYMENT.CAPTURE.DENIED":
		h.settle(ctx, "paypal", ref, false)
	default:
		h.log(ctx, "webhooks.paypal.ignored", map[string]any{"type": event.EventType, "ref": ref})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"received": true})
}

func (h *WebhookHandlers) settle(ctx context.Context, provider, ref string, success bool) {
	if h.payments == nil {
		return
	}
	var err error
	if success {
		_, err = h.payments.Confirm(ctx, provider, ref)
	} else {
		_, err = h.payments.Fail(ctx, provider, ref)
	}
	if err != nil && !errors.Is(err, services.ErrPaymentOrderNotFound) {
		h.log(ctx, "webhooks.settle.error", map[string]any{
			"provider": provider,
			"ref":      ref,
			"success":  success,
			"error":    err.Error(),
		})
	}
}
