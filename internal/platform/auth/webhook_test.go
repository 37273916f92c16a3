package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func webhookTestHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func hmacHex(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifierAcceptsValidHMAC(t *testing.T) {
	verifier := NewWebhookVerifier(WebhookVerifierConfig{MpesaSecret: "daraja-shared"})
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`

	var called bool
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mpesa", strings.NewReader(body))
	req.Header.Set(WebhookSignatureHeader, hmacHex("daraja-shared", body))
	rec := httptest.NewRecorder()
	verifier.Middleware()(webhookTestHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want signed callback to pass", rec.Code, called)
	}
}

func TestWebhookVerifierRejectsForgedHMAC(t *testing.T) {
	verifier := NewWebhookVerifier(WebhookVerifierConfig{MpesaSecret: "daraja-shared"})
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`

	cases := map[string]string{
		"missing":      "",
		"wrong secret": hmacHex("guessed", body),
		"stale body":   hmacHex("daraja-shared", body+" "),
	}
	for name, signature := range cases {
		t.Run(name, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mpesa", strings.NewReader(body))
			if signature != "" {
				req.Header.Set(WebhookSignatureHeader, signature)
			}
			rec := httptest.NewRecorder()
			verifier.Middleware()(webhookTestHandler(&called)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized || called {
				t.Fatalf("status = %d, called = %v; want 401 and no settlement", rec.Code, called)
			}
		})
	}
}

func TestWebhookVerifierRejectsUnconfiguredProvider(t *testing.T) {
	verifier := NewWebhookVerifier(WebhookVerifierConfig{MpesaSecret: "daraja-shared"})

	var called bool
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader("{}"))
	req.Header.Set(WebhookSignatureHeader, hmacHex("daraja-shared", "{}"))
	rec := httptest.NewRecorder()
	verifier.Middleware()(webhookTestHandler(&called)).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable || called {
		t.Fatalf("status = %d, called = %v; want 503 without a configured secret", rec.Code, called)
	}
}

func stripeSignature(secret, body string, at time.Time) string {
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + body))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerifierChecksStripeSignature(t *testing.T) {
	verifier := NewWebhookVerifier(WebhookVerifierConfig{StripeSecret: "whsec_test"})
	body := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`

	var called bool
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", stripeSignature("whsec_test", body, time.Now()))
	rec := httptest.NewRecorder()
	verifier.Middleware()(webhookTestHandler(&called)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want signed event to pass", rec.Code, called)
	}

	called = false
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", stripeSignature("whsec_other", body, time.Now()))
	rec = httptest.NewRecorder()
	verifier.Middleware()(webhookTestHandler(&called)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || called {
		t.Fatalf("status = %d, called = %v; want 401 for a wrong secret", rec.Code, called)
	}
}

func TestWebhookVerifierRestoresBodyForHandlers(t *testing.T) {
	verifier := NewWebhookVerifier(WebhookVerifierConfig{MpesaSecret: "daraja-shared"})
	body := `{"hello":"world"}`

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, len(body))
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mpesa", strings.NewReader(body))
	req.Header.Set(WebhookSignatureHeader, hmacHex("daraja-shared", body))
	verifier.Middleware()(handler).ServeHTTP(httptest.NewRecorder(), req)

	if seen != body {
		t.Fatalf("handler saw %q, want the original body", seen)
	}
}
