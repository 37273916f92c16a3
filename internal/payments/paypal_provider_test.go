package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaypalInitiateCreatesOrder(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok_pp", "expires_in": 32400})
		case "/v2/checkout/orders":
			if got := r.Header.Get("Authorization"); got != "Bearer tok_pp" {
				t.Errorf("unexpected auth header %q", got)
			}
			_ = json.NewDecoder(r.Body).Decode(&captured)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "PP_ORDER_1",
				"status": "CREATED",
				"links": []map[string]string{
					{"href": "https://paypal.example/approve/PP_ORDER_1", "rel": "approve"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider, err := NewPaypalProvider(PaypalProviderConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		ReturnURL:    "https://shop.example/return",
	})
	if err != nil {
		t.Fatalf("NewPaypalProvider: %v", err)
	}

	result, err := provider.Initiate(context.Background(), Request{
		OrderNumber: "ord_01ABC",
		AmountCents: 46605,
		Currency:    "usd",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if result.TransactionID != "PP_ORDER_1" {
		t.Fatalf("transaction id = %q", result.TransactionID)
	}
	if result.RedirectURL != "https://paypal.example/approve/PP_ORDER_1" {
		t.Fatalf("redirect = %q", result.RedirectURL)
	}

	units := captured["purchase_units"].([]any)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	if amount["value"] != "466.05" || amount["currency_code"] != "USD" {
		t.Fatalf("unexpected amount %v", amount)
	}
}

func TestPaypalInitiateSurfacesAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok_pp", "expires_in": 32400})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	provider, _ := NewPaypalProvider(PaypalProviderConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	})

	if _, err := provider.Initiate(context.Background(), Request{OrderNumber: "ord_x", AmountCents: 100, Currency: "USD"}); err == nil {
		t.Fatal("expected an error when the order create fails")
	}
}

func TestPaypalConfirmReportsCaptureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok_pp", "expires_in": 32400})
		case "/v2/checkout/orders/PP_ORDER_1":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "PP_ORDER_1", "status": "COMPLETED"})
		case "/v2/checkout/orders/PP_ORDER_2":
			// Customer approved but the capture has not run yet.
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "PP_ORDER_2", "status": "APPROVED"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider, _ := NewPaypalProvider(PaypalProviderConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	})

	paid, err := provider.Confirm(context.Background(), "PP_ORDER_1")
	if err != nil || !paid {
		t.Fatalf("Confirm(PP_ORDER_1) = %v, %v; want paid", paid, err)
	}
	paid, err = provider.Confirm(context.Background(), "PP_ORDER_2")
	if err != nil || paid {
		t.Fatalf("Confirm(PP_ORDER_2) = %v, %v; want unpaid", paid, err)
	}
}

func TestNewPaypalProviderRequiresCredentials(t *testing.T) {
	if _, err := NewPaypalProvider(PaypalProviderConfig{}); err == nil {
		t.Fatal("expected an error without credentials")
	}
}
