package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"
)

type stubIntentsAPI struct {
	newFn func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getFn func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func (s *stubIntentsAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.newFn(params)
}

func (s *stubIntentsAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return s.getFn(id, params)
}

func TestStripeInitiateCreatesIntent(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	provider, err := NewStripeProvider(StripeProviderConfig{
		Intents: &stubIntentsAPI{
			newFn: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				captured = params
				return &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Amount: *params.Amount}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	result, err := provider.Initiate(context.Background(), Request{
		OrderID:     "11111111-1111-1111-1111-111111111111",
		OrderNumber: "ord_01ABC",
		AmountCents: 46600,
		Currency:    "KES",
		Email:       "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	if result.TransactionID != "pi_123" || result.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected result %+v", result)
	}
	if *captured.Amount != 46600 || *captured.Currency != "kes" {
		t.Fatalf("unexpected intent params amount=%d currency=%s", *captured.Amount, *captured.Currency)
	}
	if captured.Metadata["order_number"] != "ord_01ABC" {
		t.Fatalf("order number missing from metadata: %v", captured.Metadata)
	}
}

func TestStripeConfirmReportsIntentStatus(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{
		Intents: &stubIntentsAPI{
			getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				status := stripe.PaymentIntentStatusSucceeded
				if id != "pi_123" {
					status = stripe.PaymentIntentStatusRequiresPaymentMethod
				}
				return &stripe.PaymentIntent{ID: id, Status: status}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}

	paid, err := provider.Confirm(context.Background(), "pi_123")
	if err != nil || !paid {
		t.Fatalf("Confirm(pi_123) = %v, %v; want paid", paid, err)
	}
	paid, err = provider.Confirm(context.Background(), "pi_pending")
	if err != nil || paid {
		t.Fatalf("Confirm(pi_pending) = %v, %v; want unpaid", paid, err)
	}
}

func TestStripeInitiateRejectsNonPositiveAmount(t *testing.T) {
	provider, _ := NewStripeProvider(StripeProviderConfig{
		Intents: &stubIntentsAPI{
			newFn: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				t.Fatal("intent must not be created")
				return nil, nil
			},
		},
	})

	if _, err := provider.Initiate(context.Background(), Request{AmountCents: 0, Currency: "KES"}); err == nil {
		t.Fatal("expected an error for zero amount")
	}
}

func TestStripeInitiateWrapsAPIErrors(t *testing.T) {
	apiErr := errors.New("card network unavailable")
	provider, _ := NewStripeProvider(StripeProviderConfig{
		Intents: &stubIntentsAPI{
			newFn: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				return nil, apiErr
			},
		},
	})

	_, err := provider.Initiate(context.Background(), Request{AmountCents: 100, Currency: "KES"})
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestNewStripeProviderRequiresKeyOrClients(t *testing.T) {
	if _, err := NewStripeProvider(StripeProviderConfig{}); err == nil {
		t.Fatal("expected an error without api key or clients")
	}
}
