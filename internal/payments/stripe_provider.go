package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clock    func() time.Time
	Intents  stripePaymentIntentAPI
}

// StripeProvider initiates card payments as Stripe Payment Intents. The
// intent id doubles as the payment reference the webhook later confirms.
type StripeProvider struct {
	intents stripePaymentIntentAPI
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		intents: intents,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Name implements Provider.
func (p *StripeProvider) Name() string { return "stripe" }

// Initiate creates a Payment Intent for the order total and returns its
// client secret for the storefront to complete.
func (p *StripeProvider) Initiate(ctx context.Context, req Request) (Result, error) {
	if p == nil {
		return Result{}, errors.New("stripe: provider is nil")
	}
	if req.AmountCents <= 0 {
		return Result{}, errors.New("stripe: amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		Metadata: map[string]string{
			"order_id":     req.OrderID,
			"order_number": req.OrderNumber,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.OrderNumber)
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return Result{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"orderNumber":   req.OrderNumber,
		"amount":        intent.Amount,
	})

	return Result{
		TransactionID: intent.ID,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// Confirm fetches the Payment Intent and reports whether it has succeeded.
func (p *StripeProvider) Confirm(ctx context.Context, transactionID string) (bool, error) {
	if p == nil {
		return false, errors.New("stripe: provider is nil")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return false, errors.New("stripe: transaction id is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.intents.Get(transactionID, params)
	if err != nil {
		return false, fmt.Errorf("stripe: fetch payment intent: %w", err)
	}

	paid := intent.Status == stripe.PaymentIntentStatusSucceeded
	p.logger(ctx, "payments.stripe.intent.checked", map[string]any{
		"paymentIntent": intent.ID,
		"status":        string(intent.Status),
		"paid":          paid,
	})
	return paid, nil
}
