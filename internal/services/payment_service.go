package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/events"
	"github.com/sokoline/api/internal/payments"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrPaymentInvalidInput signals the caller provided invalid arguments.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentOrderNotFound indicates the order does not exist.
	ErrPaymentOrderNotFound = errors.New("payment: order not found")
	// ErrPaymentUnsupportedProvider indicates no adapter handles the
	// requested provider.
	ErrPaymentUnsupportedProvider = errors.New("payment: unsupported provider")
	// ErrPaymentNotPayable indicates the order is not awaiting payment.
	ErrPaymentNotPayable = errors.New("payment: order not payable")
)

// PaymentServiceDeps bundles the collaborators required to construct a payment service.
type PaymentServiceDeps struct {
	Orders    repositories.OrderRepository
	Providers *payments.Manager
	Events    events.Publisher
	Clock     func() time.Time
	Logger    Logger
}

type paymentService struct {
	orders    repositories.OrderRepository
	providers *payments.Manager
	events    events.Publisher
	clock     func() time.Time
	logger    Logger
}

// NewPaymentService wires dependencies into a concrete PaymentService.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Providers == nil {
		return nil, errors.New("payment service: provider manager is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &paymentService{
		orders:    deps.Orders,
		providers: deps.Providers,
		events:    deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Initiate starts a payment with the named provider and records the returned
// transaction reference against the order. Orders fully covered by gift cards
// or points carry a zero total and are confirmed immediately without touching
// a provider.
func (s *paymentService) Initiate(ctx context.Context, orderID uuid.UUID, provider, phone string) (PaymentInitiation, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return PaymentInitiation{}, fmt.Errorf("%w: provider is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return PaymentInitiation{}, s.mapStoreError(err)
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return PaymentInitiation{}, fmt.Errorf("%w: order %s is already paid", ErrPaymentNotPayable, order.Number)
	}

	now := s.clock()

	if order.TotalCents == 0 {
		ref := "free_" + order.Number
		if err := s.orders.MarkPaymentInitiated(ctx, orderID, "none", ref, now); err != nil {
			return PaymentInitiation{}, s.mapStoreError(err)
		}
		if _, err := s.orders.MarkPaid(ctx, ref, now); err != nil {
			return PaymentInitiation{}, s.mapStoreError(err)
		}
		s.logger(ctx, "payment.zero_total_confirmed", map[string]any{"orderNumber": order.Number})
		return PaymentInitiation{Provider: "none", TransactionID: ref}, nil
	}

	adapter, err := s.providers.Get(provider)
	if err != nil {
		if errors.Is(err, payments.ErrUnsupportedProvider) {
			return PaymentInitiation{}, fmt.Errorf("%w: %s", ErrPaymentUnsupportedProvider, provider)
		}
		return PaymentInitiation{}, err
	}

	result, err := adapter.Initiate(ctx, payments.Request{
		OrderID:     order.ID.String(),
		OrderNumber: order.Number,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		Email:       order.Email,
		Phone:       phone,
	})
	if err != nil {
		return PaymentInitiation{}, fmt.Errorf("payment: initiate with %s: %w", provider, err)
	}

	if err := s.orders.MarkPaymentInitiated(ctx, orderID, provider, result.TransactionID, now); err != nil {
		return PaymentInitiation{}, s.mapStoreError(err)
	}

	s.logger(ctx, "payment.initiated", map[string]any{
		"orderNumber":   order.Number,
		"provider":      provider,
		"transactionId": result.TransactionID,
	})

	return PaymentInitiation{
		Provider:      provider,
		TransactionID: result.TransactionID,
		RedirectURL:   result.RedirectURL,
		ClientSecret:  result.ClientSecret,
	}, nil
}

// Confirm settles an order when a provider webhook reports success. When the
// named provider is registered, its transaction-status API is queried first
// so a forged or stale webhook cannot mark an unpaid order paid. The storage
// layer makes retried webhooks idempotent.
func (s *paymentService) Confirm(ctx context.Context, provider, transactionID string) (domain.Order, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.Order{}, fmt.Errorf("%w: transaction id is required", ErrPaymentInvalidInput)
	}

	if adapter, err := s.providers.Get(strings.ToLower(strings.TrimSpace(provider))); err == nil {
		paid, err := adapter.Confirm(ctx, transactionID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("payment: confirm with %s: %w", provider, err)
		}
		if !paid {
			return domain.Order{}, fmt.Errorf("%w: %s reports transaction %s as unpaid", ErrPaymentNotPayable, provider, transactionID)
		}
	}

	order, err := s.orders.MarkPaid(ctx, transactionID, s.clock())
	if err != nil {
		return domain.Order{}, s.mapStoreError(err)
	}

	s.emitOrderEvent(ctx, "order.paid", *order)
	s.logger(ctx, "payment.confirmed", map[string]any{
		"orderNumber":   order.Number,
		"provider":      provider,
		"transactionId": transactionID,
	})
	return *order, nil
}

// Fail records a provider-reported payment failure.
func (s *paymentService) Fail(ctx context.Context, provider, transactionID string) (domain.Order, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.Order{}, fmt.Errorf("%w: transaction id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.MarkPaymentFailed(ctx, transactionID, s.clock())
	if err != nil {
		return domain.Order{}, s.mapStoreError(err)
	}

	s.logger(ctx, "payment.failed", map[string]any{
		"orderNumber":   order.Number,
		"provider":      provider,
		"transactionId": transactionID,
	})
	return *order, nil
}

func (s *paymentService) mapStoreError(err error) error {
	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case repositories.StoreErrorNotFound:
			return fmt.Errorf("%w: %s", ErrPaymentOrderNotFound, storeErr.Message)
		case repositories.StoreErrorInvalidState:
			return fmt.Errorf("%w: %s", ErrPaymentNotPayable, storeErr.Message)
		}
	}
	return err
}

func (s *paymentService) emitOrderEvent(ctx context.Context, eventType string, order domain.Order) {
	if s.events == nil {
		return
	}
	event := events.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.String(),
		OrderNumber: order.Number,
		TotalCents:  order.TotalCents,
		Status:      string(order.Status),
		OccurredAt:  order.UpdatedAt,
	}
	if order.UserID != nil {
		event.UserID = order.UserID.String()
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{"error": err.Error()})
	}
}
