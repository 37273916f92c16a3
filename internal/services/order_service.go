package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/events"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderProductNotFound indicates a line references a missing product.
	ErrOrderProductNotFound = errors.New("order: product not found")
	// ErrOrderInsufficientStock indicates demand exceeded stock and the
	// product does not allow backorders.
	ErrOrderInsufficientStock = errors.New("order: insufficient stock")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidTransition indicates a status move against the chain.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderGiftCardRejected indicates the gift card is unknown, expired, or
	// exhausted.
	ErrOrderGiftCardRejected = errors.New("order: gift card rejected")
	// ErrOrderPointsExceedBalance indicates the redemption exceeds the user's
	// loyalty balance.
	ErrOrderPointsExceedBalance = errors.New("order: points exceed balance")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders    repositories.OrderRepository
	Catalog   repositories.CatalogRepository
	GiftCards repositories.GiftCardRepository
	Users     repositories.UserRepository
	Events    events.Publisher
	Rates     domain.PricingRates
	Clock     func() time.Time
	Logger    Logger
}

type orderService struct {
	orders    repositories.OrderRepository
	catalog   repositories.CatalogRepository
	giftCards repositories.GiftCardRepository
	users     repositories.UserRepository
	events    events.Publisher
	rates     domain.PricingRates
	clock     func() time.Time
	logger    Logger
}

// NewOrderService wires dependencies into a concrete OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	rates := deps.Rates
	if rates.Currency == "" {
		rates.Currency = "KES"
	}

	return &orderService{
		orders:    deps.Orders,
		catalog:   deps.Catalog,
		giftCards: deps.GiftCards,
		users:     deps.Users,
		events:    deps.Events,
		rates:     rates,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateOrder prices the submitted lines from the current catalog, bounds
// gift-card and loyalty redemption server-side, and hands the result to the
// storage transaction. Client-submitted prices and totals are never trusted.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if err := s.validateCreateInput(cmd); err != nil {
		return domain.Order{}, err
	}

	now := s.clock()

	products, err := s.resolveProducts(ctx, cmd.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	priced := make([]domain.PricedLine, len(cmd.Lines))
	lines := make([]repositories.OrderLine, len(cmd.Lines))
	for i, line := range cmd.Lines {
		product := products[line.ProductID]
		priced[i] = domain.PricedLine{
			ProductID:  line.ProductID.String(),
			Quantity:   line.Quantity,
			PriceCents: product.PriceCents,
		}
		lines[i] = repositories.OrderLine{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			PriceCents: product.PriceCents,
		}
	}

	giftCardCents, err := s.resolveGiftCard(ctx, cmd.GiftCardCode, now)
	if err != nil {
		return domain.Order{}, err
	}

	redeemPoints, err := s.boundRedemption(ctx, cmd)
	if err != nil {
		return domain.Order{}, err
	}

	totals := domain.ComputeOrderTotals(priced, s.rates, giftCardCents, redeemPoints)

	req := repositories.CreateOrderRequest{
		Number:          newOrderNumber(now),
		UserID:          cmd.UserID,
		Email:           strings.TrimSpace(cmd.Email),
		ShippingName:    strings.TrimSpace(cmd.ShippingName),
		ShippingAddress: strings.TrimSpace(cmd.ShippingAddress),
		ShippingPhone:   strings.TrimSpace(cmd.ShippingPhone),
		Currency:        totals.Currency,
		Lines:           lines,
		SubtotalCents:   totals.SubtotalCents,
		TaxCents:        totals.TaxCents,
		ShippingCents:   totals.ShippingCents,
		TotalCents:      totals.TotalCents,
		PointsEarned:    totals.PointsEarned,
		PointsRedeemed:  totals.PointsRedeemed,
		GiftCardCode:    strings.TrimSpace(cmd.GiftCardCode),
		GiftCardCents:   totals.GiftCardCents,
		PaymentProvider: strings.TrimSpace(cmd.PaymentProvider),
		Now:             now,
	}

	order, err := s.orders.Create(ctx, req)
	if err != nil {
		return domain.Order{}, s.mapStoreError(err)
	}

	s.emitOrderEvent(ctx, "order.created", *order)
	s.logger(ctx, "order.created", map[string]any{
		"orderId":    order.ID.String(),
		"number":     order.Number,
		"totalCents": order.TotalCents,
		"lines":      len(order.Items),
	})

	return *order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	if userID != nil {
		order, err = s.orders.GetForUser(ctx, id, *userID)
	} else {
		order, err = s.orders.Get(ctx, id)
	}
	if err != nil {
		return domain.Order{}, s.mapStoreError(err)
	}
	return *order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, s.mapStoreError(err)
	}
	return orders, total, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string) (domain.Order, error) {
	if _, ok := map[domain.OrderStatus]struct{}{
		domain.OrderStatusProcessing: {},
		domain.OrderStatusShipped:    {},
		domain.OrderStatusDelivered:  {},
	}[status]; !ok {
		return domain.Order{}, fmt.Errorf("%w: %q is not a reachable status", ErrOrderInvalidTransition, status)
	}

	order, err := s.orders.UpdateStatus(ctx, id, status, strings.TrimSpace(description), s.clock())
	if err != nil {
		return domain.Order{}, s.mapStoreError(err)
	}

	s.emitOrderEvent(ctx, "order.status_changed", *order)
	return *order, nil
}

func (s *orderService) validateCreateInput(cmd CreateOrderCommand) error {
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrOrderInvalidInput)
	}
	for _, line := range cmd.Lines {
		if line.ProductID == uuid.Nil {
			return fmt.Errorf("%w: line product id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrOrderInvalidInput)
		}
	}
	if cmd.RedeemPoints < 0 {
		return fmt.Errorf("%w: redeemed points must be >= 0", ErrOrderInvalidInput)
	}
	if cmd.RedeemPoints > 0 && cmd.UserID == nil {
		return fmt.Errorf("%w: guests cannot redeem points", ErrOrderInvalidInput)
	}
	return nil
}

func (s *orderService) resolveProducts(ctx context.Context, lines []OrderLineInput) (map[uuid.UUID]domain.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, s.mapStoreError(err)
	}

	byID := make(map[uuid.UUID]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrOrderProductNotFound, id)
		}
	}
	return byID, nil
}

// resolveGiftCard returns the card's spendable value. ComputeOrderTotals later
// clamps it to the order total; the storage transaction floors the remaining
// balance at zero.
func (s *orderService) resolveGiftCard(ctx context.Context, code string, now time.Time) (int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, nil
	}
	if s.giftCards == nil {
		return 0, fmt.Errorf("%w: gift cards are not enabled", ErrOrderGiftCardRejected)
	}
	card, err := s.giftCards.GetByCode(ctx, code)
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return 0, fmt.Errorf("%w: unknown code", ErrOrderGiftCardRejected)
		}
		return 0, err
	}
	if card.ExpiresAt != nil && card.ExpiresAt.Before(now) {
		return 0, fmt.Errorf("%w: card expired", ErrOrderGiftCardRejected)
	}
	if card.RemainingCents <= 0 {
		return 0, fmt.Errorf("%w: card exhausted", ErrOrderGiftCardRejected)
	}
	return card.RemainingCents, nil
}

func (s *orderService) boundRedemption(ctx context.Context, cmd CreateOrderCommand) (int64, error) {
	if cmd.RedeemPoints == 0 || cmd.UserID == nil {
		return 0, nil
	}
	if s.users == nil {
		return 0, fmt.Errorf("%w: loyalty is not enabled", ErrOrderInvalidInput)
	}
	user, err := s.users.Get(ctx, *cmd.UserID)
	if err != nil {
		return 0, s.mapStoreError(err)
	}
	if cmd.RedeemPoints > user.LoyaltyPoints {
		return 0, fmt.Errorf("%w: requested %d, balance %d", ErrOrderPointsExceedBalance, cmd.RedeemPoints, user.LoyaltyPoints)
	}
	return cmd.RedeemPoints, nil
}

func (s *orderService) mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case repositories.StoreErrorNotFound:
			if strings.Contains(storeErr.Message, "product") {
				return fmt.Errorf("%w: %s", ErrOrderProductNotFound, storeErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrOrderNotFound, storeErr.Message)
		case repositories.StoreErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrOrderInsufficientStock, storeErr.Message)
		case repositories.StoreErrorInvalidState:
			return fmt.Errorf("%w: %s", ErrOrderInvalidTransition, storeErr.Message)
		}
	}
	return err
}

func (s *orderService) emitOrderEvent(ctx context.Context, eventType string, order domain.Order) {
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

func newOrderNumber(now time.Time) string {
	return "ord_" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}
