package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

var testRates = domain.PricingRates{
	Currency:                   "KES",
	TaxBasisPoints:             1600,
	ShippingFlatCents:          35000,
	FreeShippingThresholdCents: 500000,
}

func echoOrderRepo(captured *repositories.CreateOrderRequest) *stubOrderRepo {
	return &stubOrderRepo{
		createFn: func(_ context.Context, req repositories.CreateOrderRequest) (*domain.Order, error) {
			if captured != nil {
				*captured = req
			}
			return &domain.Order{
				ID:             uuid.New(),
				Number:         req.Number,
				UserID:         req.UserID,
				Email:          req.Email,
				Status:         domain.OrderStatusPending,
				SubtotalCents:  req.SubtotalCents,
				TaxCents:       req.TaxCents,
				ShippingCents:  req.ShippingCents,
				TotalCents:     req.TotalCents,
				GiftCardCents:  req.GiftCardCents,
				PointsEarned:   req.PointsEarned,
				PointsRedeemed: req.PointsRedeemed,
				Currency:       req.Currency,
			}, nil
		},
	}
}

func catalogWith(products ...domain.Product) *stubCatalogRepo {
	return &stubCatalogRepo{
		getProductsFn: func(_ context.Context, ids []uuid.UUID) ([]domain.Product, error) {
			var found []domain.Product
			for _, p := range products {
				for _, id := range ids {
					if p.ID == id {
						found = append(found, p)
					}
				}
			}
			return found, nil
		},
	}
}

func TestCreateOrderPricesLinesFromCatalog(t *testing.T) {
	product := domain.Product{ID: uuid.New(), Name: "Ceramic mug", PriceCents: 120000}

	var captured repositories.CreateOrderRequest
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(&captured),
		Catalog: catalogWith(product),
		Rates:   testRates,
		Clock:   fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email: "buyer@example.com",
		Lines: []OrderLineInput{{ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if len(captured.Lines) != 1 || captured.Lines[0].PriceCents != 120000 {
		t.Fatalf("expected catalog price 120000 on the stored line, got %+v", captured.Lines)
	}
	if order.SubtotalCents != 240000 {
		t.Fatalf("subtotal = %d, want 240000", order.SubtotalCents)
	}
	// 16% VAT on 240000 = 38400, flat shipping below the free threshold.
	if order.TaxCents != 38400 || order.ShippingCents != 35000 {
		t.Fatalf("tax/shipping = %d/%d, want 38400/35000", order.TaxCents, order.ShippingCents)
	}
	if !strings.HasPrefix(order.Number, "ord_") {
		t.Fatalf("order number %q missing ord_ prefix", order.Number)
	}
}

func TestCreateOrderIgnoresClientSubmittedPrices(t *testing.T) {
	// OrderLineInput carries no price field at all, so the only prices that
	// can reach storage are the catalog's. This test pins the earn side of
	// that snapshot: 250000 subtotal earns 25 points.
	product := domain.Product{ID: uuid.New(), PriceCents: 125000}

	var captured repositories.CreateOrderRequest
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(&captured),
		Catalog: catalogWith(product),
		Rates:   testRates,
	})

	if _, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email: "buyer@example.com",
		Lines: []OrderLineInput{{ProductID: product.ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if captured.PointsEarned != 25 {
		t.Fatalf("points earned = %d, want 25", captured.PointsEarned)
	}
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(),
		Rates:   testRates,
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email: "buyer@example.com",
		Lines: []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderProductNotFound) {
		t.Fatalf("expected ErrOrderProductNotFound, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(),
		Rates:   testRates,
	})

	cases := []struct {
		name string
		cmd  CreateOrderCommand
	}{
		{"no lines", CreateOrderCommand{Email: "a@b.c"}},
		{"missing email", CreateOrderCommand{Lines: []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}}}},
		{"zero quantity", CreateOrderCommand{Email: "a@b.c", Lines: []OrderLineInput{{ProductID: uuid.New(), Quantity: 0}}}},
		{"negative points", CreateOrderCommand{Email: "a@b.c", Lines: []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}}, RedeemPoints: -1}},
		{"guest redeeming points", CreateOrderCommand{Email: "a@b.c", Lines: []OrderLineInput{{ProductID: uuid.New(), Quantity: 1}}, RedeemPoints: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateOrder(context.Background(), tc.cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateOrderMapsInsufficientStock(t *testing.T) {
	product := domain.Product{ID: uuid.New(), PriceCents: 5000}
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepo{
			createFn: func(context.Context, repositories.CreateOrderRequest) (*domain.Order, error) {
				return nil, repositories.NewStoreError(repositories.StoreErrorInsufficientStock, "product out of stock", nil)
			},
		},
		Catalog: catalogWith(product),
		Rates:   testRates,
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email: "buyer@example.com",
		Lines: []OrderLineInput{{ProductID: product.ID, Quantity: 9}},
	})
	if !errors.Is(err, ErrOrderInsufficientStock) {
		t.Fatalf("expected ErrOrderInsufficientStock, got %v", err)
	}
}

func TestCreateOrderRejectsExpiredGiftCard(t *testing.T) {
	product := domain.Product{ID: uuid.New(), PriceCents: 5000}
	expired := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(product),
		GiftCards: &stubGiftCardRepo{
			getByCodeFn: func(_ context.Context, code string) (*domain.GiftCard, error) {
				return &domain.GiftCard{Code: code, RemainingCents: 10000, ExpiresAt: &expired}, nil
			},
		},
		Rates: testRates,
		Clock: fixedClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email:        "buyer@example.com",
		Lines:        []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
		GiftCardCode: "gc_expired",
	})
	if !errors.Is(err, ErrOrderGiftCardRejected) {
		t.Fatalf("expected ErrOrderGiftCardRejected, got %v", err)
	}
}

func TestCreateOrderBoundsGiftCardToOrderTotal(t *testing.T) {
	product := domain.Product{ID: uuid.New(), PriceCents: 10000}
	var captured repositories.CreateOrderRequest
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(&captured),
		Catalog: catalogWith(product),
		GiftCards: &stubGiftCardRepo{
			getByCodeFn: func(_ context.Context, code string) (*domain.GiftCard, error) {
				return &domain.GiftCard{Code: code, InitialCents: 10000000, RemainingCents: 10000000}, nil
			},
		},
		Rates: testRates,
	})

	order, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email:        "buyer@example.com",
		Lines:        []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
		GiftCardCode: "gc_big",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	// gross = 10000 + 1600 tax + 35000 shipping = 46600; the card covers it
	// all, never more.
	if captured.GiftCardCents != 46600 {
		t.Fatalf("applied gift card = %d, want 46600", captured.GiftCardCents)
	}
	if order.TotalCents != 0 {
		t.Fatalf("total = %d, want 0", order.TotalCents)
	}
}

func TestCreateOrderRejectsRedemptionOverBalance(t *testing.T) {
	product := domain.Product{ID: uuid.New(), PriceCents: 500000}
	userID := uuid.New()
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(product),
		Users: &stubUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
				return &domain.User{ID: id, LoyaltyPoints: 10}, nil
			},
		},
		Rates: testRates,
	})

	_, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		UserID:       &userID,
		Email:        "buyer@example.com",
		Lines:        []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
		RedeemPoints: 50,
	})
	if !errors.Is(err, ErrOrderPointsExceedBalance) {
		t.Fatalf("expected ErrOrderPointsExceedBalance, got %v", err)
	}
}

func TestCreateOrderPublishesEventNonFatally(t *testing.T) {
	product := domain.Product{ID: uuid.New(), PriceCents: 5000}
	pub := &stubPublisher{err: errors.New("broker down")}
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(product),
		Events:  pub,
		Rates:   testRates,
	})

	if _, err := svc.CreateOrder(context.Background(), CreateOrderCommand{
		Email: "buyer@example.com",
		Lines: []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("publish failure must not fail the order, got %v", err)
	}
}

func TestTransitionStatusRejectsUnreachableTargets(t *testing.T) {
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders:  echoOrderRepo(nil),
		Catalog: catalogWith(),
		Rates:   testRates,
	})

	for _, status := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatus("bogus")} {
		if _, err := svc.TransitionStatus(context.Background(), uuid.New(), status, ""); !errors.Is(err, ErrOrderInvalidTransition) {
			t.Fatalf("status %q: expected ErrOrderInvalidTransition, got %v", status, err)
		}
	}
}

func TestGetOrderScopesToUser(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	var sawUserScoped bool
	svc, _ := NewOrderService(OrderServiceDeps{
		Orders: &stubOrderRepo{
			getForUserFn: func(_ context.Context, id, uid uuid.UUID) (*domain.Order, error) {
				sawUserScoped = true
				if id != orderID || uid != userID {
					t.Fatalf("unexpected scoping args %s %s", id, uid)
				}
				return &domain.Order{ID: id}, nil
			},
		},
		Catalog: catalogWith(),
		Rates:   testRates,
	})

	if _, err := svc.GetOrder(context.Background(), orderID, &userID); err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if !sawUserScoped {
		t.Fatal("expected the user-scoped lookup to be used")
	}
}
