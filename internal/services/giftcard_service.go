package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrGiftCardInvalidInput signals the caller provided invalid arguments.
	ErrGiftCardInvalidInput = errors.New("gift card: invalid input")
	// ErrGiftCardNotFound indicates the code does not exist.
	ErrGiftCardNotFound = errors.New("gift card: not found")
	// ErrGiftCardExpired indicates the card's expiry has passed.
	ErrGiftCardExpired = errors.New("gift card: expired")
	// ErrGiftCardExhausted indicates the card has no remaining value.
	ErrGiftCardExhausted = errors.New("gift card: exhausted")
)

// GiftCardServiceDeps bundles the collaborators required to construct a gift card service.
type GiftCardServiceDeps struct {
	GiftCards repositories.GiftCardRepository
	Clock     func() time.Time
	Logger    Logger
}

type giftCardService struct {
	giftCards repositories.GiftCardRepository
	clock     func() time.Time
	logger    Logger
}

// NewGiftCardService wires dependencies into a concrete GiftCardService.
func NewGiftCardService(deps GiftCardServiceDeps) (GiftCardService, error) {
	if deps.GiftCards == nil {
		return nil, errors.New("gift card service: gift card repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &giftCardService{
		giftCards: deps.GiftCards,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Create issues a new card with a generated code. The code is the lookup key
// customers type at checkout, so it is never reissued.
func (s *giftCardService) Create(ctx context.Context, initialCents int64, expiresAt *time.Time) (domain.GiftCard, error) {
	if initialCents <= 0 {
		return domain.GiftCard{}, fmt.Errorf("%w: initial value must be positive", ErrGiftCardInvalidInput)
	}
	now := s.clock()
	if expiresAt != nil && expiresAt.Before(now) {
		return domain.GiftCard{}, fmt.Errorf("%w: expiry is in the past", ErrGiftCardInvalidInput)
	}

	card := domain.GiftCard{
		Code:           "gc_" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		InitialCents:   initialCents,
		RemainingCents: initialCents,
		ExpiresAt:      expiresAt,
	}
	if err := s.giftCards.Create(ctx, &card); err != nil {
		return domain.GiftCard{}, err
	}

	s.logger(ctx, "gift_card.created", map[string]any{"code": card.Code, "initialCents": card.InitialCents})
	return card, nil
}

// Verify reports a card's remaining value, rejecting expired and drained
// cards so the storefront can surface a useful message before checkout.
func (s *giftCardService) Verify(ctx context.Context, code string) (domain.GiftCard, error) {
	card, err := s.giftCards.GetByCode(ctx, code)
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return domain.GiftCard{}, fmt.Errorf("%w: %s", ErrGiftCardNotFound, code)
		}
		return domain.GiftCard{}, err
	}

	if card.ExpiresAt != nil && card.ExpiresAt.Before(s.clock()) {
		return domain.GiftCard{}, fmt.Errorf("%w: %s", ErrGiftCardExpired, code)
	}
	if card.RemainingCents <= 0 {
		return domain.GiftCard{}, fmt.Errorf("%w: %s", ErrGiftCardExhausted, code)
	}
	return *card, nil
}
