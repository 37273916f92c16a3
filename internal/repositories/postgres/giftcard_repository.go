package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

type giftCardRepository struct {
	db *gorm.DB
}

// NewGiftCardRepository constructs the gorm-backed gift card store.
func NewGiftCardRepository(db *gorm.DB) repositories.GiftCardRepository {
	return &giftCardRepository{db: db}
}

func (r *giftCardRepository) Create(ctx context.Context, card *domain.GiftCard) error {
	err := r.db.WithContext(ctx).Create(card).Error
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return repositories.NewStoreError(repositories.StoreErrorConflict, "gift card code already exists", err)
	}
	return err
}

func (r *giftCardRepository) GetByCode(ctx context.Context, code string) (*domain.GiftCard, error) {
	var card domain.GiftCard
	err := r.db.WithContext(ctx).First(&card, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "gift card not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}
