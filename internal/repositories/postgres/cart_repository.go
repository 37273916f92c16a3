package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository constructs the gorm-backed cart store.
func NewCartRepository(db *gorm.DB) repositories.CartRepository {
	return &cartRepository{db: db}
}

// GetOpenCart returns the user's open cart, creating one lazily.
func (r *cartRepository) GetOpenCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").
		First(&cart, "user_id = ? AND is_open = true", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		cart = domain.Cart{UserID: userID, IsOpen: true, CreatedAt: now, UpdatedAt: now}
		if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, repositories.NewStoreError(repositories.StoreErrorInvalidState, "quantity must be positive", nil)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := openCartTx(tx, userID)
		if err != nil {
			return err
		}
		item := domain.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": quantity}),
		}).Create(&item).Error; err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return touchCart(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.GetOpenCart(ctx, userID)
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := openCartTx(tx, userID)
		if err != nil {
			return err
		}
		res := tx.Delete(&domain.CartItem{}, "cart_id = ? AND product_id = ?", cart.ID, productID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "item not in cart", nil)
		}
		return touchCart(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.GetOpenCart(ctx, userID)
}

// Merge folds guest-held items into the user's open cart by summing quantities
// per product inside one transaction. Items whose product no longer exists are
// skipped; no stock validation happens here, merge is purely additive.
func (r *cartRepository) Merge(ctx context.Context, userID uuid.UUID, items []domain.CartItem) (*domain.Cart, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := openCartTx(tx, userID)
		if err != nil {
			return err
		}
		for _, incoming := range items {
			if incoming.Quantity <= 0 {
				continue
			}
			var exists int64
			if err := tx.Model(&domain.Product{}).Where("id = ?", incoming.ProductID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				continue
			}
			item := domain.CartItem{CartID: cart.ID, ProductID: incoming.ProductID, Quantity: incoming.Quantity}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
				DoUpdates: clause.Assignments(map[string]any{"quantity": gorm.Expr("cart_items.quantity + ?", incoming.Quantity)}),
			}).Create(&item).Error; err != nil {
				return fmt.Errorf("merge cart item: %w", err)
			}
		}
		return touchCart(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.GetOpenCart(ctx, userID)
}

func openCartTx(tx *gorm.DB, userID uuid.UUID) (*domain.Cart, error) {
	var cart domain.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cart, "user_id = ? AND is_open = true", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		cart = domain.Cart{UserID: userID, IsOpen: true, CreatedAt: now, UpdatedAt: now}
		if err := tx.Create(&cart).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func touchCart(tx *gorm.DB, cartID uuid.UUID) error {
	return tx.Model(&domain.Cart{}).Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
}
