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

type returnRepository struct {
	db *gorm.DB
}

// NewReturnRepository constructs the gorm-backed return store.
func NewReturnRepository(db *gorm.DB) repositories.ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) Create(ctx context.Context, ret *domain.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *returnRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	var ret domain.Return
	err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "return not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error) {
	var returns []domain.Return
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&returns).Error
	return returns, err
}

// UpdateStatus enforces the one-way progression with the row locked.
func (r *returnRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReturnStatus, now time.Time) (*domain.Return, error) {
	var updated domain.Return
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ret domain.Return
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ret, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "return not found", err)
		}
		if err != nil {
			return err
		}
		if !domain.CanTransitionReturnStatus(ret.Status, status) {
			return repositories.NewStoreError(repositories.StoreErrorInvalidState,
				fmt.Sprintf("cannot move return from %s to %s", ret.Status, status), nil)
		}
		if err := tx.Model(&domain.Return{}).Where("id = ?", id).
			Updates(map[string]any{"status": status, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
