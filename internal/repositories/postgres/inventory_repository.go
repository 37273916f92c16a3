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

type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository constructs the gorm-backed stock ledger.
func NewInventoryRepository(db *gorm.DB) repositories.InventoryRepository {
	return &inventoryRepository{db: db}
}

// SetStock upserts the (product, warehouse) ledger row to an absolute value
// and recomputes the denormalized product stock from the full ledger, with the
// product row locked for the duration so checkout decrements cannot interleave.
func (r *inventoryRepository) SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error) {
	if stock < 0 {
		return domain.Inventory{}, repositories.NewStoreError(repositories.StoreErrorInvalidState, "stock must be >= 0", nil)
	}

	now := time.Now().UTC()
	var row domain.Inventory
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product domain.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "product not found", err)
		}
		if err != nil {
			return err
		}

		var warehouseCount int64
		if err := tx.Model(&domain.Warehouse{}).Where("id = ?", warehouseID).Count(&warehouseCount).Error; err != nil {
			return err
		}
		if warehouseCount == 0 {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "warehouse not found", nil)
		}

		row = domain.Inventory{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Stock:       stock,
			UpdatedAt:   now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoUpdates: clause.Assignments(map[string]any{"stock": stock, "updated_at": now}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert inventory: %w", err)
		}

		if err := recomputeProductStock(tx, productID, now); err != nil {
			return err
		}

		return tx.First(&row, "product_id = ? AND warehouse_id = ?", productID, warehouseID).Error
	})
	if err != nil {
		return domain.Inventory{}, err
	}
	return row, nil
}

func (r *inventoryRepository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error) {
	var rows []domain.Inventory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("stock DESC").
		Find(&rows).Error
	return rows, err
}

// LowStock scans products at or under their threshold. Linear by design;
// acceptable at catalog scale.
func (r *inventoryRepository) LowStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("stock <= low_stock_threshold").
		Order("stock ASC").
		Find(&products).Error
	return products, err
}
