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

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository constructs the gorm-backed order repository.
func NewOrderRepository(db *gorm.DB) repositories.OrderRepository {
	return &orderRepository{db: db}
}

// Create persists an order with all of its side effects in one transaction:
// per-line warehouse allocation, ledger decrements, backorder rows, cart
// rollover, loyalty and gift-card adjustments, and the initial tracking row.
// Any failure rolls the whole unit back; no partial allocation is ever
// persisted.
func (r *orderRepository) Create(ctx context.Context, req repositories.CreateOrderRequest) (*domain.Order, error) {
	if len(req.Lines) == 0 {
		return nil, repositories.NewStoreError(repositories.StoreErrorInvalidState, "order has no lines", nil)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var created domain.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order := domain.Order{
			Number:          req.Number,
			UserID:          req.UserID,
			Email:           req.Email,
			ShippingName:    req.ShippingName,
			ShippingAddress: req.ShippingAddress,
			ShippingPhone:   req.ShippingPhone,
			Currency:        req.Currency,
			SubtotalCents:   req.SubtotalCents,
			TaxCents:        req.TaxCents,
			ShippingCents:   req.ShippingCents,
			TotalCents:      req.TotalCents,
			PointsEarned:    req.PointsEarned,
			PointsRedeemed:  req.PointsRedeemed,
			GiftCardCode:    req.GiftCardCode,
			GiftCardCents:   req.GiftCardCents,
			Status:          domain.OrderStatusPending,
			PaymentStatus:   domain.PaymentStatusPending,
			PaymentProvider: req.PaymentProvider,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, line := range req.Lines {
			if err := allocateLine(tx, order.ID, line, now); err != nil {
				return err
			}
		}

		if req.UserID != nil {
			if err := rolloverCart(tx, *req.UserID, now); err != nil {
				return err
			}
			delta := req.PointsEarned - req.PointsRedeemed
			if delta != 0 {
				res := tx.Exec(`UPDATE users SET loyalty_points = loyalty_points + ? WHERE id = ?`, delta, *req.UserID)
				if res.Error != nil {
					return fmt.Errorf("adjust loyalty: %w", res.Error)
				}
				if res.RowsAffected == 0 {
					return repositories.NewStoreError(repositories.StoreErrorNotFound, "user not found", nil)
				}
			}
		}

		if req.GiftCardCode != "" && req.GiftCardCents > 0 {
			res := tx.Exec(
				`UPDATE gift_cards SET remaining_cents = GREATEST(remaining_cents - ?, 0) WHERE code = ?`,
				req.GiftCardCents, req.GiftCardCode,
			)
			if res.Error != nil {
				return fmt.Errorf("redeem gift card: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return repositories.NewStoreError(repositories.StoreErrorNotFound, "gift card not found", nil)
			}
		}

		tracking := domain.OrderTracking{
			OrderID:     order.ID,
			Status:      domain.OrderStatusPending,
			Description: "Order placed successfully.",
			CreatedAt:   now,
		}
		if err := tx.Create(&tracking).Error; err != nil {
			return fmt.Errorf("insert tracking: %w", err)
		}

		return tx.Preload("Items").Preload("Tracking").First(&created, "id = ?", order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// allocateLine locks the product and its ledger rows, walks warehouses from
// fullest to emptiest, and writes one order item per non-zero allocation plus
// a backorder row for any shortfall the product permits.
func allocateLine(tx *gorm.DB, orderID uuid.UUID, line repositories.OrderLine, now time.Time) error {
	var product domain.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", line.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.NewStoreError(repositories.StoreErrorNotFound,
			fmt.Sprintf("product %s not found", line.ProductID), err)
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	var rows []domain.Inventory
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", line.ProductID).
		Order("stock DESC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("lock inventory: %w", err)
	}

	levels := make([]domain.StockLevel, len(rows))
	for i, row := range rows {
		levels[i] = domain.StockLevel{WarehouseID: row.WarehouseID, Stock: row.Stock}
	}

	allocations, backordered := domain.AllocateStock(line.Quantity, levels)
	if backordered > 0 && !product.AllowBackorder {
		return repositories.NewStoreError(repositories.StoreErrorInsufficientStock,
			fmt.Sprintf("insufficient stock for product %s", line.ProductID), nil)
	}

	for _, alloc := range allocations {
		// Conditional decrement keeps the ledger non-negative even if the row
		// lock discipline is ever bypassed by another writer.
		res := tx.Exec(
			`UPDATE inventories SET stock = stock - ?, updated_at = ? WHERE product_id = ? AND warehouse_id = ? AND stock >= ?`,
			alloc.Quantity, now, line.ProductID, alloc.WarehouseID, alloc.Quantity,
		)
		if res.Error != nil {
			return fmt.Errorf("decrement inventory: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return repositories.NewStoreError(repositories.StoreErrorInsufficientStock,
				fmt.Sprintf("insufficient stock for product %s", line.ProductID), nil)
		}

		warehouseID := alloc.WarehouseID
		item := domain.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			WarehouseID: &warehouseID,
			Quantity:    alloc.Quantity,
			PriceCents:  line.PriceCents,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if backordered > 0 {
		item := domain.OrderItem{
			OrderID:       orderID,
			ProductID:     line.ProductID,
			Quantity:      backordered,
			PriceCents:    line.PriceCents,
			IsBackordered: true,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("insert backorder item: %w", err)
		}
	}

	return recomputeProductStock(tx, line.ProductID, now)
}

// recomputeProductStock rewrites the denormalized product stock from the sum
// of its ledger rows. Every write path goes through this inside its own
// transaction, so the cached value cannot drift from the ledger.
func recomputeProductStock(tx *gorm.DB, productID uuid.UUID, now time.Time) error {
	err := tx.Exec(
		`UPDATE products
		 SET stock = (SELECT COALESCE(SUM(stock), 0) FROM inventories WHERE product_id = ?),
		     updated_at = ?
		 WHERE id = ?`,
		productID, now, productID,
	).Error
	if err != nil {
		return fmt.Errorf("recompute product stock: %w", err)
	}
	return nil
}

// rolloverCart closes the user's open cart and immediately opens an empty one.
func rolloverCart(tx *gorm.DB, userID uuid.UUID, now time.Time) error {
	if err := tx.Model(&domain.Cart{}).
		Where("user_id = ? AND is_open = true", userID).
		Updates(map[string]any{"is_open": false, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("close cart: %w", err)
	}
	fresh := domain.Cart{UserID: userID, IsOpen: true, CreatedAt: now, UpdatedAt: now}
	if err := tx.Create(&fresh).Error; err != nil {
		return fmt.Errorf("open cart: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "order not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "order not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var orders []domain.Order
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Preload("Items").Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string, now time.Time) (*domain.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "order not found", err)
		}
		if err != nil {
			return err
		}
		if !domain.CanTransitionOrderStatus(order.Status, status) {
			return repositories.NewStoreError(repositories.StoreErrorInvalidState,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, status), nil)
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", id).
			Updates(map[string]any{"status": status, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.OrderTracking{
			OrderID:     id,
			Status:      status,
			Description: description,
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *orderRepository) MarkPaymentInitiated(ctx context.Context, id uuid.UUID, provider, paymentRef string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", id, domain.PaymentStatusPending).
		Updates(map[string]any{
			"payment_provider": provider,
			"payment_ref":      paymentRef,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.NewStoreError(repositories.StoreErrorInvalidState, "order is not awaiting payment", nil)
	}
	return nil
}

// MarkPaid flips the payment to paid and the order into processing, appending
// a tracking row, all in one transaction. The payment reference is the
// provider's transaction id recorded at initiation.
func (r *orderRepository) MarkPaid(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error) {
	var orderID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "payment_ref = ?", paymentRef).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repositories.NewStoreError(repositories.StoreErrorNotFound, "no order for payment reference", err)
		}
		if err != nil {
			return err
		}
		if order.PaymentStatus == domain.PaymentStatusPaid {
			orderID = order.ID
			return nil // webhook retries are expected
		}
		if err := tx.Model(&domain.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"payment_status": domain.PaymentStatusPaid,
			"status":         domain.OrderStatusProcessing,
			"updated_at":     now,
		}).Error; err != nil {
			return err
		}
		orderID = order.ID
		return tx.Create(&domain.OrderTracking{
			OrderID:     order.ID,
			Status:      domain.OrderStatusProcessing,
			Description: "Payment confirmed.",
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

func (r *orderRepository) MarkPaymentFailed(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).First(&order, "payment_ref = ?", paymentRef).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "no order for payment reference", err)
	}
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, domain.PaymentStatusPending).
		Updates(map[string]any{"payment_status": domain.PaymentStatusFailed, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, order.ID)
}
