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
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryNotFound indicates a missing product or warehouse reference.
	ErrInventoryNotFound = errors.New("inventory: not found")
)

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Inventory  repositories.InventoryRepository
	Warehouses repositories.WarehouseRepository
	Events     events.Publisher
	Clock      func() time.Time
	Logger     Logger
}

type inventoryService struct {
	inventory  repositories.InventoryRepository
	warehouses repositories.WarehouseRepository
	events     events.Publisher
	clock      func() time.Time
	logger     Logger
}

// NewInventoryService wires dependencies into a concrete InventoryService.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}
	if deps.Warehouses == nil {
		return nil, errors.New("inventory service: warehouse repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &inventoryService{
		inventory:  deps.Inventory,
		warehouses: deps.Warehouses,
		events:     deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// SetStock overwrites the absolute stock count for one (product, warehouse)
// pair. The row is created on first write; repeating the same value is a
// no-op on the ledger.
func (s *inventoryService) SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error) {
	if stock < 0 {
		return domain.Inventory{}, fmt.Errorf("%w: stock must be >= 0", ErrInventoryInvalidInput)
	}

	inv, err := s.inventory.SetStock(ctx, productID, warehouseID, stock)
	if err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return domain.Inventory{}, fmt.Errorf("%w: %s", ErrInventoryNotFound, storeErr.Message)
		}
		return domain.Inventory{}, err
	}

	if s.events != nil {
		event := events.StockEvent{
			Type:        "stock.adjusted",
			ProductID:   productID.String(),
			WarehouseID: warehouseID.String(),
			Stock:       inv.Stock,
			OccurredAt:  s.clock(),
		}
		if err := s.events.PublishStockEvent(ctx, event); err != nil {
			s.logger(ctx, "stock_event_publish_failed", map[string]any{"error": err.Error()})
		}
	}

	return inv, nil
}

func (s *inventoryService) ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error) {
	return s.inventory.ListForProduct(ctx, productID)
}

// LowStockAlerts lists products whose derived stock has fallen to or below
// their per-product threshold.
func (s *inventoryService) LowStockAlerts(ctx context.Context) ([]domain.Product, error) {
	return s.inventory.LowStock(ctx)
}

func (s *inventoryService) CreateWarehouse(ctx context.Context, name, location string) (domain.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Warehouse{}, fmt.Errorf("%w: warehouse name is required", ErrInventoryInvalidInput)
	}

	warehouse := domain.Warehouse{Name: name, Location: strings.TrimSpace(location)}
	if err := s.warehouses.Create(ctx, &warehouse); err != nil {
		return domain.Warehouse{}, err
	}

	s.logger(ctx, "warehouse.created", map[string]any{"warehouseId": warehouse.ID.String(), "name": warehouse.Name})
	return warehouse, nil
}

func (s *inventoryService) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.warehouses.List(ctx)
}
