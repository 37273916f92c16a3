package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

func TestSetStockRejectsNegative(t *testing.T) {
	svc, err := NewInventoryService(InventoryServiceDeps{
		Inventory:  &stubInventoryRepo{},
		Warehouses: &stubWarehouseRepo{},
	})
	if err != nil {
		t.Fatalf("NewInventoryService: %v", err)
	}

	if _, err := svc.SetStock(context.Background(), uuid.New(), uuid.New(), -1); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput, got %v", err)
	}
}

func TestSetStockPublishesStockEvent(t *testing.T) {
	productID := uuid.New()
	warehouseID := uuid.New()
	pub := &stubPublisher{}
	svc, _ := NewInventoryService(InventoryServiceDeps{
		Inventory: &stubInventoryRepo{
			setStockFn: func(_ context.Context, pid, wid uuid.UUID, stock int) (domain.Inventory, error) {
				return domain.Inventory{ProductID: pid, WarehouseID: wid, Stock: stock}, nil
			},
		},
		Warehouses: &stubWarehouseRepo{},
		Events:     pub,
	})

	if _, err := svc.SetStock(context.Background(), productID, warehouseID, 12); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	if len(pub.stockEvents) != 1 || pub.stockEvents[0].Stock != 12 {
		t.Fatalf("expected one stock.adjusted event, got %+v", pub.stockEvents)
	}
}

func TestSetStockMapsMissingReferences(t *testing.T) {
	svc, _ := NewInventoryService(InventoryServiceDeps{
		Inventory: &stubInventoryRepo{
			setStockFn: func(context.Context, uuid.UUID, uuid.UUID, int) (domain.Inventory, error) {
				return domain.Inventory{}, repositories.NewStoreError(repositories.StoreErrorNotFound, "warehouse not found", nil)
			},
		},
		Warehouses: &stubWarehouseRepo{},
	})

	if _, err := svc.SetStock(context.Background(), uuid.New(), uuid.New(), 5); !errors.Is(err, ErrInventoryNotFound) {
		t.Fatalf("expected ErrInventoryNotFound, got %v", err)
	}
}

func TestSetStockSurvivesPublisherFailure(t *testing.T) {
	svc, _ := NewInventoryService(InventoryServiceDeps{
		Inventory: &stubInventoryRepo{
			setStockFn: func(_ context.Context, pid, wid uuid.UUID, stock int) (domain.Inventory, error) {
				return domain.Inventory{ProductID: pid, WarehouseID: wid, Stock: stock}, nil
			},
		},
		Warehouses: &stubWarehouseRepo{},
		Events:     &stubPublisher{err: errors.New("broker down")},
	})

	if _, err := svc.SetStock(context.Background(), uuid.New(), uuid.New(), 3); err != nil {
		t.Fatalf("publish failure must not fail the write, got %v", err)
	}
}

func TestCreateWarehouseRequiresName(t *testing.T) {
	svc, _ := NewInventoryService(InventoryServiceDeps{
		Inventory:  &stubInventoryRepo{},
		Warehouses: &stubWarehouseRepo{},
	})

	if _, err := svc.CreateWarehouse(context.Background(), "   ", "Nairobi"); !errors.Is(err, ErrInventoryInvalidInput) {
		t.Fatalf("expected ErrInventoryInvalidInput, got %v", err)
	}
}
