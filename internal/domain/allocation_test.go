package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestAllocateStockDrainsFullestWarehouseFirst(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	levels := []StockLevel{
		{WarehouseID: a, Stock: 5},
		{WarehouseID: b, Stock: 3},
		{WarehouseID: c, Stock: 0},
	}

	allocations, backordered := AllocateStock(6, levels)
	if backordered != 0 {
		t.Fatalf("expected no backorder, got %d", backordered)
	}
	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	if allocations[0].WarehouseID != a || allocations[0].Quantity != 5 {
		t.Fatalf("first allocation should drain warehouse a fully, got %+v", allocations[0])
	}
	if allocations[1].WarehouseID != b || allocations[1].Quantity != 1 {
		t.Fatalf("second allocation should take 1 from warehouse b, got %+v", allocations[1])
	}
}

func TestAllocateStockReportsShortfall(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	levels := []StockLevel{
		{WarehouseID: a, Stock: 5},
		{WarehouseID: b, Stock: 3},
	}

	allocations, backordered := AllocateStock(10, levels)
	if backordered != 2 {
		t.Fatalf("expected 2 backordered, got %d", backordered)
	}
	if len(allocations) != 2 || allocations[0].Quantity != 5 || allocations[1].Quantity != 3 {
		t.Fatalf("unexpected allocations %+v", allocations)
	}
}

func TestAllocateStockSkipsEmptyWarehouses(t *testing.T) {
	a := uuid.New()
	levels := []StockLevel{
		{WarehouseID: uuid.New(), Stock: 0},
		{WarehouseID: a, Stock: 4},
	}

	allocations, backordered := AllocateStock(2, levels)
	if backordered != 0 || len(allocations) != 1 {
		t.Fatalf("unexpected result allocations=%+v backordered=%d", allocations, backordered)
	}
	if allocations[0].WarehouseID != a || allocations[0].Quantity != 2 {
		t.Fatalf("unexpected allocation %+v", allocations[0])
	}
}

func TestAllocateStockBreaksTiesByWarehouseID(t *testing.T) {
	low := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	high := uuid.MustParse("99999999-9999-9999-9999-999999999999")

	// Same stock either way the rows arrive: the lower warehouse id wins.
	for _, levels := range [][]StockLevel{
		{{WarehouseID: high, Stock: 4}, {WarehouseID: low, Stock: 4}},
		{{WarehouseID: low, Stock: 4}, {WarehouseID: high, Stock: 4}},
	} {
		allocations, backordered := AllocateStock(3, levels)
		if backordered != 0 || len(allocations) != 1 {
			t.Fatalf("unexpected result allocations=%+v backordered=%d", allocations, backordered)
		}
		if allocations[0].WarehouseID != low {
			t.Fatalf("tie broken toward %s, want %s", allocations[0].WarehouseID, low)
		}
	}
}

func TestAllocateStockZeroDemand(t *testing.T) {
	allocations, backordered := AllocateStock(0, []StockLevel{{WarehouseID: uuid.New(), Stock: 10}})
	if allocations != nil || backordered != 0 {
		t.Fatalf("expected empty result, got %+v / %d", allocations, backordered)
	}
}

func TestAllocateStockDoesNotMutateInput(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	levels := []StockLevel{
		{WarehouseID: a, Stock: 1},
		{WarehouseID: b, Stock: 9},
	}

	_, _ = AllocateStock(3, levels)
	if levels[0].WarehouseID != a || levels[1].WarehouseID != b {
		t.Fatalf("input slice order changed: %+v", levels)
	}
}

func TestCanTransitionOrderStatus(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusDelivered, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatus("bogus"), OrderStatusShipped, false},
	}
	for _, tc := range cases {
		if got := CanTransitionOrderStatus(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionOrderStatus(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanTransitionReturnStatus(t *testing.T) {
	cases := []struct {
		from, to ReturnStatus
		want     bool
	}{
		{ReturnStatusPending, ReturnStatusApproved, true},
		{ReturnStatusPending, ReturnStatusRejected, true},
		{ReturnStatusApproved, ReturnStatusCompleted, true},
		{ReturnStatusPending, ReturnStatusCompleted, false},
		{ReturnStatusRejected, ReturnStatusPending, false},
		{ReturnStatusCompleted, ReturnStatusApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransitionReturnStatus(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionReturnStatus(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
