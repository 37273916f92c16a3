package domain

import (
	"sort"

	"github.com/google/uuid"
)

// StockLevel is a warehouse's current stock for a product, as read inside the
// order transaction.
type StockLevel struct {
	WarehouseID uuid.UUID
	Stock       int
}

// Allocation assigns part of a line's demand to a warehouse.
type Allocation struct {
	WarehouseID uuid.UUID
	Quantity    int
}

// AllocateStock walks warehouses from fullest to emptiest, assigning
// min(remaining, stock) to each until demand is satisfied or warehouses are
// exhausted. The greedy drain is a heuristic, not a cost-optimal placement.
// Equal stock levels are ordered by warehouse id so the walk does not depend
// on the order the rows were read in. The returned backordered count is
// whatever demand could not be placed.
func AllocateStock(quantity int, levels []StockLevel) ([]Allocation, int) {
	if quantity <= 0 {
		return nil, 0
	}

	sorted := make([]StockLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Stock != sorted[j].Stock {
			return sorted[i].Stock > sorted[j].Stock
		}
		return sorted[i].WarehouseID.String() < sorted[j].WarehouseID.String()
	})

	remaining := quantity
	var allocations []Allocation
	for _, level := range sorted {
		if remaining == 0 {
			break
		}
		if level.Stock <= 0 {
			continue
		}
		take := level.Stock
		if take > remaining {
			take = remaining
		}
		allocations = append(allocations, Allocation{WarehouseID: level.WarehouseID, Quantity: take})
		remaining -= take
	}

	return allocations, remaining
}
