// Package events publishes fire-and-forget domain events. Publishing failures
// never fail the originating request; callers log and move on.
package events

import (
	"context"
	"time"
)

// OrderEvent announces an order lifecycle change.
type OrderEvent struct {
	Type        string    `json:"type"` // order.created | order.paid | order.status_changed
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId,omitempty"`
	TotalCents  int64     `json:"totalCents"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// StockEvent announces a ledger change for downstream consumers.
type StockEvent struct {
	Type        string    `json:"type"` // stock.allocated | stock.adjusted
	ProductID   string    `json:"productId"`
	WarehouseID string    `json:"warehouseId,omitempty"`
	Stock       int       `json:"stock"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher is the outbound event contract.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
	PublishStockEvent(ctx context.Context, event StockEvent) error
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
func (NopPublisher) PublishStockEvent(context.Context, StockEvent) error { return nil }
