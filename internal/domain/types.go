package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductType determines how a catalog entry participates in listings and checkout.
type ProductType string

const (
	ProductTypeSimple       ProductType = "simple"
	ProductTypeConfigurable ProductType = "configurable"
	ProductTypeBundle       ProductType = "bundle"
	ProductTypeVariant      ProductType = "variant"
)

// OrderStatus tracks fulfilment progress. Transitions only move forward.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// PaymentStatus tracks the provider-confirmed payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// ReturnStatus tracks a return request. Progression is one-way; a return never
// cycles back to pending.
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCompleted ReturnStatus = "completed"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// CanTransitionOrderStatus reports whether an order may move from one status to
// another. Only strictly forward moves along the fulfilment chain are allowed.
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	f, okF := orderStatusRank[from]
	t, okT := orderStatusRank[to]
	return okF && okT && t > f
}

// CanTransitionReturnStatus reports whether a return may move between statuses.
func CanTransitionReturnStatus(from, to ReturnStatus) bool {
	switch from {
	case ReturnStatusPending:
		return to == ReturnStatusApproved || to == ReturnStatusRejected
	case ReturnStatusApproved:
		return to == ReturnStatusCompleted
	default:
		return false
	}
}

// Product is a catalog entry. Stock is derived from the inventory ledger and is
// recomputed inside every transaction that touches the ledger; it is never
// decremented in isolation.
type Product struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name              string            `gorm:"type:text;not null" json:"name"`
	Slug              string            `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	PriceCents        int64             `gorm:"not null;default:0" json:"priceCents"`
	Stock             int               `gorm:"not null;default:0" json:"stock"`
	Type              ProductType       `gorm:"type:text;not null;default:'simple'" json:"type"`
	ParentID          *uuid.UUID        `gorm:"type:uuid;index" json:"parentId,omitempty"`
	CategoryID        *uuid.UUID        `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	Attributes        map[string]string `gorm:"type:jsonb;serializer:json" json:"attributes,omitempty"`
	LowStockThreshold int               `gorm:"not null;default:0" json:"lowStockThreshold"`
	AllowBackorder    bool              `gorm:"not null;default:false" json:"allowBackorder"`
	CreatedAt         time.Time         `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt         time.Time         `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

// Category groups products for browsing and faceting.
type Category struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name     string     `gorm:"type:text;not null" json:"name"`
	Slug     string     `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parentId,omitempty"`
}

func (Category) TableName() string { return "categories" }

// Warehouse is a stock location. Created by admins, never deleted in-flow.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Location  string    `gorm:"type:text" json:"location,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

func (Warehouse) TableName() string { return "warehouses" }

// Inventory holds the per-(product, warehouse) stock count. One row per pair,
// created lazily on first stock write. Stock never goes negative.
type Inventory struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_inventories_product_warehouse" json:"productId"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_inventories_product_warehouse" json:"warehouseId"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Inventory) TableName() string { return "inventories" }

// Cart is a user's basket. A user has at most one open cart; checkout closes it
// and opens a fresh one.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	IsOpen    bool       `gorm:"not null;default:true;index" json:"isOpen"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Cart) TableName() string { return "carts" }

// CartItem is a single product line in a cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_cart_product" json:"cartId"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_cart_product" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}

func (CartItem) TableName() string { return "cart_items" }

// Order is an immutable financial snapshot of a checkout. Monetary fields are
// fixed at creation; only Status and PaymentStatus mutate afterwards, via
// explicit transitions that append OrderTracking rows.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number          string          `gorm:"type:text;not null;uniqueIndex" json:"number"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index" json:"userId,omitempty"`
	Email           string          `gorm:"type:text;not null" json:"email"`
	ShippingName    string          `gorm:"type:text" json:"shippingName,omitempty"`
	ShippingAddress string          `gorm:"type:text" json:"shippingAddress,omitempty"`
	ShippingPhone   string          `gorm:"type:text" json:"shippingPhone,omitempty"`
	Currency        string          `gorm:"type:char(3);not null;default:'KES'" json:"currency"`
	SubtotalCents   int64           `gorm:"not null" json:"subtotalCents"`
	TaxCents        int64           `gorm:"not null" json:"taxCents"`
	ShippingCents   int64           `gorm:"not null" json:"shippingCents"`
	TotalCents      int64           `gorm:"not null" json:"totalCents"`
	PointsEarned    int64           `gorm:"not null;default:0" json:"pointsEarned"`
	PointsRedeemed  int64           `gorm:"not null;default:0" json:"pointsRedeemed"`
	GiftCardCode    string          `gorm:"type:text" json:"giftCardCode,omitempty"`
	GiftCardCents   int64           `gorm:"not null;default:0" json:"giftCardCents"`
	Status          OrderStatus     `gorm:"type:text;not null;default:'pending';index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:text;not null;default:'pending'" json:"paymentStatus"`
	PaymentProvider string          `gorm:"type:text" json:"paymentProvider,omitempty"`
	PaymentRef      string          `gorm:"type:text;index" json:"paymentRef,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Tracking        []OrderTracking `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"tracking,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:now();index" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one allocation of an order line against a warehouse. WarehouseID
// is nil exactly when the line is backordered. A single (order, product) pair
// may span several rows when stock was split across warehouses.
type OrderItem struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"productId"`
	WarehouseID   *uuid.UUID `gorm:"type:uuid" json:"warehouseId,omitempty"`
	Quantity      int        `gorm:"not null" json:"quantity"`
	PriceCents    int64      `gorm:"not null" json:"priceCents"`
	IsBackordered bool       `gorm:"not null;default:false" json:"isBackordered"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderTracking is the append-only audit log of order status changes.
type OrderTracking struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"orderId"`
	Status      OrderStatus `gorm:"type:text;not null" json:"status"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time   `gorm:"not null;default:now()" json:"createdAt"`
}

func (OrderTracking) TableName() string { return "order_tracking" }

// Return is a customer return request against an order.
type Return struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID    `gorm:"type:uuid;not null;index" json:"orderId"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"userId"`
	Reason    string       `gorm:"type:text" json:"reason,omitempty"`
	Status    ReturnStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:now()" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null;default:now()" json:"updatedAt"`
}

func (Return) TableName() string { return "returns" }

// GiftCard carries prepaid value. InitialCents is fixed at creation and
// RemainingCents only ever decreases, floored at zero.
type GiftCard struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code           string     `gorm:"type:text;not null;uniqueIndex" json:"code"`
	InitialCents   int64      `gorm:"not null" json:"initialCents"`
	RemainingCents int64      `gorm:"not null" json:"remainingCents"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"createdAt"`
}

func (GiftCard) TableName() string { return "gift_cards" }

// User holds the loyalty balance and admin flag. Account lifecycle and
// credentials are managed elsewhere.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email         string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name          string    `gorm:"type:text" json:"name,omitempty"`
	IsAdmin       bool      `gorm:"not null;default:false" json:"isAdmin"`
	LoyaltyPoints int64     `gorm:"not null;default:0" json:"loyaltyPoints"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"createdAt"`
}

func (User) TableName() string { return "users" }
