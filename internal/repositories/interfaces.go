package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
)

// ProductFilter narrows and orders catalog listings.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Type       *domain.ProductType
	Search     string
	MinPrice   *int64
	MaxPrice   *int64
	InStock    bool
	SortBy     string // name | price | created_at
	SortDesc   bool
	Limit      int
	Offset     int
}

// CategoryFacet is the product count for one category under the active filter.
type CategoryFacet struct {
	CategoryID uuid.UUID `json:"categoryId"`
	Count      int64     `json:"count"`
}

// CatalogRepository owns products and categories.
type CatalogRepository interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	ListVariants(ctx context.Context, parentID uuid.UUID) ([]domain.Product, error)
	CategoryFacets(ctx context.Context) ([]CategoryFacet, error)

	CreateCategory(ctx context.Context, category *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// WarehouseRepository owns warehouse rows.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *domain.Warehouse) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error)
	List(ctx context.Context) ([]domain.Warehouse, error)
}

// InventoryRepository is the stock ledger. SetStock is the only write path that
// exists outside the order transaction; both recompute the denormalized
// product stock from the ledger inside their own transaction.
type InventoryRepository interface {
	SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
}

// CartRepository owns the per-user open cart and its items.
type CartRepository interface {
	GetOpenCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	Merge(ctx context.Context, userID uuid.UUID, items []domain.CartItem) (*domain.Cart, error)
}

// OrderLine is one requested line of a new order, priced by the caller from
// the current catalog.
type OrderLine struct {
	ProductID  uuid.UUID
	Quantity   int
	PriceCents int64
}

// CreateOrderRequest carries everything the order transaction persists.
type CreateOrderRequest struct {
	Number          string
	UserID          *uuid.UUID
	Email           string
	ShippingName    string
	ShippingAddress string
	ShippingPhone   string
	Currency        string
	Lines           []OrderLine
	SubtotalCents   int64
	TaxCents        int64
	ShippingCents   int64
	TotalCents      int64
	PointsEarned    int64
	PointsRedeemed  int64
	GiftCardCode    string
	GiftCardCents   int64
	PaymentProvider string
	Now             time.Time
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	UserID *uuid.UUID
	Status *domain.OrderStatus
	Limit  int
	Offset int
}

// OrderRepository persists orders. Create runs the full allocation transaction:
// stock allocation across warehouses, ledger decrements, backorders, cart
// rollover, loyalty and gift-card adjustments, and the first tracking row are
// all atomic as a unit.
type OrderRepository interface {
	Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string, now time.Time) (*domain.Order, error)
	MarkPaymentInitiated(ctx context.Context, id uuid.UUID, provider, paymentRef string, now time.Time) error
	MarkPaid(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error)
	MarkPaymentFailed(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error)
}

// GiftCardRepository owns gift cards. Balance decrements during checkout happen
// inside the order transaction, not here.
type GiftCardRepository interface {
	Create(ctx context.Context, card *domain.GiftCard) error
	GetByCode(ctx context.Context, code string) (*domain.GiftCard, error)
}

// ReturnRepository owns return requests.
type ReturnRepository interface {
	Create(ctx context.Context, ret *domain.Return) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Return, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReturnStatus, now time.Time) (*domain.Return, error)
}

// UserRepository reads user rows; loyalty balances mutate inside the order
// transaction only.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
