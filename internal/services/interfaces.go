package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

// Logger is the minimal structured logging contract services depend on.
type Logger func(ctx context.Context, event string, fields map[string]any)

// CatalogService exposes catalog reads and admin writes.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, cmd UpsertProductCommand) (domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (ProductDetail, error)
	ListProducts(ctx context.Context, filter repositories.ProductFilter) (ProductPage, error)
	CreateCategory(ctx context.Context, name, slug string, parentID *uuid.UUID) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// UpsertProductCommand carries admin product writes.
type UpsertProductCommand struct {
	Name              string
	Slug              string
	Description       string
	PriceCents        int64
	Type              domain.ProductType
	ParentID          *uuid.UUID
	CategoryID        *uuid.UUID
	Attributes        map[string]string
	LowStockThreshold int
	AllowBackorder    bool
}

// ProductDetail is a product with its variants.
type ProductDetail struct {
	Product  domain.Product   `json:"product"`
	Variants []domain.Product `json:"variants,omitempty"`
}

// ProductPage is one page of a filtered listing plus category facets.
type ProductPage struct {
	Items  []domain.Product             `json:"items"`
	Total  int64                        `json:"total"`
	Facets []repositories.CategoryFacet `json:"facets,omitempty"`
}

// CartService owns basket mutation for authenticated users.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error)
	Merge(ctx context.Context, userID uuid.UUID, items []MergeItem) (domain.Cart, error)
}

// MergeItem is one locally-held guest cart line submitted at login.
type MergeItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// OrderLineInput is one requested product line at checkout. Prices are never
// accepted from the client; the order service snapshots them from the catalog.
type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderCommand carries a checkout submission.
type CreateOrderCommand struct {
	UserID          *uuid.UUID
	Email           string
	ShippingName    string
	ShippingAddress string
	ShippingPhone   string
	Lines           []OrderLineInput
	GiftCardCode    string
	RedeemPoints    int64
	PaymentProvider string
}

// OrderService turns carts into persisted orders and exposes order reads and
// admin status transitions.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (domain.Order, error)
	ListOrders(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string) (domain.Order, error)
}

// InventoryService is the admin surface over the stock ledger.
type InventoryService interface {
	SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error)
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error)
	LowStockAlerts(ctx context.Context) ([]domain.Product, error)
	CreateWarehouse(ctx context.Context, name, location string) (domain.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
}

// GiftCardService issues and verifies gift cards.
type GiftCardService interface {
	Create(ctx context.Context, initialCents int64, expiresAt *time.Time) (domain.GiftCard, error)
	Verify(ctx context.Context, code string) (domain.GiftCard, error)
}

// ReturnService owns return requests and their one-way progression.
type ReturnService interface {
	Create(ctx context.Context, userID, orderID uuid.UUID, reason string) (domain.Return, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error)
	Transition(ctx context.Context, id uuid.UUID, status domain.ReturnStatus) (domain.Return, error)
}

// PaymentService drives provider adapters and the resulting order transitions.
type PaymentService interface {
	Initiate(ctx context.Context, orderID uuid.UUID, provider string, phone string) (PaymentInitiation, error)
	Confirm(ctx context.Context, provider, transactionID string) (domain.Order, error)
	Fail(ctx context.Context, provider, transactionID string) (domain.Order, error)
}

// PaymentInitiation is what the client needs to complete a payment.
type PaymentInitiation struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transactionId"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
	ClientSecret  string `json:"clientSecret,omitempty"`
}

// LoyaltyService reads loyalty balances. Mutation happens only inside the
// order transaction.
type LoyaltyService interface {
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}
