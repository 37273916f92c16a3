package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/events"
	"github.com/sokoline/api/internal/repositories"
)

type stubOrderRepo struct {
	createFn               func(ctx context.Context, req repositories.CreateOrderRequest) (*domain.Order, error)
	getFn                  func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	getForUserFn           func(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error)
	listFn                 func(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error)
	updateStatusFn         func(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string, now time.Time) (*domain.Order, error)
	markPaymentInitiatedFn func(ctx context.Context, id uuid.UUID, provider, paymentRef string, now time.Time) error
	markPaidFn             func(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error)
	markPaymentFailedFn    func(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error)
}

func (s *stubOrderRepo) Create(ctx context.Context, req repositories.CreateOrderRequest) (*domain.Order, error) {
	return s.createFn(ctx, req)
}

func (s *stubOrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error) {
	return s.getForUserFn(ctx, id, userID)
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error) {
	return s.listFn(ctx, filter)
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string, now time.Time) (*domain.Order, error) {
	return s.updateStatusFn(ctx, id, status, description, now)
}

func (s *stubOrderRepo) MarkPaymentInitiated(ctx context.Context, id uuid.UUID, provider, paymentRef string, now time.Time) error {
	return s.markPaymentInitiatedFn(ctx, id, provider, paymentRef, now)
}

func (s *stubOrderRepo) MarkPaid(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error) {
	return s.markPaidFn(ctx, paymentRef, now)
}

func (s *stubOrderRepo) MarkPaymentFailed(ctx context.Context, paymentRef string, now time.Time) (*domain.Order, error) {
	return s.markPaymentFailedFn(ctx, paymentRef, now)
}

type stubCatalogRepo struct {
	createProductFn  func(ctx context.Context, product *domain.Product) error
	updateProductFn  func(ctx context.Context, product *domain.Product) error
	deleteProductFn  func(ctx context.Context, id uuid.UUID) error
	getProductFn     func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	getProductsFn    func(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error)
	listProductsFn   func(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, int64, error)
	listVariantsFn   func(ctx context.Context, parentID uuid.UUID) ([]domain.Product, error)
	categoryFacetsFn func(ctx context.Context) ([]repositories.CategoryFacet, error)
	createCategoryFn func(ctx context.Context, category *domain.Category) error
	listCategoriesFn func(ctx context.Context) ([]domain.Category, error)
}

func (s *stubCatalogRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.createProductFn(ctx, product)
}

func (s *stubCatalogRepo) UpdateProduct(ctx context.Context, product *domain.Product) error {
	return s.updateProductFn(ctx, product)
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.deleteProductFn(ctx, id)
}

func (s *stubCatalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.getProductFn(ctx, id)
}

func (s *stubCatalogRepo) GetProducts(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	return s.getProductsFn(ctx, ids)
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, int64, error) {
	return s.listProductsFn(ctx, filter)
}

func (s *stubCatalogRepo) ListVariants(ctx context.Context, parentID uuid.UUID) ([]domain.Product, error) {
	return s.listVariantsFn(ctx, parentID)
}

func (s *stubCatalogRepo) CategoryFacets(ctx context.Context) ([]repositories.CategoryFacet, error) {
	return s.categoryFacetsFn(ctx)
}

func (s *stubCatalogRepo) CreateCategory(ctx context.Context, category *domain.Category) error {
	return s.createCategoryFn(ctx, category)
}

func (s *stubCatalogRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCategoriesFn(ctx)
}

type stubGiftCardRepo struct {
	createFn    func(ctx context.Context, card *domain.GiftCard) error
	getByCodeFn func(ctx context.Context, code string) (*domain.GiftCard, error)
}

func (s *stubGiftCardRepo) Create(ctx context.Context, card *domain.GiftCard) error {
	return s.createFn(ctx, card)
}

func (s *stubGiftCardRepo) GetByCode(ctx context.Context, code string) (*domain.GiftCard, error) {
	return s.getByCodeFn(ctx, code)
}

type stubUserRepo struct {
	getFn func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func (s *stubUserRepo) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getFn(ctx, id)
}

type stubCartRepo struct {
	getOpenCartFn func(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	upsertItemFn  func(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	removeItemFn  func(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	mergeFn       func(ctx context.Context, userID uuid.UUID, items []domain.CartItem) (*domain.Cart, error)
}

func (s *stubCartRepo) GetOpenCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.getOpenCartFn(ctx, userID)
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	return s.upsertItemFn(ctx, userID, productID, quantity)
}

func (s *stubCartRepo) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	return s.removeItemFn(ctx, userID, productID)
}

func (s *stubCartRepo) Merge(ctx context.Context, userID uuid.UUID, items []domain.CartItem) (*domain.Cart, error) {
	return s.mergeFn(ctx, userID, items)
}

type stubInventoryRepo struct {
	setStockFn       func(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error)
	listForProductFn func(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error)
	lowStockFn       func(ctx context.Context) ([]domain.Product, error)
}

func (s *stubInventoryRepo) SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error) {
	return s.setStockFn(ctx, productID, warehouseID, stock)
}

func (s *stubInventoryRepo) ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error) {
	return s.listForProductFn(ctx, productID)
}

func (s *stubInventoryRepo) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.lowStockFn(ctx)
}

type stubWarehouseRepo struct {
	createFn func(ctx context.Context, warehouse *domain.Warehouse) error
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error)
	listFn   func(ctx context.Context) ([]domain.Warehouse, error)
}

func (s *stubWarehouseRepo) Create(ctx context.Context, warehouse *domain.Warehouse) error {
	return s.createFn(ctx, warehouse)
}

func (s *stubWarehouseRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Warehouse, error) {
	return s.getFn(ctx, id)
}

func (s *stubWarehouseRepo) List(ctx context.Context) ([]domain.Warehouse, error) {
	return s.listFn(ctx)
}

type stubReturnRepo struct {
	createFn       func(ctx context.Context, ret *domain.Return) error
	getFn          func(ctx context.Context, id uuid.UUID) (*domain.Return, error)
	listForUserFn  func(ctx context.Context, userID uuid.UUID) ([]domain.Return, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status domain.ReturnStatus, now time.Time) (*domain.Return, error)
}

func (s *stubReturnRepo) Create(ctx context.Context, ret *domain.Return) error {
	return s.createFn(ctx, ret)
}

func (s *stubReturnRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	return s.getFn(ctx, id)
}

func (s *stubReturnRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error) {
	return s.listForUserFn(ctx, userID)
}

func (s *stubReturnRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReturnStatus, now time.Time) (*domain.Return, error) {
	return s.updateStatusFn(ctx, id, status, now)
}

type stubPublisher struct {
	orderEvents []events.OrderEvent
	stockEvents []events.StockEvent
	err         error
}

func (s *stubPublisher) PublishOrderEvent(_ context.Context, event events.OrderEvent) error {
	if s.err != nil {
		return s.err
	}
	s.orderEvents = append(s.orderEvents, event)
	return nil
}

func (s *stubPublisher) PublishStockEvent(_ context.Context, event events.StockEvent) error {
	if s.err != nil {
		return s.err
	}
	s.stockEvents = append(s.stockEvents, event)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
