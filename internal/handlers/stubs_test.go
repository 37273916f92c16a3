package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
	"github.com/sokoline/api/internal/services"
)

type stubCatalogService struct {
	createProductFn  func(context.Context, services.UpsertProductCommand) (domain.Product, error)
	updateProductFn  func(context.Context, uuid.UUID, services.UpsertProductCommand) (domain.Product, error)
	deleteProductFn  func(context.Context, uuid.UUID) error
	getProductFn     func(context.Context, uuid.UUID) (services.ProductDetail, error)
	listProductsFn   func(context.Context, repositories.ProductFilter) (services.ProductPage, error)
	createCategoryFn func(context.Context, string, string, *uuid.UUID) (domain.Category, error)
	listCategoriesFn func(context.Context) ([]domain.Category, error)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (domain.Product, error) {
	if s.createProductFn != nil {
		return s.createProductFn(ctx, cmd)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, cmd services.UpsertProductCommand) (domain.Product, error) {
	if s.updateProductFn != nil {
		return s.updateProductFn(ctx, id, cmd)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if s.deleteProductFn != nil {
		return s.deleteProductFn(ctx, id)
	}
	return errors.New("not implemented")
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (services.ProductDetail, error) {
	if s.getProductFn != nil {
		return s.getProductFn(ctx, id)
	}
	return services.ProductDetail{}, errors.New("not implemented")
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter repositories.ProductFilter) (services.ProductPage, error) {
	if s.listProductsFn != nil {
		return s.listProductsFn(ctx, filter)
	}
	return services.ProductPage{}, errors.New("not implemented")
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, name, slug string, parentID *uuid.UUID) (domain.Category, error) {
	if s.createCategoryFn != nil {
		return s.createCategoryFn(ctx, name, slug, parentID)
	}
	return domain.Category{}, errors.New("not implemented")
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if s.listCategoriesFn != nil {
		return s.listCategoriesFn(ctx)
	}
	return nil, errors.New("not implemented")
}

type stubCartService struct {
	getFn    func(context.Context, uuid.UUID) (domain.Cart, error)
	addFn    func(context.Context, uuid.UUID, uuid.UUID, int) (domain.Cart, error)
	removeFn func(context.Context, uuid.UUID, uuid.UUID) (domain.Cart, error)
	mergeFn  func(context.Context, uuid.UUID, []services.MergeItem) (domain.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.Cart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, userID, productID, quantity)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) Merge(ctx context.Context, userID uuid.UUID, items []services.MergeItem) (domain.Cart, error) {
	if s.mergeFn != nil {
		return s.mergeFn(ctx, userID, items)
	}
	return domain.Cart{}, errors.New("not implemented")
}

type stubOrderService struct {
	createFn     func(context.Context, services.CreateOrderCommand) (domain.Order, error)
	getFn        func(context.Context, uuid.UUID, *uuid.UUID) (domain.Order, error)
	listFn       func(context.Context, repositories.OrderListFilter) ([]domain.Order, int64, error)
	transitionFn func(context.Context, uuid.UUID, domain.OrderStatus, string) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id, userID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, 0, errors.New("not implemented")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, description string) (domain.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, id, status, description)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubInventoryService struct {
	setStockFn        func(context.Context, uuid.UUID, uuid.UUID, int) (domain.Inventory, error)
	listForProductFn  func(context.Context, uuid.UUID) ([]domain.Inventory, error)
	lowStockFn        func(context.Context) ([]domain.Product, error)
	createWarehouseFn func(context.Context, string, string) (domain.Warehouse, error)
	listWarehousesFn  func(context.Context) ([]domain.Warehouse, error)
}

func (s *stubInventoryService) SetStock(ctx context.Context, productID, warehouseID uuid.UUID, stock int) (domain.Inventory, error) {
	if s.setStockFn != nil {
		return s.setStockFn(ctx, productID, warehouseID, stock)
	}
	return domain.Inventory{}, errors.New("not implemented")
}

func (s *stubInventoryService) ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Inventory, error) {
	if s.listForProductFn != nil {
		return s.listForProductFn(ctx, productID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubInventoryService) LowStockAlerts(ctx context.Context) ([]domain.Product, error) {
	if s.lowStockFn != nil {
		return s.lowStockFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (s *stubInventoryService) CreateWarehouse(ctx context.Context, name, location string) (domain.Warehouse, error) {
	if s.createWarehouseFn != nil {
		return s.createWarehouseFn(ctx, name, location)
	}
	return domain.Warehouse{}, errors.New("not implemented")
}

func (s *stubInventoryService) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	if s.listWarehousesFn != nil {
		return s.listWarehousesFn(ctx)
	}
	return nil, errors.New("not implemented")
}

type stubGiftCardService struct {
	createFn func(context.Context, int64, *time.Time) (domain.GiftCard, error)
	verifyFn func(context.Context, string) (domain.GiftCard, error)
}

func (s *stubGiftCardService) Create(ctx context.Context, initialCents int64, expiresAt *time.Time) (domain.GiftCard, error) {
	if s.createFn != nil {
		return s.createFn(ctx, initialCents, expiresAt)
	}
	return domain.GiftCard{}, errors.New("not implemented")
}

func (s *stubGiftCardService) Verify(ctx context.Context, code string) (domain.GiftCard, error) {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, code)
	}
	return domain.GiftCard{}, errors.New("not implemented")
}

type stubReturnService struct {
	createFn     func(context.Context, uuid.UUID, uuid.UUID, string) (domain.Return, error)
	listFn       func(context.Context, uuid.UUID) ([]domain.Return, error)
	transitionFn func(context.Context, uuid.UUID, domain.ReturnStatus) (domain.Return, error)
}

func (s *stubReturnService) Create(ctx context.Context, userID, orderID uuid.UUID, reason string) (domain.Return, error) {
	if s.createFn != nil {
		return s.createFn(ctx, userID, orderID, reason)
	}
	return domain.Return{}, errors.New("not implemented")
}

func (s *stubReturnService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Return, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (s *stubReturnService) Transition(ctx context.Context, id uuid.UUID, status domain.ReturnStatus) (domain.Return, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, id, status)
	}
	return domain.Return{}, errors.New("not implemented")
}

type stubPaymentService struct {
	initiateFn func(context.Context, uuid.UUID, string, string) (services.PaymentInitiation, error)
	confirmFn  func(context.Context, string, string) (domain.Order, error)
	failFn     func(context.Context, string, string) (domain.Order, error)
}

func (s *stubPaymentService) Initiate(ctx context.Context, orderID uuid.UUID, provider, phone string) (services.PaymentInitiation, error) {
	if s.initiateFn != nil {
		return s.initiateFn(ctx, orderID, provider, phone)
	}
	return services.PaymentInitiation{}, errors.New("not implemented")
}

func (s *stubPaymentService) Confirm(ctx context.Context, provider, transactionID string) (domain.Order, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, provider, transactionID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubPaymentService) Fail(ctx context.Context, provider, transactionID string) (domain.Order, error) {
	if s.failFn != nil {
		return s.failFn(ctx, provider, transactionID)
	}
	return domain.Order{}, errors.New("not implemented")
}

type stubLoyaltyService struct {
	balanceFn func(context.Context, uuid.UUID) (int64, error)
}

func (s *stubLoyaltyService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.balanceFn != nil {
		return s.balanceFn(ctx, userID)
	}
	return 0, errors.New("not implemented")
}
