package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid arguments.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartProductNotFound indicates the product being added does not exist.
	ErrCartProductNotFound = errors.New("cart: product not found")
)

// CartServiceDeps bundles the collaborators required to construct a cart service.
type CartServiceDeps struct {
	Carts   repositories.CartRepository
	Catalog repositories.CatalogRepository
	Logger  Logger
}

type cartService struct {
	carts   repositories.CartRepository
	catalog repositories.CatalogRepository
	logger  Logger
}

// NewCartService wires dependencies into a concrete CartService.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{carts: deps.Carts, catalog: deps.Catalog, logger: logger}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	cart, err := s.carts.GetOpenCart(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return *cart, nil
}

// AddItem sets the quantity for a product line, creating or replacing it.
// Quantities are not validated against stock; availability is settled at
// checkout where it can be enforced atomically.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		var storeErr *repositories.StoreError
		if errors.As(err, &storeErr) && storeErr.Code == repositories.StoreErrorNotFound {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartProductNotFound, productID)
		}
		return domain.Cart{}, err
	}

	cart, err := s.carts.UpsertItem(ctx, userID, productID, quantity)
	if err != nil {
		return domain.Cart{}, err
	}
	return *cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (domain.Cart, error) {
	cart, err := s.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	return *cart, nil
}

// Merge folds a guest cart into the user's open cart at login. Quantities for
// shared products add together; lines whose products have vanished are
// silently dropped.
func (s *cartService) Merge(ctx context.Context, userID uuid.UUID, items []MergeItem) (domain.Cart, error) {
	incoming := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			continue
		}
		incoming = append(incoming, domain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	cart, err := s.carts.Merge(ctx, userID, incoming)
	if err != nil {
		return domain.Cart{}, err
	}

	s.logger(ctx, "cart.merged", map[string]any{
		"userId":   userID.String(),
		"incoming": len(incoming),
		"lines":    len(cart.Items),
	})
	return *cart, nil
}
