package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput signals the caller provided invalid arguments.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product or category does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates a slug collision.
	ErrCatalogConflict = errors.New("catalog: conflict")
)

// CatalogServiceDeps bundles the collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Logger  Logger
}

type catalogService struct {
	catalog repositories.CatalogRepository
	logger  Logger
}

// NewCatalogService wires dependencies into a concrete CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{catalog: deps.Catalog, logger: logger}, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (domain.Product, error) {
	if err := validateProductCommand(cmd); err != nil {
		return domain.Product{}, err
	}

	product := productFromCommand(cmd)
	if err := s.catalog.CreateProduct(ctx, &product); err != nil {
		return domain.Product{}, s.mapStoreError(err)
	}

	s.logger(ctx, "product.created", map[string]any{"productId": product.ID.String(), "slug": product.Slug})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, cmd UpsertProductCommand) (domain.Product, error) {
	if err := validateProductCommand(cmd); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, s.mapStoreError(err)
	}

	updated := productFromCommand(cmd)
	updated.ID = existing.ID
	updated.Stock = existing.Stock
	updated.CreatedAt = existing.CreatedAt
	if err := s.catalog.UpdateProduct(ctx, &updated); err != nil {
		return domain.Product{}, s.mapStoreError(err)
	}
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.catalog.DeleteProduct(ctx, id); err != nil {
		return s.mapStoreError(err)
	}
	s.logger(ctx, "product.deleted", map[string]any{"productId": id.String()})
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (ProductDetail, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return ProductDetail{}, s.mapStoreError(err)
	}

	detail := ProductDetail{Product: *product}
	if product.Type == domain.ProductTypeConfigurable {
		variants, err := s.catalog.ListVariants(ctx, product.ID)
		if err != nil {
			return ProductDetail{}, s.mapStoreError(err)
		}
		detail.Variants = variants
	}
	return detail, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repositories.ProductFilter) (ProductPage, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 24
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.catalog.ListProducts(ctx, filter)
	if err != nil {
		return ProductPage{}, s.mapStoreError(err)
	}
	facets, err := s.catalog.CategoryFacets(ctx)
	if err != nil {
		return ProductPage{}, s.mapStoreError(err)
	}

	return ProductPage{Items: items, Total: total, Facets: facets}, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name, slug string, parentID *uuid.UUID) (domain.Category, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	if name == "" || slug == "" {
		return domain.Category{}, fmt.Errorf("%w: name and slug are required", ErrCatalogInvalidInput)
	}

	category := domain.Category{Name: name, Slug: slug, ParentID: parentID}
	if err := s.catalog.CreateCategory(ctx, &category); err != nil {
		return domain.Category{}, s.mapStoreError(err)
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, s.mapStoreError(err)
	}
	return categories, nil
}

func validateProductCommand(cmd UpsertProductCommand) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if strings.TrimSpace(cmd.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}
	if cmd.PriceCents < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrCatalogInvalidInput)
	}
	if cmd.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold must be >= 0", ErrCatalogInvalidInput)
	}
	switch cmd.Type {
	case domain.ProductTypeSimple, domain.ProductTypeConfigurable, domain.ProductTypeBundle:
	case domain.ProductTypeVariant:
		if cmd.ParentID == nil {
			return fmt.Errorf("%w: variants need a parent product", ErrCatalogInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown product type %q", ErrCatalogInvalidInput, cmd.Type)
	}
	return nil
}

func productFromCommand(cmd UpsertProductCommand) domain.Product {
	return domain.Product{
		Name:              strings.TrimSpace(cmd.Name),
		Slug:              strings.TrimSpace(cmd.Slug),
		Description:       strings.TrimSpace(cmd.Description),
		PriceCents:        cmd.PriceCents,
		Type:              cmd.Type,
		ParentID:          cmd.ParentID,
		CategoryID:        cmd.CategoryID,
		Attributes:        cmd.Attributes,
		LowStockThreshold: cmd.LowStockThreshold,
		AllowBackorder:    cmd.AllowBackorder,
	}
}

func (s *catalogService) mapStoreError(err error) error {
	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case repositories.StoreErrorNotFound:
			return fmt.Errorf("%w: %s", ErrCatalogNotFound, storeErr.Message)
		case repositories.StoreErrorConflict:
			return fmt.Errorf("%w: %s", ErrCatalogConflict, storeErr.Message)
		}
	}
	return err
}
