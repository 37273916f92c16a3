package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

func TestCreateProductValidation(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: &stubCatalogRepo{}})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}

	parent := uuid.New()
	cases := []struct {
		name string
		cmd  UpsertProductCommand
	}{
		{"missing name", UpsertProductCommand{Slug: "mug", Type: domain.ProductTypeSimple}},
		{"missing slug", UpsertProductCommand{Name: "Mug", Type: domain.ProductTypeSimple}},
		{"negative price", UpsertProductCommand{Name: "Mug", Slug: "mug", PriceCents: -1, Type: domain.ProductTypeSimple}},
		{"unknown type", UpsertProductCommand{Name: "Mug", Slug: "mug", Type: "weird"}},
		{"variant without parent", UpsertProductCommand{Name: "Mug red", Slug: "mug-red", Type: domain.ProductTypeVariant}},
		{"negative threshold", UpsertProductCommand{Name: "Mug", Slug: "mug", Type: domain.ProductTypeSimple, LowStockThreshold: -5}},
	}
	_ = parent
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateProductAcceptsVariantWithParent(t *testing.T) {
	parent := uuid.New()
	repo := &stubCatalogRepo{
		createProductFn: func(_ context.Context, product *domain.Product) error {
			product.ID = uuid.New()
			return nil
		},
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	product, err := svc.CreateProduct(context.Background(), UpsertProductCommand{
		Name:     "Mug red",
		Slug:     "mug-red",
		Type:     domain.ProductTypeVariant,
		ParentID: &parent,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if product.ParentID == nil || *product.ParentID != parent {
		t.Fatalf("parent not carried through: %+v", product)
	}
}

func TestCreateProductMapsSlugConflict(t *testing.T) {
	repo := &stubCatalogRepo{
		createProductFn: func(context.Context, *domain.Product) error {
			return repositories.NewStoreError(repositories.StoreErrorConflict, "slug already in use", nil)
		},
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	_, err := svc.CreateProduct(context.Background(), UpsertProductCommand{Name: "Mug", Slug: "mug", Type: domain.ProductTypeSimple})
	if !errors.Is(err, ErrCatalogConflict) {
		t.Fatalf("expected ErrCatalogConflict, got %v", err)
	}
}

func TestUpdateProductPreservesDerivedStock(t *testing.T) {
	id := uuid.New()
	var updated *domain.Product
	repo := &stubCatalogRepo{
		getProductFn: func(_ context.Context, pid uuid.UUID) (*domain.Product, error) {
			return &domain.Product{ID: pid, Name: "Mug", Slug: "mug", Stock: 17, Type: domain.ProductTypeSimple}, nil
		},
		updateProductFn: func(_ context.Context, product *domain.Product) error {
			updated = product
			return nil
		},
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	if _, err := svc.UpdateProduct(context.Background(), id, UpsertProductCommand{
		Name: "Mug v2", Slug: "mug", PriceCents: 9900, Type: domain.ProductTypeSimple,
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	// Stock is derived from the inventory ledger; an admin edit must not
	// overwrite it.
	if updated.Stock != 17 {
		t.Fatalf("stock = %d, want 17", updated.Stock)
	}
	if updated.Name != "Mug v2" || updated.PriceCents != 9900 {
		t.Fatalf("edit not applied: %+v", updated)
	}
}

func TestGetProductLoadsVariantsForConfigurable(t *testing.T) {
	id := uuid.New()
	repo := &stubCatalogRepo{
		getProductFn: func(_ context.Context, pid uuid.UUID) (*domain.Product, error) {
			return &domain.Product{ID: pid, Type: domain.ProductTypeConfigurable}, nil
		},
		listVariantsFn: func(_ context.Context, parentID uuid.UUID) ([]domain.Product, error) {
			return []domain.Product{{ParentID: &parentID}, {ParentID: &parentID}}, nil
		},
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	detail, err := svc.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if len(detail.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(detail.Variants))
	}
}

func TestGetProductSkipsVariantLookupForSimple(t *testing.T) {
	repo := &stubCatalogRepo{
		getProductFn: func(_ context.Context, pid uuid.UUID) (*domain.Product, error) {
			return &domain.Product{ID: pid, Type: domain.ProductTypeSimple}, nil
		},
		listVariantsFn: func(context.Context, uuid.UUID) ([]domain.Product, error) {
			t.Fatal("variants must not be loaded for simple products")
			return nil, nil
		},
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	if _, err := svc.GetProduct(context.Background(), uuid.New()); err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
}

func TestListProductsClampsPagination(t *testing.T) {
	var captured repositories.ProductFilter
	repo := &stubCatalogRepo{
		listProductsFn: func(_ context.Context, filter repositories.ProductFilter) ([]domain.Product, int64, error) {
			captured = filter
			return nil, 0, nil
		},
		categoryFacetsFn: func(context.Context) ([]repositories.CategoryFacet, error) { return nil, nil },
	}
	svc, _ := NewCatalogService(CatalogServiceDeps{Catalog: repo})

	if _, err := svc.ListProducts(context.Background(), repositories.ProductFilter{Limit: 5000, Offset: -3}); err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if captured.Limit != 24 || captured.Offset != 0 {
		t.Fatalf("pagination not clamped: %+v", captured)
	}
}
