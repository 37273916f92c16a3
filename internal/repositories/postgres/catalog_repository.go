package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/repositories"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs the gorm-backed catalog store.
func NewCatalogRepository(db *gorm.DB) repositories.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":                product.Name,
			"slug":                product.Slug,
			"description":         product.Description,
			"price_cents":         product.PriceCents,
			"type":                product.Type,
			"parent_id":           product.ParentID,
			"category_id":         product.CategoryID,
			"attributes":          product.Attributes,
			"low_stock_threshold": product.LowStockThreshold,
			"allow_backorder":     product.AllowBackorder,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.NewStoreError(repositories.StoreErrorNotFound, "product not found", nil)
	}
	return nil
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repositories.NewStoreError(repositories.StoreErrorNotFound, "product not found", nil)
	}
	return nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.NewStoreError(repositories.StoreErrorNotFound, "product not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepository) GetProducts(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []domain.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *catalogRepository) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]domain.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Product{})

	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.MinPrice != nil {
		q = q.Where("price_cents >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price_cents <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		q = q.Where("stock > 0 OR allow_backorder = true")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC"
	switch filter.SortBy {
	case "name":
		order = "name"
	case "price":
		order = "price_cents"
	case "created_at":
		order = "created_at"
	}
	if filter.SortBy != "" && filter.SortDesc {
		order += " DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 24
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var products []domain.Product
	err := q.Order(order).Limit(limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *catalogRepository) ListVariants(ctx context.Context, parentID uuid.UUID) ([]domain.Product, error) {
	var variants []domain.Product
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND type = ?", parentID, domain.ProductTypeVariant).
		Order("name").
		Find(&variants).Error
	return variants, err
}

func (r *catalogRepository) CategoryFacets(ctx context.Context) ([]repositories.CategoryFacet, error) {
	var facets []repositories.CategoryFacet
	err := r.db.WithContext(ctx).Model(&domain.Product{}).
		Select("category_id AS category_id, COUNT(*) AS count").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&facets).Error
	return facets, err
}

func (r *catalogRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}
