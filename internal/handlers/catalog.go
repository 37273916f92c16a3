package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/repositories"
	"github.com/sokoline/api/internal/services"
)

// CatalogHandlers exposes the public storefront catalog.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the public catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/categories", h.listCategories)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, err := parseProductFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	id, err := parseUUIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	detail, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": categories})
}

func parseProductFilter(r *http.Request) (repositories.ProductFilter, error) {
	query := r.URL.Query()
	filter := repositories.ProductFilter{
		Search: strings.TrimSpace(query.Get("search")),
	}

	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("category must be a valid uuid")
		}
		filter.CategoryID = &id
	}

	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		productType := domain.ProductType(raw)
		switch productType {
		case domain.ProductTypeSimple, domain.ProductTypeConfigurable, domain.ProductTypeBundle, domain.ProductTypeVariant:
			filter.Type = &productType
		default:
			return filter, errors.New("type must be one of simple, configurable, bundle, variant")
		}
	}

	var err error
	if filter.MinPrice, err = parseOptionalInt64(query.Get("min_price"), "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = parseOptionalInt64(query.Get("max_price"), "max_price"); err != nil {
		return filter, err
	}

	filter.InStock = query.Get("in_stock") == "true"

	switch sort := strings.TrimSpace(query.Get("sort")); sort {
	case "", "name", "price", "created_at":
		filter.SortBy = sort
	default:
		return filter, errors.New("sort must be one of name, price, created_at")
	}
	filter.SortDesc = query.Get("order") == "desc"

	if filter.Limit, err = parseOptionalInt(query.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseOptionalInt(query.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseOptionalInt64(raw, name string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return nil, errors.New(name + " must be a non-negative integer")
	}
	return &value, nil
}

func parseOptionalInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return value, nil
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "catalog request failed", http.StatusInternalServerError))
	}
}
