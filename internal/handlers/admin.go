package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sokoline/api/internal/domain"
	"github.com/sokoline/api/internal/platform/auth"
	"github.com/sokoline/api/internal/platform/httpx"
	"github.com/sokoline/api/internal/platform/observability"
	"github.com/sokoline/api/internal/repositories"
	"github.com/sokoline/api/internal/services"
)

const maxAdminBodySize = 64 * 1024

// AdminHandlers exposes the back-office surface: catalog writes, warehouse and
// stock management, order and return workflow, gift card issuance, and an
// in-process request metrics snapshot.
type AdminHandlers struct {
	authn     *auth.Authenticator
	catalog   services.CatalogService
	inventory services.InventoryService
	orders    services.OrderService
	returns   services.ReturnService
	giftCards services.GiftCardService
	perf      *observability.PerfMonitor
}

// AdminHandlersDeps bundles the services behind the admin surface.
type AdminHandlersDeps struct {
	Authenticator *auth.Authenticator
	Catalog       services.CatalogService
	Inventory     services.InventoryService
	Orders        services.OrderService
	Returns       services.ReturnService
	GiftCards     services.GiftCardService
	Perf          *observability.PerfMonitor
}

// NewAdminHandlers constructs the back-office handlers.
func NewAdminHandlers(deps AdminHandlersDeps) *AdminHandlers {
	return &AdminHandlers{
		authn:     deps.Authenticator,
		catalog:   deps.Catalog,
		inventory: deps.Inventory,
		orders:    deps.Orders,
		returns:   deps.Returns,
		giftCards: deps.GiftCards,
		perf:      deps.Perf,
	}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAdmin())
	}

	r.Post("/products", h.createProduct)
	r.Put("/products/{productID}", h.updateProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
	r.Get("/products/{productID}/inventory", h.listInventory)
	r.Put("/products/{productID}/inventory", h.setStock)

	r.Post("/categories", h.createCategory)

	r.Post("/warehouses", h.createWarehouse)
	r.Get("/warehouses", h.listWarehouses)
	r.Get("/low-stock-alerts", h.lowStockAlerts)

	r.Get("/orders", h.listOrders)
	r.Put("/orders/{orderID}/status", h.transitionOrder)

	r.Put("/returns/{returnID}/status", h.transitionReturn)

	r.Post("/gift-cards", h.createGiftCard)

	r.Get("/metrics/requests", h.requestMetrics)
}

type productRequest struct {
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description"`
	PriceCents        int64             `json:"priceCents"`
	Type              string            `json:"type"`
	ParentID          *uuid.UUID        `json:"parentId"`
	CategoryID        *uuid.UUID        `json:"categoryId"`
	Attributes        map[string]string `json:"attributes"`
	LowStockThreshold int               `json:"lowStockThreshold"`
	AllowBackorder    bool              `json:"allowBackorder"`
}

func (req productRequest) command() services.UpsertProductCommand {
	return services.UpsertProductCommand{
		Name:              strings.TrimSpace(req.Name),
		Slug:              strings.TrimSpace(req.Slug),
		Description:       strings.TrimSpace(req.Description),
		PriceCents:        req.PriceCents,
		Type:              domain.ProductType(strings.TrimSpace(req.Type)),
		ParentID:          req.ParentID,
		CategoryID:        req.CategoryID,
		Attributes:        req.Attributes,
		LowStockThreshold: req.LowStockThreshold,
		AllowBackorder:    req.AllowBackorder,
	}
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req productRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(ctx, req.command())
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, product)
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseUUIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req productRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, id, req.command())
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, product)
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseUUIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, id); err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setStockRequest struct {
	WarehouseID uuid.UUID `json:"warehouseId"`
	Stock       int       `json:"stock"`
}

func (h *AdminHandlers) setStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req setStockRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	entry, err := h.inventory.SetStock(ctx, productID, req.WarehouseID, req.Stock)
	if err != nil {
		writeAdminInventoryError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *AdminHandlers) listInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	entries, err := h.inventory.ListForProduct(ctx, productID)
	if err != nil {
		writeAdminInventoryError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}

type createCategoryRequest struct {
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *AdminHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCategoryRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	category, err := h.catalog.CreateCategory(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.Slug), req.ParentID)
	if err != nil {
		writeAdminCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, category)
}

type createWarehouseRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (h *AdminHandlers) createWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createWarehouseRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	warehouse, err := h.inventory.CreateWarehouse(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.Location))
	if err != nil {
		writeAdminInventoryError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, warehouse)
}

func (h *AdminHandlers) listWarehouses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	warehouses, err := h.inventory.ListWarehouses(ctx)
	if err != nil {
		writeAdminInventoryError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": warehouses})
}

func (h *AdminHandlers) lowStockAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.inventory.LowStockAlerts(ctx)
	if err != nil {
		writeAdminInventoryError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": products})
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := repositories.OrderListFilter{}
	if raw := strings.TrimSpace(query.Get("user")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "user must be a valid uuid", http.StatusBadRequest))
			return
		}
		filter.UserID = &id
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		switch status {
		case domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered:
			filter.Status = &status
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be one of pending, processing, shipped, delivered", http.StatusBadRequest))
			return
		}
	}

	var err error
	if filter.Limit, err = parseOptionalInt(query.Get("limit"), "limit"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if filter.Offset, err = parseOptionalInt(query.Get("offset"), "offset"); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	orders, total, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeAdminOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": orders, "total": total})
}

type transitionOrderRequest struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

func (h *AdminHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req transitionOrderRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	order, err := h.orders.TransitionStatus(ctx, orderID, domain.OrderStatus(strings.TrimSpace(req.Status)), strings.TrimSpace(req.Description))
	if err != nil {
		writeAdminOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

type transitionReturnRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) transitionReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	returnID, err := parseUUIDParam(r, "returnID")
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req transitionReturnRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	ret, err := h.returns.Transition(ctx, returnID, domain.ReturnStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		writeAdminReturnError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ret)
}

type createGiftCardRequest struct {
	InitialCents int64      `json:"initialCents"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

func (h *AdminHandlers) createGiftCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createGiftCardRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	card, err := h.giftCards.Create(ctx, req.InitialCents, req.ExpiresAt)
	if err != nil {
		writeGiftCardError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, card)
}

func (h *AdminHandlers) requestMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.perf == nil {
		httpx.WriteError(ctx, w, httpx.NewError("metrics_unavailable", "request metrics are not enabled", http.StatusServiceUnavailable))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.perf.Snapshot())
}

func decodeAdminBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

func writeAdminCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
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

func writeAdminInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "inventory request failed", http.StatusInternalServerError))
	}
}

func writeAdminOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "order request failed", http.StatusInternalServerError))
	}
}

func writeAdminReturnError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReturnInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReturnNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("return_not_found", "return not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReturnInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("return_error", "return request failed", http.StatusInternalServerError))
	}
}
