package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/middleware"
	"github.com/kiwari-pos/ordercore/internal/service"
)

// CatalogServicer defines the catalog methods needed by product handlers.
type CatalogServicer interface {
	Get(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context, activeOnly, lowStockOnly bool) ([]database.Product, error)
	CreateProduct(ctx context.Context, req service.CreateProductRequest) (database.Product, error)
	AdjustStock(ctx context.Context, req service.AdjustStockRequest) (database.Product, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int32) ([]database.StockMovement, error)
}

// ProductHandler handles product and stock endpoints.
type ProductHandler struct {
	svc CatalogServicer
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc CatalogServicer) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// RegisterRoutes registers product endpoints. Expected to be mounted at
// /products. Writes are limited to OWNER and MANAGER.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/movements", h.ListMovements)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
		r.Post("/", h.Create)
		r.Post("/{id}/stock", h.AdjustStock)
	})
}

// --- Request / Response types ---

type createProductRequest struct {
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Stock    int32           `json:"stock"`
	MinStock int32           `json:"min_stock"`
	IsActive *bool           `json:"is_active"`
}

type adjustStockRequest struct {
	Mode     string `json:"mode"`
	Quantity int32  `json:"quantity"`
	Reason   string `json:"reason"`
}

type productResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int32     `json:"stock"`
	MinStock  int32     `json:"min_stock"`
	LowStock  bool      `json:"low_stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type movementResponse struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"product_id"`
	Type          string     `json:"type"`
	Quantity      int32      `json:"quantity"`
	PreviousStock int32      `json:"previous_stock"`
	NewStock      int32      `json:"new_stock"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

// --- Handlers ---

// List handles GET /products. Optional filters: active=true, low_stock=true.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := queryBool(r, "active")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active filter"})
		return
	}
	lowStockOnly, ok := queryBool(r, "low_stock")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid low_stock filter"})
		return
	}

	products, err := h.svc.ListProducts(r.Context(), activeOnly, lowStockOnly)
	if err != nil {
		writeServiceError(w, r, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	price, ok := parseNumberField(req.Price)
	if !ok || price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	p, err := h.svc.CreateProduct(r.Context(), service.CreateProductRequest{
		Name:     req.Name,
		Price:    price,
		Stock:    req.Stock,
		MinStock: req.MinStock,
		IsActive: active,
		Actor:    middleware.ActorFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// AdjustStock handles POST /products/{id}/stock.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Mode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode is required"})
		return
	}

	p, err := h.svc.AdjustStock(r.Context(), service.AdjustStockRequest{
		ProductID: id,
		Quantity:  req.Quantity,
		Mode:      req.Mode,
		Reason:    req.Reason,
		Actor:     middleware.ActorFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, "adjust stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListMovements handles GET /products/{id}/movements.
func (h *ProductHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "product ID")
	if !ok {
		return
	}
	limit, ok := queryInt32(r, "limit")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}
	offset, ok := queryInt32(r, "offset")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
		return
	}

	movements, err := h.svc.ListMovements(r.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(w, r, "list stock movements", err)
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func queryBool(r *http.Request, name string) (bool, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return false, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     numericToString(p.Price),
		Stock:     p.Stock,
		MinStock:  p.MinStock,
		LowStock:  p.Stock <= p.MinStock,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toMovementResponse(m database.StockMovement) movementResponse {
	resp := movementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		Reason:        textPtr(m.Reason),
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
	if m.OrderID.Valid {
		id := uuid.UUID(m.OrderID.Bytes)
		resp.OrderID = &id
	}
	return resp
}
