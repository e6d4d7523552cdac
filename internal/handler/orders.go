package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/middleware"
	"github.com/kiwari-pos/ordercore/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actor uuid.UUID) (*service.OrderResult, error)
	ListOrders(ctx context.Context, req service.ListOrdersRequest) (*service.ListOrdersResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*service.OrderResult, error)
	GetOrderByNumber(ctx context.Context, number string) (*service.OrderResult, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	loc *time.Location
}

// NewOrderHandler creates a new OrderHandler. loc is the business time zone
// used to interpret date filters.
func NewOrderHandler(svc OrderServicer, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, loc: loc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/number/{number}", h.GetByNumber)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	PaymentMethod string                   `json:"payment_method"`
	CustomerRef   string                   `json:"customer_ref"`
	TableRef      string                   `json:"table_ref"`
	Notes         string                   `json:"notes"`
	Priority      string                   `json:"priority"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int32           `json:"quantity"`
	Discount  json.RawMessage `json:"discount"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	Items         []orderItemResponse `json:"items"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Total         string              `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	CustomerRef   *string             `json:"customer_ref,omitempty"`
	TableRef      *string             `json:"table_ref,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Priority      string              `json:"priority"`
	CreatedBy     uuid.UUID           `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	Price       string    `json:"price"`
	Discount    string    `json:"discount"`
	Total       string    `json:"total"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders  []orderResponse `json:"orders"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"has_more"`
	Limit   int32           `json:"limit"`
	Offset  int32           `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PaymentMethod == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_method is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "product_id is required"),
			})
			return
		}
		discount, ok := parseNumberField(item.Discount)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "discount must be a number"),
			})
			return
		}
		items[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Discount:  discount,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CreatedBy:     claims.UserID,
		PaymentMethod: req.PaymentMethod,
		CustomerRef:   req.CustomerRef,
		TableRef:      req.TableRef,
		Notes:         req.Notes,
		Priority:      req.Priority,
		Items:         items,
	})
	if err != nil {
		writeServiceError(w, r, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

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

	req := service.ListOrdersRequest{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	}

	if s := q.Get("date_from"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_from format, use YYYY-MM-DD"})
			return
		}
		req.DateFrom = &t
	}
	if s := q.Get("date_to"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_to format, use YYYY-MM-DD"})
			return
		}
		// date_to names the last day included.
		end := t.AddDate(0, 0, 1)
		req.DateTo = &end
	}

	result, err := h.svc.ListOrders(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(result.Orders))
	for i := range result.Orders {
		resp[i] = toOrderResponse(&result.Orders[i])
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders:  resp,
		Total:   result.Total,
		HasMore: result.HasMore,
		Limit:   result.Limit,
		Offset:  result.Offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// GetByNumber handles GET /orders/number/{number}.
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order number is required"})
		return
	}

	result, err := h.svc.GetOrderByNumber(r.Context(), number)
	if err != nil {
		writeServiceError(w, r, "get order by number", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status, claims.UserID)
	if err != nil {
		writeServiceError(w, r, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("item[%d]: %s", idx, msg)
}

// parseNumberField accepts a decimal given as a JSON number or numeric string.
func parseNumberField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return "", false
}

func toOrderResponse(res *service.OrderResult) orderResponse {
	resp := dbOrderToResponse(res.Order)
	resp.Items = make([]orderItemResponse, len(res.Items))
	for i, it := range res.Items {
		resp.Items[i] = dbOrderItemToResponse(it)
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		Items:         []orderItemResponse{},
		Subtotal:      numericToString(o.Subtotal),
		Tax:           numericToString(o.Tax),
		Total:         numericToString(o.Total),
		PaymentMethod: o.PaymentMethod,
		CustomerRef:   textPtr(o.CustomerRef),
		TableRef:      textPtr(o.TableRef),
		Notes:         textPtr(o.Notes),
		Priority:      o.Priority,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		CompletedAt:   timePtr(o.CompletedAt),
	}
}

func dbOrderItemToResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:          it.ID,
		ProductID:   it.ProductID,
		ProductName: it.ProductName,
		Quantity:    it.Quantity,
		Price:       numericToString(it.Price),
		Discount:    numericToString(it.Discount),
		Total:       numericToString(it.Total),
	}
}
