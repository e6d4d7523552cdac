package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/ordercore/internal/auth"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/kitchen"
	"github.com/kiwari-pos/ordercore/internal/service"
)

const testJWTSecret = "test-secret-for-handlers"

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn       func(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status string, actor uuid.UUID) (*service.OrderResult, error)
	listFn         func(ctx context.Context, req service.ListOrdersRequest) (*service.ListOrdersResult, error)
	getFn          func(ctx context.Context, id uuid.UUID) (*service.OrderResult, error)
	getByNumberFn  func(ctx context.Context, number string) (*service.OrderResult, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, service.ErrEmptyItems
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actor uuid.UUID) (*service.OrderResult, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, actor)
	}
	return nil, service.ErrOrderNotFound
}

func (m *mockOrderService) ListOrders(ctx context.Context, req service.ListOrdersRequest) (*service.ListOrdersResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, req)
	}
	return &service.ListOrdersResult{}, nil
}

func (m *mockOrderService) GetOrder(ctx context.Context, id uuid.UUID) (*service.OrderResult, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, service.ErrOrderNotFound
}

func (m *mockOrderService) GetOrderByNumber(ctx context.Context, number string) (*service.OrderResult, error) {
	if m.getByNumberFn != nil {
		return m.getByNumberFn(ctx, number)
	}
	return nil, service.ErrOrderNotFound
}

// --- Mock CatalogServicer ---

type mockCatalog struct {
	getFn           func(ctx context.Context, id uuid.UUID) (database.Product, error)
	listFn          func(ctx context.Context, activeOnly, lowStockOnly bool) ([]database.Product, error)
	createFn        func(ctx context.Context, req service.CreateProductRequest) (database.Product, error)
	adjustFn        func(ctx context.Context, req service.AdjustStockRequest) (database.Product, error)
	listMovementsFn func(ctx context.Context, id uuid.UUID, limit, offset int32) ([]database.StockMovement, error)
}

func (m *mockCatalog) Get(ctx context.Context, id uuid.UUID) (database.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.Product{}, service.ErrProductNotFound
}

func (m *mockCatalog) ListProducts(ctx context.Context, activeOnly, lowStockOnly bool) ([]database.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly, lowStockOnly)
	}
	return []database.Product{}, nil
}

func (m *mockCatalog) CreateProduct(ctx context.Context, req service.CreateProductRequest) (database.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return database.Product{}, service.ErrInvalidProductName
}

func (m *mockCatalog) AdjustStock(ctx context.Context, req service.AdjustStockRequest) (database.Product, error) {
	if m.adjustFn != nil {
		return m.adjustFn(ctx, req)
	}
	return database.Product{}, service.ErrProductNotFound
}

func (m *mockCatalog) ListMovements(ctx context.Context, id uuid.UUID, limit, offset int32) ([]database.StockMovement, error) {
	if m.listMovementsFn != nil {
		return m.listMovementsFn(ctx, id, limit, offset)
	}
	return []database.StockMovement{}, nil
}

// --- Mock KitchenServicer ---

type mockKitchen struct {
	boardFn  func(ctx context.Context) (kitchen.Board, error)
	toggleFn func(ctx context.Context, orderID, itemID, actor uuid.UUID) (*kitchen.Order, error)
	bumpFn   func(ctx context.Context, orderID, actor uuid.UUID) (*service.OrderResult, error)
}

func (m *mockKitchen) Board(ctx context.Context) (kitchen.Board, error) {
	if m.boardFn != nil {
		return m.boardFn(ctx)
	}
	return kitchen.Board{New: []kitchen.Order{}, InProgress: []kitchen.Order{}, Ready: []kitchen.Order{}}, nil
}

func (m *mockKitchen) ToggleItem(ctx context.Context, orderID, itemID, actor uuid.UUID) (*kitchen.Order, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, orderID, itemID, actor)
	}
	return nil, service.ErrOrderNotFound
}

func (m *mockKitchen) Bump(ctx context.Context, orderID, actor uuid.UUID) (*service.OrderResult, error) {
	if m.bumpFn != nil {
		return m.bumpFn(ctx, orderID, actor)
	}
	return nil, service.ErrOrderNotFound
}

// --- Request helpers ---

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	// Generate a real JWT token from claims
	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.Role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeArray(t *testing.T, rr *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var resp []interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

// --- Test data ---

func testClaims(role string) *auth.Claims {
	return &auth.Claims{
		UserID: uuid.New(),
		Role:   role,
	}
}

func testNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

func testOrderResult(status database.OrderStatus) *service.OrderResult {
	orderID := uuid.New()
	return &service.OrderResult{
		Order: database.Order{
			ID:            orderID,
			OrderNumber:   "ORD-20240501-0001",
			Status:        status,
			Subtotal:      testNumeric("90.00"),
			Tax:           testNumeric("9.00"),
			Total:         testNumeric("99.00"),
			PaymentMethod: "CASH",
			TableRef:      pgtype.Text{String: "T4", Valid: true},
			Priority:      "NORMAL",
			CreatedBy:     uuid.New(),
			CreatedAt:     time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		},
		Items: []database.OrderItem{{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   uuid.New(),
			ProductName: "Latte",
			Quantity:    2,
			Price:       testNumeric("50"),
			Discount:    testNumeric("10"),
			Total:       testNumeric("90"),
		}},
	}
}

func testProduct(stock, minStock int32) database.Product {
	return database.Product{
		ID:        uuid.New(),
		Name:      "Latte",
		Price:     testNumeric("4.5"),
		Stock:     stock,
		MinStock:  minStock,
		IsActive:  true,
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}
