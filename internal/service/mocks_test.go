package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/ordercore/internal/cache"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits++
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockPool implements Pool. Queries never reach it because the store factory
// ignores its argument.
type mockPool struct {
	tx  pgx.Tx
	err error
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) { return m.tx, m.err }
func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}

// mockStore implements Store with configurable behavior.
type mockStore struct {
	getProductFn                  func(ctx context.Context, id uuid.UUID) (database.Product, error)
	getProductForUpdateFn         func(ctx context.Context, id uuid.UUID) (database.Product, error)
	getProductsByIDsFn            func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
	listProductsFn                func(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	createProductFn               func(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	reserveStockFn                func(ctx context.Context, arg database.ReserveStockParams) (database.ReserveStockRow, error)
	restoreStockFn                func(ctx context.Context, arg database.RestoreStockParams) (database.RestoreStockRow, error)
	setProductStockFn             func(ctx context.Context, arg database.SetProductStockParams) (database.Product, error)
	createStockMovementFn         func(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	listStockMovementsByProductFn func(ctx context.Context, arg database.ListStockMovementsByProductParams) ([]database.StockMovement, error)
	nextOrderSequenceFn           func(ctx context.Context, day pgtype.Date) (int32, error)
	createOrderFn                 func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn             func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	getOrderFn                    func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderForUpdateFn           func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOrderByNumberFn            func(ctx context.Context, orderNumber string) (database.Order, error)
	listOrdersFn                  func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	countOrdersFn                 func(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	listOpenOrdersFn              func(ctx context.Context) ([]database.Order, error)
	listOrderItemsByOrderFn       func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	updateOrderStatusFn           func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	listKitchenItemsByOrdersFn    func(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListKitchenItemsByOrdersRow, error)
	upsertKitchenItemStateFn      func(ctx context.Context, arg database.UpsertKitchenItemStateParams) (database.OrderItemKitchenState, error)
}

func (m *mockStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductFn(ctx, id)
}
func (m *mockStore) GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error) {
	return m.getProductForUpdateFn(ctx, id)
}
func (m *mockStore) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
	return m.getProductsByIDsFn(ctx, ids)
}
func (m *mockStore) ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error) {
	return m.listProductsFn(ctx, arg)
}
func (m *mockStore) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	return m.createProductFn(ctx, arg)
}
func (m *mockStore) ReserveStock(ctx context.Context, arg database.ReserveStockParams) (database.ReserveStockRow, error) {
	return m.reserveStockFn(ctx, arg)
}
func (m *mockStore) RestoreStock(ctx context.Context, arg database.RestoreStockParams) (database.RestoreStockRow, error) {
	return m.restoreStockFn(ctx, arg)
}
func (m *mockStore) SetProductStock(ctx context.Context, arg database.SetProductStockParams) (database.Product, error) {
	return m.setProductStockFn(ctx, arg)
}
func (m *mockStore) CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
	return m.createStockMovementFn(ctx, arg)
}
func (m *mockStore) ListStockMovementsByProduct(ctx context.Context, arg database.ListStockMovementsByProductParams) ([]database.StockMovement, error) {
	return m.listStockMovementsByProductFn(ctx, arg)
}
func (m *mockStore) NextOrderSequence(ctx context.Context, day pgtype.Date) (int32, error) {
	return m.nextOrderSequenceFn(ctx, day)
}
func (m *mockStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}
func (m *mockStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockStore) GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error) {
	return m.getOrderByNumberFn(ctx, orderNumber)
}
func (m *mockStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockStore) CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error) {
	return m.countOrdersFn(ctx, arg)
}
func (m *mockStore) ListOpenOrders(ctx context.Context) ([]database.Order, error) {
	return m.listOpenOrdersFn(ctx)
}
func (m *mockStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.listOrderItemsByOrderFn(ctx, orderID)
}
func (m *mockStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockStore) ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListKitchenItemsByOrdersRow, error) {
	return m.listKitchenItemsByOrdersFn(ctx, orderIDs)
}
func (m *mockStore) UpsertKitchenItemState(ctx context.Context, arg database.UpsertKitchenItemStateParams) (database.OrderItemKitchenState, error) {
	return m.upsertKitchenItemStateFn(ctx, arg)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- In-memory backing for mockStore ---

// fakeDB is a minimal stand-in for the Postgres schema. It applies the same
// guards as the SQL (conditional decrement, CAS status update) so service
// behavior can be checked end to end. mockTx does not undo writes, so tests
// that need rollback assert on the commit count instead.
type fakeDB struct {
	products  map[uuid.UUID]*database.Product
	orders    map[uuid.UUID]*database.Order
	items     []database.OrderItem
	movements []database.StockMovement
	kitchen   map[uuid.UUID]string
	sequences map[string]int32

	calls map[string]int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		products:  make(map[uuid.UUID]*database.Product),
		orders:    make(map[uuid.UUID]*database.Order),
		kitchen:   make(map[uuid.UUID]string),
		sequences: make(map[string]int32),
		calls:     make(map[string]int),
	}
}

func (f *fakeDB) addProduct(name, price string, stock int32) database.Product {
	p := &database.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    makeNumeric(price),
		Stock:    stock,
		MinStock: 1,
		IsActive: true,
	}
	f.products[p.ID] = p
	return *p
}

func (f *fakeDB) stock(id uuid.UUID) int32 { return f.products[id].Stock }

func (f *fakeDB) movementsOf(productID uuid.UUID, typ database.StockMovementType) []database.StockMovement {
	var out []database.StockMovement
	for _, m := range f.movements {
		if m.ProductID == productID && m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeDB) itemsOf(orderID uuid.UUID) []database.OrderItem {
	out := []database.OrderItem{}
	for _, it := range f.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

func (f *fakeDB) store() *mockStore {
	return &mockStore{
		getProductFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			f.calls["GetProduct"]++
			p, ok := f.products[id]
			if !ok {
				return database.Product{}, pgx.ErrNoRows
			}
			return *p, nil
		},
		getProductForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Product, error) {
			p, ok := f.products[id]
			if !ok {
				return database.Product{}, pgx.ErrNoRows
			}
			return *p, nil
		},
		getProductsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]database.Product, error) {
			var out []database.Product
			for _, id := range ids {
				if p, ok := f.products[id]; ok {
					out = append(out, *p)
				}
			}
			return out, nil
		},
		listProductsFn: func(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error) {
			var out []database.Product
			for _, p := range f.products {
				if arg.ActiveOnly && !p.IsActive {
					continue
				}
				if arg.LowStockOnly && p.Stock > p.MinStock {
					continue
				}
				out = append(out, *p)
			}
			return out, nil
		},
		createProductFn: func(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
			p := &database.Product{
				ID:       uuid.New(),
				Name:     arg.Name,
				Price:    arg.Price,
				Stock:    arg.Stock,
				MinStock: arg.MinStock,
				IsActive: arg.IsActive,
			}
			f.products[p.ID] = p
			return *p, nil
		},
		reserveStockFn: func(ctx context.Context, arg database.ReserveStockParams) (database.ReserveStockRow, error) {
			p, ok := f.products[arg.ID]
			if !ok || !p.IsActive || p.Stock < arg.Quantity {
				return database.ReserveStockRow{}, pgx.ErrNoRows
			}
			p.Stock -= arg.Quantity
			return database.ReserveStockRow{Stock: p.Stock, MinStock: p.MinStock}, nil
		},
		restoreStockFn: func(ctx context.Context, arg database.RestoreStockParams) (database.RestoreStockRow, error) {
			p, ok := f.products[arg.ID]
			if !ok {
				return database.RestoreStockRow{}, pgx.ErrNoRows
			}
			p.Stock += arg.Quantity
			return database.RestoreStockRow{Stock: p.Stock, MinStock: p.MinStock}, nil
		},
		setProductStockFn: func(ctx context.Context, arg database.SetProductStockParams) (database.Product, error) {
			p, ok := f.products[arg.ID]
			if !ok {
				return database.Product{}, pgx.ErrNoRows
			}
			p.Stock = arg.Stock
			return *p, nil
		},
		createStockMovementFn: func(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error) {
			m := database.StockMovement{
				ID:            uuid.New(),
				ProductID:     arg.ProductID,
				Quantity:      arg.Quantity,
				Type:          arg.Type,
				PreviousStock: arg.PreviousStock,
				NewStock:      arg.NewStock,
				OrderID:       arg.OrderID,
				Reason:        arg.Reason,
				CreatedBy:     arg.CreatedBy,
			}
			f.movements = append(f.movements, m)
			return m, nil
		},
		listStockMovementsByProductFn: func(ctx context.Context, arg database.ListStockMovementsByProductParams) ([]database.StockMovement, error) {
			var out []database.StockMovement
			for _, m := range f.movements {
				if m.ProductID == arg.ProductID {
					out = append(out, m)
				}
			}
			return out, nil
		},
		nextOrderSequenceFn: func(ctx context.Context, day pgtype.Date) (int32, error) {
			key := day.Time.Format("2006-01-02")
			f.sequences[key]++
			return f.sequences[key], nil
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			o := &database.Order{
				ID:            uuid.New(),
				OrderNumber:   arg.OrderNumber,
				Status:        database.OrderStatusPENDING,
				Subtotal:      arg.Subtotal,
				Tax:           arg.Tax,
				Total:         arg.Total,
				PaymentMethod: arg.PaymentMethod,
				CustomerRef:   arg.CustomerRef,
				TableRef:      arg.TableRef,
				Notes:         arg.Notes,
				Priority:      arg.Priority,
				CreatedBy:     arg.CreatedBy,
				CreatedAt:     time.Now(),
			}
			f.orders[o.ID] = o
			return *o, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			it := database.OrderItem{
				ID:          uuid.New(),
				OrderID:     arg.OrderID,
				ProductID:   arg.ProductID,
				ProductName: arg.ProductName,
				Quantity:    arg.Quantity,
				Price:       arg.Price,
				Discount:    arg.Discount,
				Total:       arg.Total,
			}
			f.items = append(f.items, it)
			return it, nil
		},
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			o, ok := f.orders[id]
			if !ok {
				return database.Order{}, pgx.ErrNoRows
			}
			return *o, nil
		},
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			o, ok := f.orders[id]
			if !ok {
				return database.Order{}, pgx.ErrNoRows
			}
			return *o, nil
		},
		getOrderByNumberFn: func(ctx context.Context, number string) (database.Order, error) {
			for _, o := range f.orders {
				if o.OrderNumber == number {
					return *o, nil
				}
			}
			return database.Order{}, pgx.ErrNoRows
		},
		listOrderItemsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
			return f.itemsOf(orderID), nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			o, ok := f.orders[arg.ID]
			if !ok || o.Status != arg.PreviousStatus {
				return database.Order{}, pgx.ErrNoRows
			}
			o.Status = arg.Status
			if arg.CompletedAt.Valid {
				o.CompletedAt = arg.CompletedAt
			}
			return *o, nil
		},
		listOpenOrdersFn: func(ctx context.Context) ([]database.Order, error) {
			var out []database.Order
			for _, o := range f.orders {
				switch o.Status {
				case database.OrderStatusPENDING, database.OrderStatusPREPARING, database.OrderStatusREADY:
					out = append(out, *o)
				}
			}
			return out, nil
		},
		listKitchenItemsByOrdersFn: func(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListKitchenItemsByOrdersRow, error) {
			var out []database.ListKitchenItemsByOrdersRow
			for _, id := range orderIDs {
				for _, it := range f.itemsOf(id) {
					status, ok := f.kitchen[it.ID]
					if !ok {
						status = "PENDING"
					}
					out = append(out, database.ListKitchenItemsByOrdersRow{OrderItem: it, KitchenStatus: status})
				}
			}
			return out, nil
		},
		upsertKitchenItemStateFn: func(ctx context.Context, arg database.UpsertKitchenItemStateParams) (database.OrderItemKitchenState, error) {
			f.kitchen[arg.OrderItemID] = arg.Status
			return database.OrderItemKitchenState{OrderItemID: arg.OrderItemID, Status: arg.Status, UpdatedBy: arg.UpdatedBy}, nil
		},
	}
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

var testDay = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// testServices wires every service against one mockStore.
type testServices struct {
	tx        *mockTx
	store     *mockStore
	catalog   *Catalog
	orders    *OrderService
	kitchen   *KitchenService
	publisher *recordingPublisher
}

func newTestServices(store *mockStore) *testServices {
	tx := &mockTx{}
	pool := &mockPool{tx: tx}
	newStore := func(db database.DBTX) Store { return store }
	productCache, err := cache.NewProductCache(64)
	if err != nil {
		panic(err)
	}
	pub := &recordingPublisher{}
	catalog := NewCatalog(pool, newStore, productCache, pub)
	numberer := NewOrderNumberer(time.UTC, func() time.Time { return testDay })
	orders := NewOrderService(pool, newStore, catalog, numberer, decimal.RequireFromString("0.10"), pub)
	return &testServices{
		tx:        tx,
		store:     store,
		catalog:   catalog,
		orders:    orders,
		kitchen:   NewKitchenService(pool, newStore, orders),
		publisher: pub,
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
