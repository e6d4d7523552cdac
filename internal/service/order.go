package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/kiwari-pos/ordercore/internal/kitchen"
	"github.com/shopspring/decimal"
)

const (
	maxOrderNumberRetries = 3

	defaultListLimit = 20
	maxListLimit     = 100
)

var hundred = decimal.NewFromInt(100)

// allowedTransitions is the single order status machine. The kitchen display
// moves orders through the same table.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPENDING:   {database.OrderStatusPREPARING, database.OrderStatusCANCELLED},
	database.OrderStatusPREPARING: {database.OrderStatusREADY, database.OrderStatusCANCELLED},
	database.OrderStatusREADY:     {database.OrderStatusCOMPLETED},
}

func canTransition(from, to database.OrderStatus) bool {
	return slices.Contains(allowedTransitions[from], to)
}

// CreateOrderRequest is the input for creating an order.
type CreateOrderRequest struct {
	CreatedBy     uuid.UUID
	PaymentMethod string
	CustomerRef   string
	TableRef      string
	Notes         string
	Priority      string
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line. Discount is a percentage string,
// empty meaning none.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
	Discount  string
}

// OrderResult is an order with its items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// ListOrdersRequest filters the order list. DateFrom is inclusive, DateTo
// exclusive.
type ListOrdersRequest struct {
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   string
	Limit    int32
	Offset   int32
}

// ListOrdersResult carries the page window actually applied, after defaults
// and clamping.
type ListOrdersResult struct {
	Orders  []OrderResult
	Total   int64
	HasMore bool
	Limit   int32
	Offset  int32
}

// OrderEvent is the payload of order.created and order.status_changed.
type OrderEvent struct {
	ID             uuid.UUID `json:"id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	KitchenStatus  string    `json:"kitchen_status,omitempty"`
	Priority       string    `json:"priority"`
	Total          string    `json:"total"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool      Pool
	newStore  NewStore
	catalog   *Catalog
	numberer  *OrderNumberer
	taxRate   decimal.Decimal
	publisher events.Publisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService. taxRate is a fraction (0.10 for 10%).
func NewOrderService(pool Pool, newStore NewStore, catalog *Catalog, numberer *OrderNumberer, taxRate decimal.Decimal, publisher events.Publisher) *OrderService {
	return &OrderService{
		pool:      pool,
		newStore:  newStore,
		catalog:   catalog,
		numberer:  numberer,
		taxRate:   taxRate,
		publisher: publisher,
		now:       numberer.now,
	}
}

// pricedItem is a validated line ready to insert.
type pricedItem struct {
	productID uuid.UUID
	quantity  int32
	discount  decimal.Decimal
}

// CreateOrder validates, prices, reserves stock and persists an order in one
// transaction. Retries up to maxOrderNumberRetries times on order_number
// unique violations.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !isValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	priority := req.Priority
	if priority == "" {
		priority = enum.PriorityNormal
	}
	if !isValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	items := make([]pricedItem, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		discount := decimal.Zero
		if item.Discount != "" {
			// Stored as NUMERIC(5,2); finer precision would price differently than it persists.
			discount, err = decimal.NewFromString(item.Discount)
			if err != nil || discount.IsNegative() || discount.GreaterThan(hundred) || !discount.Equal(discount.Round(2)) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidDiscount)
			}
		}
		items = append(items, pricedItem{productID: productID, quantity: item.Quantity, discount: discount})
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, priority, items)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: %v", ErrOrderNumberConflict, lastErr)
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, priority string, items []pricedItem) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Load products and total up demand per product ---
	demand := make(map[uuid.UUID]int64)
	var ids []uuid.UUID
	for _, it := range items {
		if _, seen := demand[it.productID]; !seen {
			ids = append(ids, it.productID)
		}
		demand[it.productID] += int64(it.quantity)
	}

	rows, err := store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	products := make(map[uuid.UUID]database.Product, len(rows))
	for _, p := range rows {
		products[p.ID] = p
	}

	for i, it := range items {
		p, ok := products[it.productID]
		if !ok {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrUnknownProduct)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("item[%d]: %s: %w", i, p.Name, ErrProductInactive)
		}
	}

	// Pre-check so a short order fails before anything is written. The
	// conditional decrement below is what actually guards the stock.
	for _, id := range ids {
		if p := products[id]; int64(p.Stock) < demand[id] {
			return nil, fmt.Errorf("%w for %s: available %d", ErrInsufficientStock, p.Name, p.Stock)
		}
	}

	// --- Price ---
	subtotal := decimal.Zero
	itemParams := make([]database.CreateOrderItemParams, 0, len(items))
	for _, it := range items {
		p := products[it.productID]
		price := numericToDecimal(p.Price)
		total := lineTotal(price, it.quantity, it.discount)
		subtotal = subtotal.Add(total)
		itemParams = append(itemParams, database.CreateOrderItemParams{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.quantity,
			Price:       decimalToNumeric(price),
			Discount:    decimalToNumeric(it.discount),
			Total:       decimalToNumeric(total),
		})
	}
	tax := subtotal.Mul(s.taxRate).Round(2)
	grandTotal := subtotal.Add(tax)

	// --- Number ---
	orderNumber, err := s.numberer.Next(ctx, store)
	if err != nil {
		return nil, err
	}

	// --- Persist ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:   orderNumber,
		Subtotal:      decimalToNumeric(subtotal),
		Tax:           decimalToNumeric(tax),
		Total:         decimalToNumeric(grandTotal),
		PaymentMethod: req.PaymentMethod,
		CustomerRef:   optionalText(strings.TrimSpace(req.CustomerRef)),
		TableRef:      optionalText(strings.TrimSpace(req.TableRef)),
		Notes:         optionalText(strings.TrimSpace(req.Notes)),
		Priority:      priority,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created := make([]database.OrderItem, 0, len(itemParams))
	for _, params := range itemParams {
		params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created = append(created, item)
	}

	// --- Reserve, in a fixed product order so concurrent orders lock rows
	// in the same sequence ---
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	movements := make([]StockUpdate, 0, len(ids))
	for _, id := range ids {
		m, err := s.catalog.Reserve(ctx, store, StockChange{
			ProductID: id,
			Quantity:  int32(demand[id]),
			OrderID:   order.ID,
			Actor:     req.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.catalog.AfterCommit(ctx, order.ID, movements)
	publish(ctx, s.publisher, events.TypeOrderCreated, orderEvent(order, ""))

	return &OrderResult{Order: order, Items: created}, nil
}

// lineTotal is price * quantity * (1 - discount/100), rounded to cents.
func lineTotal(price decimal.Decimal, quantity int32, discountPct decimal.Decimal) decimal.Decimal {
	gross := price.Mul(decimal.NewFromInt32(quantity))
	return gross.Mul(hundred.Sub(discountPct)).Div(hundred).Round(2)
}

// UpdateStatus moves an order along the status machine. Requesting the status
// the order already has is a no-op, so a repeated cancel restores stock once.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actor uuid.UUID) (*OrderResult, error) {
	target := database.OrderStatus(status)
	if !isValidOrderStatus(target) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	previous := order.Status
	var movements []StockUpdate
	if previous != target {
		order, movements, err = s.transition(ctx, store, order, target, actor)
		if err != nil {
			return nil, err
		}
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if previous != target {
		s.catalog.AfterCommit(ctx, order.ID, movements)
		publish(ctx, s.publisher, events.TypeOrderStatusChanged, orderEvent(order, previous))
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// transition applies one status change to a locked order row. Cancellation
// returns every reserved unit to stock in the same transaction.
func (s *OrderService) transition(ctx context.Context, store Store, order database.Order, target database.OrderStatus, actor uuid.UUID) (database.Order, []StockUpdate, error) {
	if !canTransition(order.Status, target) {
		return database.Order{}, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	var movements []StockUpdate
	if target == database.OrderStatusCANCELLED {
		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return database.Order{}, nil, fmt.Errorf("list order items: %w", err)
		}

		reserved := make(map[uuid.UUID]int32)
		var ids []uuid.UUID
		for _, it := range items {
			if _, seen := reserved[it.ProductID]; !seen {
				ids = append(ids, it.ProductID)
			}
			reserved[it.ProductID] += it.Quantity
		}
		slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

		for _, id := range ids {
			m, err := s.catalog.Restore(ctx, store, StockChange{
				ProductID: id,
				Quantity:  reserved[id],
				OrderID:   order.ID,
				Actor:     actor,
			})
			if err != nil {
				return database.Order{}, nil, err
			}
			movements = append(movements, m)
		}
	}

	completedAt := pgtype.Timestamptz{}
	if target == database.OrderStatusCOMPLETED {
		completedAt = pgtype.Timestamptz{Time: s.now(), Valid: true}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             order.ID,
		Status:         target,
		PreviousStatus: order.Status,
		CompletedAt:    completedAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, nil, ErrStatusChanged
		}
		return database.Order{}, nil, fmt.Errorf("update order status: %w", err)
	}
	return updated, movements, nil
}

// GetOrder returns an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderResult, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return s.withItems(ctx, store, order)
}

// GetOrderByNumber returns an order looked up by its human-readable number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*OrderResult, error) {
	store := s.newStore(s.pool)
	order, err := store.GetOrderByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return s.withItems(ctx, store, order)
}

func (s *OrderService) withItems(ctx context.Context, store Store, order database.Order) (*OrderResult, error) {
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListOrders returns a page of orders, newest first, with their items.
func (s *OrderService) ListOrders(ctx context.Context, req ListOrdersRequest) (*ListOrdersResult, error) {
	status := pgtype.Text{}
	if req.Status != "" {
		if !isValidOrderStatus(database.OrderStatus(req.Status)) {
			return nil, ErrInvalidStatus
		}
		status = pgtype.Text{String: req.Status, Valid: true}
	}
	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return nil, ErrInvalidDateRange
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(req.Offset, 0)

	dateFrom := pgtype.Timestamptz{}
	if req.DateFrom != nil {
		dateFrom = pgtype.Timestamptz{Time: *req.DateFrom, Valid: true}
	}
	dateTo := pgtype.Timestamptz{}
	if req.DateTo != nil {
		dateTo = pgtype.Timestamptz{Time: *req.DateTo, Valid: true}
	}
	search := pgtype.Text{}
	if q := strings.TrimSpace(req.Search); q != "" {
		search = pgtype.Text{String: likeEscaper.Replace(q), Valid: true}
	}

	store := s.newStore(s.pool)

	total, err := store.CountOrders(ctx, database.CountOrdersParams{
		Status:   status,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Search:   search,
	})
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	orders, err := store.ListOrders(ctx, database.ListOrdersParams{
		Status:   status,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Search:   search,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	results := make([]OrderResult, 0, len(orders))
	if len(orders) > 0 {
		ids := make([]uuid.UUID, len(orders))
		for i, o := range orders {
			ids[i] = o.ID
		}
		rows, err := store.ListKitchenItemsByOrders(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
		for _, r := range rows {
			byOrder[r.OrderID] = append(byOrder[r.OrderID], r.OrderItem)
		}
		for _, o := range orders {
			items := byOrder[o.ID]
			if items == nil {
				items = []database.OrderItem{}
			}
			results = append(results, OrderResult{Order: o, Items: items})
		}
	}

	return &ListOrdersResult{
		Orders:  results,
		Total:   total,
		HasMore: int64(offset)+int64(len(orders)) < total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// --- Helpers ---

func orderEvent(o database.Order, previous database.OrderStatus) OrderEvent {
	ks, _ := kitchen.FromOrderStatus(o.Status)
	return OrderEvent{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		KitchenStatus:  ks,
		Priority:       o.Priority,
		Total:          numericToDecimal(o.Total).StringFixed(2),
	}
}

func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPENDING, database.OrderStatusPREPARING, database.OrderStatusREADY,
		database.OrderStatusCOMPLETED, database.OrderStatusCANCELLED:
		return true
	}
	return false
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard,
		enum.PaymentMethodQRIS, enum.PaymentMethodTransfer:
		return true
	}
	return false
}

func isValidPriority(s string) bool {
	switch s {
	case enum.PriorityNormal, enum.PriorityRush, enum.PriorityVIP:
		return true
	}
	return false
}
