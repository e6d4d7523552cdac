package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pool is both a query target for reads and a transaction source for writes.
// Satisfied by *pgxpool.Pool.
type Pool interface {
	database.DBTX
	TxBeginner
}

// Store defines the DB methods used by the services.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Product, error)
	ListProducts(ctx context.Context, arg database.ListProductsParams) ([]database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	ReserveStock(ctx context.Context, arg database.ReserveStockParams) (database.ReserveStockRow, error)
	RestoreStock(ctx context.Context, arg database.RestoreStockParams) (database.RestoreStockRow, error)
	SetProductStock(ctx context.Context, arg database.SetProductStockParams) (database.Product, error)

	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	ListStockMovementsByProduct(ctx context.Context, arg database.ListStockMovementsByProductParams) ([]database.StockMovement, error)

	NextOrderSequence(ctx context.Context, day pgtype.Date) (int32, error)

	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListOpenOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)

	ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]database.ListKitchenItemsByOrdersRow, error)
	UpsertKitchenItemState(ctx context.Context, arg database.UpsertKitchenItemStateParams) (database.OrderItemKitchenState, error)
}

// NewStore creates a Store from a DBTX (pool or tx).
type NewStore func(db database.DBTX) Store

// DefaultNewStore binds the generated queries.
func DefaultNewStore(db database.DBTX) Store { return database.New(db) }

// publishTimeout bounds broker delivery for a single event.
const publishTimeout = 3 * time.Second

// publish emits an event after a commit. Delivery failures are logged only:
// the write they describe has already happened. The caller's cancellation is
// dropped so a client disconnect cannot swallow the notification.
func publish(ctx context.Context, pub events.Publisher, eventType string, payload any) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	e, err := events.New(eventType, payload)
	if err != nil {
		log.Printf("ERROR: build %s event: %v", eventType, err)
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		log.Printf("ERROR: publish %s event: %v", eventType, err)
	}
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
