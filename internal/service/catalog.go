package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kiwari-pos/ordercore/internal/cache"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/shopspring/decimal"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 200
)

// StockChange describes one reservation or restoration inside an order.
type StockChange struct {
	ProductID uuid.UUID
	Quantity  int32
	OrderID   uuid.UUID
	Actor     uuid.UUID
}

// AdjustStockRequest is a manual stock correction.
type AdjustStockRequest struct {
	ProductID uuid.UUID
	Quantity  int32
	Mode      string
	Reason    string
	Actor     uuid.UUID
}

// CreateProductRequest is the validated input for adding a catalog entry.
type CreateProductRequest struct {
	Name     string
	Price    string
	Stock    int32
	MinStock int32
	IsActive bool
	Actor    uuid.UUID
}

// StockUpdate is a ledger row written inside a transaction, paired with the
// product's low-stock threshold at the time of the write.
type StockUpdate struct {
	database.StockMovement
	MinStock int32
}

// StockChangedEvent is published after every committed stock mutation.
type StockChangedEvent struct {
	ProductID    uuid.UUID `json:"product_id"`
	Stock        int32     `json:"stock"`
	MinStock     int32     `json:"min_stock"`
	LowStock     bool      `json:"low_stock"`
	MovementType string    `json:"movement_type"`
	OrderID      *string   `json:"order_id,omitempty"`
}

// Catalog owns product stock. Reserve and Restore run inside the caller's
// transaction; AdjustStock runs its own. Every mutation writes exactly one
// ledger row next to the stock change it describes.
type Catalog struct {
	pool      Pool
	newStore  NewStore
	cache     *cache.ProductCache
	publisher events.Publisher
}

func NewCatalog(pool Pool, newStore NewStore, productCache *cache.ProductCache, publisher events.Publisher) *Catalog {
	return &Catalog{pool: pool, newStore: newStore, cache: productCache, publisher: publisher}
}

// Get returns a product through the read cache.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (database.Product, error) {
	store := c.newStore(c.pool)
	p, err := c.cache.Get(ctx, id, store.GetProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Product{}, ErrProductNotFound
		}
		return database.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (c *Catalog) ListProducts(ctx context.Context, activeOnly, lowStockOnly bool) ([]database.Product, error) {
	products, err := c.newStore(c.pool).ListProducts(ctx, database.ListProductsParams{
		ActiveOnly:   activeOnly,
		LowStockOnly: lowStockOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// CreateProduct inserts a product. Opening stock is recorded in the ledger as
// a MANUAL_SET from zero so the ledger always sums to the current stock.
func (c *Catalog) CreateProduct(ctx context.Context, req CreateProductRequest) (database.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.Product{}, ErrInvalidProductName
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return database.Product{}, ErrInvalidPrice
	}
	if req.Stock < 0 || req.MinStock < 0 {
		return database.Product{}, ErrInvalidStock
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return database.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := c.newStore(tx)

	product, err := store.CreateProduct(ctx, database.CreateProductParams{
		Name:     name,
		Price:    decimalToNumeric(price),
		Stock:    req.Stock,
		MinStock: req.MinStock,
		IsActive: req.IsActive,
	})
	if err != nil {
		return database.Product{}, fmt.Errorf("create product: %w", err)
	}

	if product.Stock > 0 {
		_, err = store.CreateStockMovement(ctx, database.CreateStockMovementParams{
			ProductID:     product.ID,
			Quantity:      product.Stock,
			Type:          database.StockMovementTypeMANUALSET,
			PreviousStock: 0,
			NewStock:      product.Stock,
			Reason:        optionalText("opening stock"),
			CreatedBy:     req.Actor,
		})
		if err != nil {
			return database.Product{}, fmt.Errorf("create stock movement: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Product{}, fmt.Errorf("commit tx: %w", err)
	}
	return product, nil
}

// Reserve decrements stock with a single conditional write and records a SALE.
// If the guard fails nothing is written and ErrInsufficientStock is returned.
func (c *Catalog) Reserve(ctx context.Context, store Store, ch StockChange) (StockUpdate, error) {
	if ch.Quantity <= 0 {
		return StockUpdate{}, ErrInvalidQuantity
	}

	row, err := store.ReserveStock(ctx, database.ReserveStockParams{
		ID:       ch.ProductID,
		Quantity: ch.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockUpdate{}, c.reserveFailure(ctx, store, ch.ProductID)
		}
		return StockUpdate{}, fmt.Errorf("reserve stock: %w", err)
	}

	m, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		ProductID:     ch.ProductID,
		Quantity:      -ch.Quantity,
		Type:          database.StockMovementTypeSALE,
		PreviousStock: row.Stock + ch.Quantity,
		NewStock:      row.Stock,
		OrderID:       pgtype.UUID{Bytes: ch.OrderID, Valid: true},
		CreatedBy:     ch.Actor,
	})
	if err != nil {
		return StockUpdate{}, fmt.Errorf("create stock movement: %w", err)
	}
	return StockUpdate{StockMovement: m, MinStock: row.MinStock}, nil
}

// reserveFailure explains why the conditional decrement matched no row.
func (c *Catalog) reserveFailure(ctx context.Context, store Store, id uuid.UUID) error {
	p, err := store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownProduct
		}
		return fmt.Errorf("get product: %w", err)
	}
	if !p.IsActive {
		return fmt.Errorf("%s: %w", p.Name, ErrProductInactive)
	}
	return fmt.Errorf("%w for %s: available %d", ErrInsufficientStock, p.Name, p.Stock)
}

// Restore increments stock unconditionally and records a RETURN.
func (c *Catalog) Restore(ctx context.Context, store Store, ch StockChange) (StockUpdate, error) {
	if ch.Quantity <= 0 {
		return StockUpdate{}, ErrInvalidQuantity
	}

	row, err := store.RestoreStock(ctx, database.RestoreStockParams{
		ID:       ch.ProductID,
		Quantity: ch.Quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockUpdate{}, ErrProductNotFound
		}
		return StockUpdate{}, fmt.Errorf("restore stock: %w", err)
	}

	m, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		ProductID:     ch.ProductID,
		Quantity:      ch.Quantity,
		Type:          database.StockMovementTypeRETURN,
		PreviousStock: row.Stock - ch.Quantity,
		NewStock:      row.Stock,
		OrderID:       pgtype.UUID{Bytes: ch.OrderID, Valid: true},
		CreatedBy:     ch.Actor,
	})
	if err != nil {
		return StockUpdate{}, fmt.Errorf("create stock movement: %w", err)
	}
	return StockUpdate{StockMovement: m, MinStock: row.MinStock}, nil
}

// AdjustStock applies a manual add, subtract or set. Subtract and set clamp at
// zero. The product row is locked for the duration of the transaction.
func (c *Catalog) AdjustStock(ctx context.Context, req AdjustStockRequest) (database.Product, error) {
	movementType, err := validateAdjustment(req.Mode, req.Quantity)
	if err != nil {
		return database.Product{}, err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return database.Product{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := c.newStore(tx)

	current, err := store.GetProductForUpdate(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Product{}, ErrProductNotFound
		}
		return database.Product{}, fmt.Errorf("get product: %w", err)
	}

	target, err := adjustedStock(current.Stock, req.Quantity, req.Mode)
	if err != nil {
		return database.Product{}, err
	}

	updated, err := store.SetProductStock(ctx, database.SetProductStockParams{
		ID:    current.ID,
		Stock: target,
	})
	if err != nil {
		return database.Product{}, fmt.Errorf("set product stock: %w", err)
	}

	_, err = store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		ProductID:     current.ID,
		Quantity:      target - current.Stock,
		Type:          movementType,
		PreviousStock: current.Stock,
		NewStock:      target,
		Reason:        optionalText(strings.TrimSpace(req.Reason)),
		CreatedBy:     req.Actor,
	})
	if err != nil {
		return database.Product{}, fmt.Errorf("create stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Product{}, fmt.Errorf("commit tx: %w", err)
	}

	c.cache.Invalidate(updated.ID)
	publish(ctx, c.publisher, events.TypeStockChanged, stockChanged(updated, string(movementType), nil))
	return updated, nil
}

func validateAdjustment(mode string, qty int32) (database.StockMovementType, error) {
	switch mode {
	case enum.AdjustModeAdd:
		if qty <= 0 {
			return "", ErrInvalidAdjustQty
		}
		return database.StockMovementTypeMANUALADD, nil
	case enum.AdjustModeSubtract:
		if qty <= 0 {
			return "", ErrInvalidAdjustQty
		}
		return database.StockMovementTypeMANUALSUBTRACT, nil
	case enum.AdjustModeSet:
		if qty < 0 {
			return "", ErrInvalidAdjustQty
		}
		return database.StockMovementTypeMANUALSET, nil
	}
	return "", ErrInvalidAdjustMode
}

func adjustedStock(current, qty int32, mode string) (int32, error) {
	switch mode {
	case enum.AdjustModeAdd:
		if int64(current)+int64(qty) > math.MaxInt32 {
			return 0, ErrStockOverflow
		}
		return current + qty, nil
	case enum.AdjustModeSubtract:
		return max(current-qty, 0), nil
	default:
		return max(qty, 0), nil
	}
}

// ListMovements returns a product's ledger, newest first.
func (c *Catalog) ListMovements(ctx context.Context, productID uuid.UUID, limit, offset int32) ([]database.StockMovement, error) {
	if _, err := c.Get(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	limit = min(limit, maxMovementLimit)
	offset = max(offset, 0)

	movements, err := c.newStore(c.pool).ListStockMovementsByProduct(ctx, database.ListStockMovementsByProductParams{
		ProductID: productID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	return movements, nil
}

// AfterCommit drops cached products touched by a committed transaction and
// announces their new stock levels.
func (c *Catalog) AfterCommit(ctx context.Context, orderID uuid.UUID, updates []StockUpdate) {
	ids := make([]uuid.UUID, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ProductID)
	}
	c.cache.Invalidate(ids...)

	oid := orderID.String()
	for _, u := range updates {
		p := database.Product{ID: u.ProductID, Stock: u.NewStock, MinStock: u.MinStock}
		publish(ctx, c.publisher, events.TypeStockChanged, stockChanged(p, string(u.Type), &oid))
	}
}

func stockChanged(p database.Product, movementType string, orderID *string) StockChangedEvent {
	return StockChangedEvent{
		ProductID:    p.ID,
		Stock:        p.Stock,
		MinStock:     p.MinStock,
		LowStock:     p.Stock <= p.MinStock,
		MovementType: movementType,
		OrderID:      orderID,
	}
}
