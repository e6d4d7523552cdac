package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/events"
	"github.com/kiwari-pos/ordercore/internal/kitchen"
)

// KitchenItemEvent is the payload of kitchen.item_updated.
type KitchenItemEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	ItemID        uuid.UUID `json:"item_id"`
	ItemStatus    string    `json:"item_status"`
	KitchenStatus string    `json:"kitchen_status"`
}

// KitchenService serves the kitchen display. Item progress is stored per item;
// the order-level kitchen status is always derived from the persisted order
// status, which toggles advance through the shared transition table.
type KitchenService struct {
	pool     Pool
	newStore NewStore
	orders   *OrderService
}

func NewKitchenService(pool Pool, newStore NewStore, orders *OrderService) *KitchenService {
	return &KitchenService{pool: pool, newStore: newStore, orders: orders}
}

// Board returns every open order projected and bucketed for display.
func (s *KitchenService) Board(ctx context.Context) (kitchen.Board, error) {
	store := s.newStore(s.pool)

	orders, err := store.ListOpenOrders(ctx)
	if err != nil {
		return kitchen.Board{}, fmt.Errorf("list open orders: %w", err)
	}
	if len(orders) == 0 {
		return kitchen.Group(nil), nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	rows, err := store.ListKitchenItemsByOrders(ctx, ids)
	if err != nil {
		return kitchen.Board{}, fmt.Errorf("list kitchen items: %w", err)
	}

	projected := make([]kitchen.Order, 0, len(orders))
	for _, o := range orders {
		projected = append(projected, kitchen.Project(o, rows))
	}
	return kitchen.Group(projected), nil
}

// ToggleItem cycles one item's kitchen status and advances the order when the
// derived kitchen status moves forward.
func (s *KitchenService) ToggleItem(ctx context.Context, orderID, itemID uuid.UUID, actor uuid.UUID) (*kitchen.Order, error) {
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
	current, ok := kitchen.FromOrderStatus(order.Status)
	if !ok || current == enum.KitchenOrderCompleted {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotOpen, order.Status)
	}

	rows, err := store.ListKitchenItemsByOrders(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, fmt.Errorf("list kitchen items: %w", err)
	}
	idx := -1
	for i, r := range rows {
		if r.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	next := kitchen.NextItemStatus(rows[idx].KitchenStatus)
	if _, err := store.UpsertKitchenItemState(ctx, database.UpsertKitchenItemStateParams{
		OrderItemID: itemID,
		Status:      next,
		UpdatedBy:   actor,
	}); err != nil {
		return nil, fmt.Errorf("upsert kitchen item state: %w", err)
	}
	rows[idx].KitchenStatus = next

	projected := kitchen.Project(order, rows)
	derived := kitchen.DeriveStatus(current, kitchen.ItemStatuses(projected.Items))

	previous := order.Status
	var movements []StockUpdate
	if derived != current {
		target, _ := kitchen.ToOrderStatus(derived)
		for order.Status != target {
			step, ok := nextForward(order.Status)
			if !ok {
				break
			}
			var m []StockUpdate
			order, m, err = s.orders.transition(ctx, store, order, step, actor)
			if err != nil {
				return nil, err
			}
			movements = append(movements, m...)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	projected = kitchen.Project(order, rows)
	publish(ctx, s.orders.publisher, events.TypeKitchenItemUpdated, KitchenItemEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		ItemID:        itemID,
		ItemStatus:    next,
		KitchenStatus: projected.Status,
	})
	if order.Status != previous {
		s.orders.catalog.AfterCommit(ctx, order.ID, movements)
		publish(ctx, s.orders.publisher, events.TypeOrderStatusChanged, orderEvent(order, previous))
	}

	return &projected, nil
}

// Bump completes a READY order from the kitchen display.
func (s *KitchenService) Bump(ctx context.Context, orderID, actor uuid.UUID) (*OrderResult, error) {
	return s.orders.UpdateStatus(ctx, orderID, enum.OrderStatusCompleted, actor)
}

// nextForward is the kitchen's path through the status machine.
func nextForward(s database.OrderStatus) (database.OrderStatus, bool) {
	switch s {
	case database.OrderStatusPENDING:
		return database.OrderStatusPREPARING, true
	case database.OrderStatusPREPARING:
		return database.OrderStatusREADY, true
	}
	return "", false
}
