// Package kitchen derives the kitchen display view of open orders. Nothing
// here touches storage: the persisted order status is the source of truth and
// the kitchen vocabulary is a mapping over it.
package kitchen

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/ordercore/internal/database"
	"github.com/kiwari-pos/ordercore/internal/enum"
)

type Item struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	Status      string    `json:"status"`
}

type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	TableRef    *string   `json:"table_ref,omitempty"`
	CustomerRef *string   `json:"customer_ref,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Item    `json:"items"`
}

// Board is the kitchen display: one sorted bucket per kitchen status.
type Board struct {
	New        []Order `json:"new"`
	InProgress []Order `json:"in_progress"`
	Ready      []Order `json:"ready"`
}

// NextItemStatus cycles PENDING -> PREPARING -> READY -> PENDING.
// Unknown values restart the cycle.
func NextItemStatus(current string) string {
	switch current {
	case enum.KitchenItemPending:
		return enum.KitchenItemPreparing
	case enum.KitchenItemPreparing:
		return enum.KitchenItemReady
	default:
		return enum.KitchenItemPending
	}
}

// DeriveStatus applies the aggregation rule: every item READY makes the order
// READY; otherwise a NEW order with any item off PENDING is IN_PROGRESS;
// otherwise the status is left as it is.
func DeriveStatus(current string, itemStatuses []string) string {
	if len(itemStatuses) == 0 {
		return current
	}

	allReady := true
	anyStarted := false
	for _, s := range itemStatuses {
		if s != enum.KitchenItemReady {
			allReady = false
		}
		if s != enum.KitchenItemPending {
			anyStarted = true
		}
	}

	switch {
	case allReady:
		return enum.KitchenOrderReady
	case current == enum.KitchenOrderNew && anyStarted:
		return enum.KitchenOrderInProgress
	default:
		return current
	}
}

var orderToKitchen = map[database.OrderStatus]string{
	database.OrderStatusPENDING:   enum.KitchenOrderNew,
	database.OrderStatusPREPARING: enum.KitchenOrderInProgress,
	database.OrderStatusREADY:     enum.KitchenOrderReady,
	database.OrderStatusCOMPLETED: enum.KitchenOrderCompleted,
}

// FromOrderStatus maps a persisted order status into the kitchen vocabulary.
// Cancelled orders have no kitchen status.
func FromOrderStatus(s database.OrderStatus) (string, bool) {
	k, ok := orderToKitchen[s]
	return k, ok
}

// ToOrderStatus is the inverse of FromOrderStatus.
func ToOrderStatus(k string) (database.OrderStatus, bool) {
	for s, v := range orderToKitchen {
		if v == k {
			return s, true
		}
	}
	return "", false
}

func priorityRank(p string) int {
	switch p {
	case enum.PriorityRush:
		return 0
	case enum.PriorityVIP:
		return 1
	default:
		return 2
	}
}

// Sort orders RUSH first, then VIP, then everything else, oldest first within
// a priority. The sort is stable and happens in place.
func Sort(orders []Order) {
	slices.SortStableFunc(orders, func(a, b Order) int {
		if c := cmp.Compare(priorityRank(a.Priority), priorityRank(b.Priority)); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// Project builds the kitchen view of one order. Items that belong to other
// orders are ignored, so a batch query result can be passed as is.
func Project(o database.Order, items []database.ListKitchenItemsByOrdersRow) Order {
	status, _ := FromOrderStatus(o.Status)
	ko := Order{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      status,
		Priority:    o.Priority,
		TableRef:    textPtr(o.TableRef.String, o.TableRef.Valid),
		CustomerRef: textPtr(o.CustomerRef.String, o.CustomerRef.Valid),
		Notes:       textPtr(o.Notes.String, o.Notes.Valid),
		CreatedAt:   o.CreatedAt,
		Items:       []Item{},
	}
	for _, it := range items {
		if it.OrderID != o.ID {
			continue
		}
		ko.Items = append(ko.Items, Item{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Status:      it.KitchenStatus,
		})
	}
	return ko
}

// Group buckets projected orders by kitchen status and sorts each bucket.
// Completed orders are dropped.
func Group(orders []Order) Board {
	b := Board{New: []Order{}, InProgress: []Order{}, Ready: []Order{}}
	for _, o := range orders {
		switch o.Status {
		case enum.KitchenOrderNew:
			b.New = append(b.New, o)
		case enum.KitchenOrderInProgress:
			b.InProgress = append(b.InProgress, o)
		case enum.KitchenOrderReady:
			b.Ready = append(b.Ready, o)
		}
	}
	Sort(b.New)
	Sort(b.InProgress)
	Sort(b.Ready)
	return b
}

// ItemStatuses returns the statuses of the given items in order.
func ItemStatuses(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Status
	}
	return out
}

func textPtr(s string, valid bool) *string {
	if !valid {
		return nil
	}
	return &s
}
