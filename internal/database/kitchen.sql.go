package database

import (
	"context"

	"github.com/google/uuid"
)

const listKitchenItemsByOrders = `-- name: ListKitchenItemsByOrders :many
SELECT oi.id, oi.order_id, oi.product_id, oi.product_name, oi.quantity, oi.price, oi.discount, oi.total, oi.created_at,
       COALESCE(ks.status, 'PENDING') AS kitchen_status
FROM order_items oi
LEFT JOIN order_item_kitchen_states ks ON ks.order_item_id = oi.id
WHERE oi.order_id = ANY($1::uuid[])
ORDER BY oi.order_id, oi.created_at, oi.id
`

type ListKitchenItemsByOrdersRow struct {
	OrderItem
	KitchenStatus string `json:"kitchen_status"`
}

func (q *Queries) ListKitchenItemsByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]ListKitchenItemsByOrdersRow, error) {
	rows, err := q.db.Query(ctx, listKitchenItemsByOrders, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListKitchenItemsByOrdersRow{}
	for rows.Next() {
		var i ListKitchenItemsByOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.ProductName,
			&i.Quantity,
			&i.Price,
			&i.Discount,
			&i.Total,
			&i.CreatedAt,
			&i.KitchenStatus,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertKitchenItemState = `-- name: UpsertKitchenItemState :one
INSERT INTO order_item_kitchen_states (order_item_id, status, updated_by)
VALUES ($1, $2, $3)
ON CONFLICT (order_item_id) DO UPDATE
SET status = EXCLUDED.status, updated_by = EXCLUDED.updated_by, updated_at = now()
RETURNING order_item_id, status, updated_by, updated_at
`

type UpsertKitchenItemStateParams struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Status      string    `json:"status"`
	UpdatedBy   uuid.UUID `json:"updated_by"`
}

func (q *Queries) UpsertKitchenItemState(ctx context.Context, arg UpsertKitchenItemStateParams) (OrderItemKitchenState, error) {
	var i OrderItemKitchenState
	err := q.db.QueryRow(ctx, upsertKitchenItemState, arg.OrderItemID, arg.Status, arg.UpdatedBy).Scan(
		&i.OrderItemID,
		&i.Status,
		&i.UpdatedBy,
		&i.UpdatedAt,
	)
	return i, err
}
