package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stockMovementColumns = `id, product_id, quantity, type, previous_stock, new_stock, order_id, reason, created_by, created_at`

func scanStockMovement(row interface{ Scan(...any) error }) (StockMovement, error) {
	var i StockMovement
	err := row.Scan(
		&i.ID,
		&i.ProductID,
		&i.Quantity,
		&i.Type,
		&i.PreviousStock,
		&i.NewStock,
		&i.OrderID,
		&i.Reason,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createStockMovement = `-- name: CreateStockMovement :one
INSERT INTO stock_movements (product_id, quantity, type, previous_stock, new_stock, order_id, reason, created_by)
VALUES ($1, $2, $3::stock_movement_type, $4, $5, $6, $7, $8)
RETURNING ` + stockMovementColumns + `
`

type CreateStockMovementParams struct {
	ProductID     uuid.UUID         `json:"product_id"`
	Quantity      int32             `json:"quantity"`
	Type          StockMovementType `json:"type"`
	PreviousStock int32             `json:"previous_stock"`
	NewStock      int32             `json:"new_stock"`
	OrderID       pgtype.UUID       `json:"order_id"`
	Reason        pgtype.Text       `json:"reason"`
	CreatedBy     uuid.UUID         `json:"created_by"`
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	return scanStockMovement(q.db.QueryRow(ctx, createStockMovement,
		arg.ProductID,
		arg.Quantity,
		string(arg.Type),
		arg.PreviousStock,
		arg.NewStock,
		arg.OrderID,
		arg.Reason,
		arg.CreatedBy,
	))
}

const listStockMovementsByProduct = `-- name: ListStockMovementsByProduct :many
SELECT ` + stockMovementColumns + ` FROM stock_movements
WHERE product_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

type ListStockMovementsByProductParams struct {
	ProductID uuid.UUID `json:"product_id"`
	Limit     int32     `json:"limit"`
	Offset    int32     `json:"offset"`
}

func (q *Queries) ListStockMovementsByProduct(ctx context.Context, arg ListStockMovementsByProductParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByProduct, arg.ProductID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockMovement{}
	for rows.Next() {
		i, err := scanStockMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStockMovementsByOrder = `-- name: ListStockMovementsByOrder :many
SELECT ` + stockMovementColumns + ` FROM stock_movements
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListStockMovementsByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockMovement{}
	for rows.Next() {
		i, err := scanStockMovement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
