package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, status, subtotal, tax, total, payment_method, customer_ref, table_ref, notes, priority, created_by, created_at, updated_at, completed_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.Status,
		&i.Subtotal,
		&i.Tax,
		&i.Total,
		&i.PaymentMethod,
		&i.CustomerRef,
		&i.TableRef,
		&i.Notes,
		&i.Priority,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const orderItemColumns = `id, order_id, product_id, product_name, quantity, price, discount, total, created_at`

func scanOrderItem(row interface{ Scan(...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.Quantity,
		&i.Price,
		&i.Discount,
		&i.Total,
		&i.CreatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (order_number, status, subtotal, tax, total, payment_method, customer_ref, table_ref, notes, priority, created_by)
VALUES ($1, 'PENDING', $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	OrderNumber   string         `json:"order_number"`
	Subtotal      pgtype.Numeric `json:"subtotal"`
	Tax           pgtype.Numeric `json:"tax"`
	Total         pgtype.Numeric `json:"total"`
	PaymentMethod string         `json:"payment_method"`
	CustomerRef   pgtype.Text    `json:"customer_ref"`
	TableRef      pgtype.Text    `json:"table_ref"`
	Notes         pgtype.Text    `json:"notes"`
	Priority      string         `json:"priority"`
	CreatedBy     uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.Subtotal,
		arg.Tax,
		arg.Total,
		arg.PaymentMethod,
		arg.CustomerRef,
		arg.TableRef,
		arg.Notes,
		arg.Priority,
		arg.CreatedBy,
	))
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, product_name, quantity, price, discount, total)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderItemColumns + `
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID      `json:"order_id"`
	ProductID   uuid.UUID      `json:"product_id"`
	ProductName string         `json:"product_name"`
	Quantity    int32          `json:"quantity"`
	Price       pgtype.Numeric `json:"price"`
	Discount    pgtype.Numeric `json:"discount"`
	Total       pgtype.Numeric `json:"total"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.ProductName,
		arg.Quantity,
		arg.Price,
		arg.Discount,
		arg.Total,
	))
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE
`

// GetOrderForUpdate locks the order row until the enclosing transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const getOrderByNumber = `-- name: GetOrderByNumber :one
SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1
`

func (q *Queries) GetOrderByNumber(ctx context.Context, orderNumber string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByNumber, orderNumber))
}

const orderFilter = `
WHERE ($1::text IS NULL OR status = $1::order_status)
  AND ($2::timestamptz IS NULL OR created_at >= $2::timestamptz)
  AND ($3::timestamptz IS NULL OR created_at < $3::timestamptz)
  AND ($4::text IS NULL
       OR order_number ILIKE '%' || $4::text || '%'
       OR customer_ref ILIKE '%' || $4::text || '%'
       OR table_ref ILIKE '%' || $4::text || '%')
`

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders` + orderFilter + `ORDER BY created_at DESC, id DESC
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	Status   pgtype.Text        `json:"status"`
	DateFrom pgtype.Timestamptz `json:"date_from"`
	DateTo   pgtype.Timestamptz `json:"date_to"`
	Search   pgtype.Text        `json:"search"`
	Limit    int32              `json:"limit"`
	Offset   int32              `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.DateFrom,
		arg.DateTo,
		arg.Search,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders` + orderFilter

type CountOrdersParams struct {
	Status   pgtype.Text        `json:"status"`
	DateFrom pgtype.Timestamptz `json:"date_from"`
	DateTo   pgtype.Timestamptz `json:"date_to"`
	Search   pgtype.Text        `json:"search"`
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders,
		arg.Status,
		arg.DateFrom,
		arg.DateTo,
		arg.Search,
	).Scan(&count)
	return count, err
}

const listOpenOrders = `-- name: ListOpenOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('PENDING', 'PREPARING', 'READY')
ORDER BY created_at, id
`

func (q *Queries) ListOpenOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOpenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT ` + orderItemColumns + ` FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		i, err := scanOrderItem(rows)
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2::order_status,
    completed_at = COALESCE($4::timestamptz, completed_at),
    updated_at = now()
WHERE id = $1 AND status = $3::order_status
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	ID             uuid.UUID          `json:"id"`
	Status         OrderStatus        `json:"status"`
	PreviousStatus OrderStatus        `json:"previous_status"`
	CompletedAt    pgtype.Timestamptz `json:"completed_at"`
}

// UpdateOrderStatus only applies when the row still holds PreviousStatus.
// pgx.ErrNoRows means the status changed underneath the caller.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		string(arg.Status),
		string(arg.PreviousStatus),
		arg.CompletedAt,
	))
}
