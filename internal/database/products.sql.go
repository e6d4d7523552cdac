package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, price, stock, min_stock, is_active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.Stock,
		&i.MinStock,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForUpdate = `-- name: GetProductForUpdate :one
SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE
`

// GetProductForUpdate locks the product row until the enclosing transaction ends.
func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForUpdate, id))
}

const getProductsByIDs = `-- name: GetProductsByIDs :many
SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])
`

func (q *Queries) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products
WHERE ($1::bool = false OR is_active = true)
  AND ($2::bool = false OR stock <= min_stock)
ORDER BY name
`

type ListProductsParams struct {
	ActiveOnly   bool `json:"active_only"`
	LowStockOnly bool `json:"low_stock_only"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, arg.ActiveOnly, arg.LowStockOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		i, err := scanProduct(rows)
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

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (name, price, stock, min_stock, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns + `
`

type CreateProductParams struct {
	Name     string         `json:"name"`
	Price    pgtype.Numeric `json:"price"`
	Stock    int32          `json:"stock"`
	MinStock int32          `json:"min_stock"`
	IsActive bool           `json:"is_active"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Price,
		arg.Stock,
		arg.MinStock,
		arg.IsActive,
	))
}

const reserveStock = `-- name: ReserveStock :one
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND is_active = true AND stock >= $2
RETURNING stock, min_stock
`

type ReserveStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

type ReserveStockRow struct {
	Stock    int32 `json:"stock"`
	MinStock int32 `json:"min_stock"`
}

// ReserveStock decrements stock only when enough is available and returns the
// new stock. pgx.ErrNoRows means the guard did not hold.
func (q *Queries) ReserveStock(ctx context.Context, arg ReserveStockParams) (ReserveStockRow, error) {
	var i ReserveStockRow
	err := q.db.QueryRow(ctx, reserveStock, arg.ID, arg.Quantity).Scan(&i.Stock, &i.MinStock)
	return i, err
}

const restoreStock = `-- name: RestoreStock :one
UPDATE products
SET stock = stock + $2, updated_at = now()
WHERE id = $1
RETURNING stock, min_stock
`

type RestoreStockParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

type RestoreStockRow struct {
	Stock    int32 `json:"stock"`
	MinStock int32 `json:"min_stock"`
}

func (q *Queries) RestoreStock(ctx context.Context, arg RestoreStockParams) (RestoreStockRow, error) {
	var i RestoreStockRow
	err := q.db.QueryRow(ctx, restoreStock, arg.ID, arg.Quantity).Scan(&i.Stock, &i.MinStock)
	return i, err
}

const setProductStock = `-- name: SetProductStock :one
UPDATE products
SET stock = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns + `
`

type SetProductStockParams struct {
	ID    uuid.UUID `json:"id"`
	Stock int32     `json:"stock"`
}

func (q *Queries) SetProductStock(ctx context.Context, arg SetProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, setProductStock, arg.ID, arg.Stock))
}
