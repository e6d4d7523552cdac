package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusCOMPLETED OrderStatus = "COMPLETED"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

func (e OrderStatus) Value() (driver.Value, error) {
	return string(e), nil
}

type StockMovementType string

const (
	StockMovementTypeSALE           StockMovementType = "SALE"
	StockMovementTypeRETURN         StockMovementType = "RETURN"
	StockMovementTypeMANUALADD      StockMovementType = "MANUAL_ADD"
	StockMovementTypeMANUALSUBTRACT StockMovementType = "MANUAL_SUBTRACT"
	StockMovementTypeMANUALSET      StockMovementType = "MANUAL_SET"
)

func (e *StockMovementType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = StockMovementType(s)
	case string:
		*e = StockMovementType(s)
	default:
		return fmt.Errorf("unsupported scan type for StockMovementType: %T", src)
	}
	return nil
}

func (e StockMovementType) Value() (driver.Value, error) {
	return string(e), nil
}

type Product struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Price     pgtype.Numeric `json:"price"`
	Stock     int32          `json:"stock"`
	MinStock  int32          `json:"min_stock"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Order struct {
	ID            uuid.UUID          `json:"id"`
	OrderNumber   string             `json:"order_number"`
	Status        OrderStatus        `json:"status"`
	Subtotal      pgtype.Numeric     `json:"subtotal"`
	Tax           pgtype.Numeric     `json:"tax"`
	Total         pgtype.Numeric     `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	CustomerRef   pgtype.Text        `json:"customer_ref"`
	TableRef      pgtype.Text        `json:"table_ref"`
	Notes         pgtype.Text        `json:"notes"`
	Priority      string             `json:"priority"`
	CreatedBy     uuid.UUID          `json:"created_by"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	CompletedAt   pgtype.Timestamptz `json:"completed_at"`
}

type OrderItem struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     uuid.UUID      `json:"order_id"`
	ProductID   uuid.UUID      `json:"product_id"`
	ProductName string         `json:"product_name"`
	Quantity    int32          `json:"quantity"`
	Price       pgtype.Numeric `json:"price"`
	Discount    pgtype.Numeric `json:"discount"`
	Total       pgtype.Numeric `json:"total"`
	CreatedAt   time.Time      `json:"created_at"`
}

type OrderItemKitchenState struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	Status      string    `json:"status"`
	UpdatedBy   uuid.UUID `json:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type StockMovement struct {
	ID            uuid.UUID         `json:"id"`
	ProductID     uuid.UUID         `json:"product_id"`
	Quantity      int32             `json:"quantity"`
	Type          StockMovementType `json:"type"`
	PreviousStock int32             `json:"previous_stock"`
	NewStock      int32             `json:"new_stock"`
	OrderID       pgtype.UUID       `json:"order_id"`
	Reason        pgtype.Text       `json:"reason"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
}
