package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Kitchen item progress. Stored in order_item_kitchen_states; no row means PENDING.
const (
	KitchenItemPending   = "PENDING"
	KitchenItemPreparing = "PREPARING"
	KitchenItemReady     = "READY"
)

// Kitchen display vocabulary, derived from the order status. Never persisted.
const (
	KitchenOrderNew        = "NEW"
	KitchenOrderInProgress = "IN_PROGRESS"
	KitchenOrderReady      = "READY"
	KitchenOrderCompleted  = "COMPLETED"
)

const (
	MovementSale           = "SALE"
	MovementReturn         = "RETURN"
	MovementManualAdd      = "MANUAL_ADD"
	MovementManualSubtract = "MANUAL_SUBTRACT"
	MovementManualSet      = "MANUAL_SET"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	PriorityNormal = "NORMAL"
	PriorityRush   = "RUSH"
	PriorityVIP    = "VIP"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodQRIS     = "QRIS"
	PaymentMethodTransfer = "TRANSFER"
)

const (
	AdjustModeAdd      = "add"
	AdjustModeSubtract = "subtract"
	AdjustModeSet      = "set"
)
