package service

import "github.com/kiwari-pos/ordercore/internal/apperr"

// Errors returned by the services. Each wraps an apperr kind.
var (
	ErrEmptyItems           = apperr.New(apperr.ErrValidation, "items are required")
	ErrInvalidQuantity      = apperr.New(apperr.ErrValidation, "quantity must be > 0")
	ErrInvalidDiscount      = apperr.New(apperr.ErrValidation, "discount must be between 0 and 100 with at most 2 decimal places")
	ErrInvalidProductID     = apperr.New(apperr.ErrValidation, "invalid product_id")
	ErrUnknownProduct       = apperr.New(apperr.ErrValidation, "product does not exist")
	ErrProductInactive      = apperr.New(apperr.ErrValidation, "product is not active")
	ErrInvalidPaymentMethod = apperr.New(apperr.ErrValidation, "invalid payment_method")
	ErrInvalidPriority      = apperr.New(apperr.ErrValidation, "invalid priority")
	ErrInvalidStatus        = apperr.New(apperr.ErrValidation, "invalid status")
	ErrInvalidDateRange     = apperr.New(apperr.ErrValidation, "date_from must not be after date_to")
	ErrInvalidAdjustMode    = apperr.New(apperr.ErrValidation, "mode must be add, subtract or set")
	ErrInvalidAdjustQty     = apperr.New(apperr.ErrValidation, "invalid quantity for stock adjustment")
	ErrStockOverflow        = apperr.New(apperr.ErrValidation, "resulting stock is too large")
	ErrInvalidProductName   = apperr.New(apperr.ErrValidation, "name is required")
	ErrInvalidPrice         = apperr.New(apperr.ErrValidation, "price must be a non-negative amount")
	ErrInvalidStock         = apperr.New(apperr.ErrValidation, "stock and min_stock must be >= 0")

	ErrInsufficientStock = apperr.New(apperr.ErrBusinessRule, "insufficient stock")
	ErrInvalidTransition = apperr.New(apperr.ErrBusinessRule, "invalid status transition")
	ErrOrderNotOpen      = apperr.New(apperr.ErrBusinessRule, "order is not open in the kitchen")

	ErrProductNotFound = apperr.New(apperr.ErrNotFound, "product not found")
	ErrOrderNotFound   = apperr.New(apperr.ErrNotFound, "order not found")
	ErrItemNotFound    = apperr.New(apperr.ErrNotFound, "order item not found")

	ErrOrderNumberConflict = apperr.New(apperr.ErrConflict, "order number already taken")
	ErrStatusChanged       = apperr.New(apperr.ErrConflict, "order status changed concurrently")
)
