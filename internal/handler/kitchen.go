package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiwari-pos/ordercore/internal/enum"
	"github.com/kiwari-pos/ordercore/internal/kitchen"
	"github.com/kiwari-pos/ordercore/internal/middleware"
	"github.com/kiwari-pos/ordercore/internal/service"
)

// KitchenServicer defines the service methods needed by the kitchen display.
type KitchenServicer interface {
	Board(ctx context.Context) (kitchen.Board, error)
	ToggleItem(ctx context.Context, orderID, itemID, actor uuid.UUID) (*kitchen.Order, error)
	Bump(ctx context.Context, orderID, actor uuid.UUID) (*service.OrderResult, error)
}

// KitchenHandler handles kitchen display endpoints.
type KitchenHandler struct {
	svc KitchenServicer
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer) *KitchenHandler {
	return &KitchenHandler{svc: svc}
}

// RegisterRoutes registers kitchen endpoints. Expected to be mounted at
// /kitchen. Cashiers may view the board but not change it.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Board)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.UserRoleKitchen, enum.UserRoleManager, enum.UserRoleOwner))
		r.Post("/orders/{id}/items/{itemId}/toggle", h.ToggleItem)
		r.Post("/orders/{id}/bump", h.Bump)
	})
}

// Board handles GET /kitchen/orders.
func (h *KitchenHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Board(r.Context())
	if err != nil {
		writeServiceError(w, r, "kitchen board", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// ToggleItem handles POST /kitchen/orders/{id}/items/{itemId}/toggle.
func (h *KitchenHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	itemID, ok := parseUUIDParam(w, r, "itemId", "item ID")
	if !ok {
		return
	}

	order, err := h.svc.ToggleItem(r.Context(), orderID, itemID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, "toggle kitchen item", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Bump handles POST /kitchen/orders/{id}/bump, completing a ready order.
func (h *KitchenHandler) Bump(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.svc.Bump(r.Context(), orderID, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, "bump order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}
