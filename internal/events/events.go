// Package events carries order, kitchen and stock notifications from the
// service layer to live consumers (websocket clients, the message broker).
// Events are emitted only after the owning transaction has committed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeKitchenItemUpdated = "kitchen.item_updated"
	TypeStockChanged       = "stock.changed"
)

// Event is the envelope sent to every subscriber.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// New marshals payload into an Event of the given type.
func New(eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: b}, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers each event to all publishers concurrently and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	errs := make([]error, len(f))
	var g errgroup.Group
	for i, p := range f {
		i, p := i, p
		g.Go(func() error {
			errs[i] = p.Publish(ctx, e)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
