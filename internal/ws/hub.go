package ws

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/kiwari-pos/ordercore/internal/events"
)

// Topics a client can subscribe to. An event's topic is the part of its
// type before the first dot.
const (
	TopicOrder   = "order"
	TopicKitchen = "kitchen"
	TopicStock   = "stock"
)

var allTopics = []string{TopicOrder, TopicKitchen, TopicStock}

func topicOf(eventType string) string {
	topic, _, _ := strings.Cut(eventType, ".")
	return topic
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by topic
	rooms map[string]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan events.Event

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan events.Event, 256),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every client. This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			for _, topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal event to JSON once
			message, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: marshal websocket event %s: %v", event.Type, err)
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[topicOf(event.Type)] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, drop it
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked drops client from every room it joined and closes its send
// channel. Callers hold h.mu.
func (h *Hub) removeLocked(client *Client) {
	removed := false
	for _, topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok || !clients[client] {
			continue
		}
		delete(clients, client)
		removed = true
		// Clean up empty rooms
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if removed {
		close(client.send)
	}
}

// Publish queues an event for every client subscribed to its topic.
// Implements events.Publisher.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	select {
	case h.broadcast <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount reports how many clients are subscribed to topic.
func (h *Hub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}
