package websocket

import (
	"encoding/json"
	"sync"

	"github.com/ikkim/cartsync/pkg/logger"
)

// CartEvent is pushed to a user's other connected devices after every
// server-side cart write, so they can refresh without polling.
type CartEvent struct {
	Type     string `json:"type"` // item_set, cart_cleared, cart_merged
	ItemID   string `json:"item_id,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

const (
	EventItemSet     = "item_set"
	EventCartCleared = "cart_cleared"
	EventCartMerged  = "cart_merged"
)

// Client is one connected device.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID string
	Send   chan []byte
}

// Hub tracks connected devices per user (multi-device support).
type Hub struct {
	clients    map[string][]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
	}
}

// Run processes register/unregister events. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.UserID]; ok {
				for i, c := range clientList {
					if c == client {
						h.clients[client.UserID] = append(clientList[:i], clientList[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id": client.UserID,
			})
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// NotifyUser sends the event to every device of the user. Slow or
// gone devices are skipped, never blocked on.
func (h *Hub) NotifyUser(userID string, event CartEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to encode cart event", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			logger.Warn("Dropping cart event for slow client", map[string]interface{}{
				"user_id": userID,
			})
		}
	}
}
