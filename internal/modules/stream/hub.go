package stream

import (
	"encoding/json"
	"sync"
	"time"

	"schoolpay/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StatusEvent is the message pushed to subscribers whenever an order's
// status changes.
type StatusEvent struct {
	Type          string               `json:"type"`
	OrderID       int64                `json:"order_id"`
	CustomOrderID string               `json:"custom_order_id"`
	SchoolID      string               `json:"school_id"`
	Status        domain.PaymentStatus `json:"status"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// client owns the write side of one connection: everything outbound goes
// through send and the single write pump, pings included. gorilla/websocket
// permits only one concurrent writer per connection.
type client struct {
	conn     *websocket.Conn
	send     chan []byte
	schoolID string
	isAdmin  bool
}

// Hub fans status updates out to connected dashboards. School clients only
// receive events for their own school; admins receive everything.
type Hub struct {
	clients map[int64]*client
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]*client),
	}
}

// Register adds a connection and starts its write pump. A reconnecting user
// displaces their previous connection. The returned handle must be passed
// back to Unregister.
func (h *Hub) Register(userID int64, caller domain.Caller, conn *websocket.Conn) *client {
	c := &client{
		conn:     conn,
		send:     make(chan []byte, 64),
		schoolID: caller.SchoolID,
		isAdmin:  caller.IsAdmin(),
	}

	h.mutex.Lock()
	if old, exists := h.clients[userID]; exists && old != nil {
		close(old.send)
	}
	h.clients[userID] = c
	h.mutex.Unlock()

	go c.writePump()
	return c
}

// Unregister removes the connection unless the user already reconnected and
// owns a newer one.
func (h *Hub) Unregister(userID int64, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if existing, exists := h.clients[userID]; exists && existing == c {
		delete(h.clients, userID)
		close(c.send)
	}
}

// PublishStatus implements the reconciliation publisher hook. Events are
// queued onto each subscriber's send channel; the pipeline itself never
// blocks on the feed.
func (h *Hub) PublishStatus(order *domain.Order, status domain.PaymentStatus) {
	event := StatusEvent{
		Type:          "order_status",
		OrderID:       order.ID,
		CustomOrderID: order.CustomOrderID,
		SchoolID:      order.SchoolID,
		Status:        status,
		OccurredAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, c := range h.clients {
		if c.isAdmin || c.schoolID == order.SchoolID {
			select {
			case c.send <- data:
			default:
				// Client too slow — skip
			}
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, c := range h.clients {
		if c != nil {
			close(c.send)
		}
		delete(h.clients, id)
	}
}

// writePump is the connection's sole writer. It drains the send channel,
// keeps the peer alive with pings, and closes the connection on the way out
// so the read loop unblocks.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
