// Package monitoring pushes live analytics events to dashboard clients over
// WebSocket.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType names an analytics event.
type EventType string

const (
	EventVisit      EventType = "visit"
	EventPrediction EventType = "prediction"
	EventReset      EventType = "reset"
	EventHeartbeat  EventType = "heartbeat"
)

const (
	writeWait                = 10 * time.Second
	pingInterval             = 30 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	sendBuffer               = 64
)

// Message is the envelope sent to every client.
type Message struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans analytics events out to connected WebSocket clients. Slow clients
// whose buffer fills are dropped.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	heartbeat  time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewHub creates a hub; call Start before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:    logger.Named("hub"),
		heartbeat: defaultHeartbeatInterval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetHeartbeatInterval changes how often clients get a heartbeat carrying
// the connected client count. Call it before Start.
func (h *Hub) SetHeartbeatInterval(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

// Start runs the hub loop until Stop is called.
func (h *Hub) Start() {
	defer h.logger.Debug("websocket hub stopped")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("client", c.id), zap.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", zap.String("client", c.id), zap.Int("total", total))

		case message := <-h.broadcast:
			h.deliver(message)

		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			message, err := encodeMessage(EventHeartbeat, map[string]int{"clients": h.ClientCount()})
			if err != nil {
				h.logger.Warn("encode heartbeat", zap.Error(err))
				continue
			}
			h.deliver(message)

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client and ends the hub loop.
func (h *Hub) Stop() {
	h.cancel()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Publish encodes data and queues it for every client. A full queue drops
// the message.
func (h *Hub) Publish(eventType EventType, data interface{}) error {
	encoded, err := encodeMessage(eventType, data)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- encoded:
	default:
		h.logger.Warn("broadcast queue is full, dropping message", zap.String("type", string(eventType)))
	}
	return nil
}

func encodeMessage(eventType EventType, data interface{}) ([]byte, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
		}
		msg.Data = payload
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return encoded, nil
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; clients do not send commands.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
	}
}
