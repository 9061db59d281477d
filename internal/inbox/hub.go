package inbox

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"farm-alert-service/internal/logging"
)

const (
	// MaxConnectionsPerFarmer caps open websocket connections per farmer.
	MaxConnectionsPerFarmer = 10

	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// ErrTooManyConnections is returned by Hub.Add when a farmer is at the cap.
var ErrTooManyConnections = errors.New("too many websocket connections")

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client owns the only writer goroutine for one connection.
type client struct {
	conn Conn
	send chan []byte
}

// Hub tracks open websocket connections per farmer and pushes inbox events to them.
// Broadcast never waits on a socket: each connection drains its own buffer, and a
// connection whose buffer is full is dropped.
type Hub struct {
	connections map[int64]map[Conn]*client // farmerID -> connections
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[int64]map[Conn]*client),
		logger:      logger,
	}
}

// Add registers conn for farmerID and starts its writer.
func (h *Hub) Add(farmerID int64, conn Conn) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[farmerID]; !exists {
		h.connections[farmerID] = make(map[Conn]*client)
	}
	if len(h.connections[farmerID]) >= MaxConnectionsPerFarmer {
		h.logger.Warnf("Max connections reached for farmer %d", farmerID)
		return ErrTooManyConnections
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.connections[farmerID][conn] = c
	go h.writePump(farmerID, c)
	h.logger.Infof("Added WebSocket connection for farmer %d (total: %d)", farmerID, len(h.connections[farmerID]))
	return nil
}

// Remove unregisters conn and stops its writer. Removing an unknown conn is a no-op.
func (h *Hub) Remove(farmerID int64, conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.drop(farmerID, conn) {
		h.logger.Infof("Removed WebSocket connection for farmer %d (remaining: %d)", farmerID, len(h.connections[farmerID]))
	}
}

// Count returns the number of open connections for farmerID.
func (h *Hub) Count(farmerID int64) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.connections[farmerID])
}

// Broadcast queues message for every connection of farmerID.
func (h *Hub) Broadcast(farmerID int64, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, c := range h.connections[farmerID] {
		select {
		case c.send <- message:
		default:
			h.logger.Warnf("WebSocket for farmer %d is not keeping up, dropping it", farmerID)
			h.drop(farmerID, conn)
		}
	}
}

// drop must be called with the mutex held.
func (h *Hub) drop(farmerID int64, conn Conn) bool {
	conns, exists := h.connections[farmerID]
	if !exists {
		return false
	}
	c, ok := conns[conn]
	if !ok {
		return false
	}
	delete(conns, conn)
	close(c.send)
	if len(conns) == 0 {
		delete(h.connections, farmerID)
	}
	return true
}

func (h *Hub) writePump(farmerID int64, c *client) {
	defer func() {
		_ = c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			h.logger.Errorf("Failed to set WebSocket write deadline for farmer %d: %v", farmerID, err)
			h.Remove(farmerID, c.conn)
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Errorf("Failed to send WebSocket message to farmer %d: %v", farmerID, err)
			h.Remove(farmerID, c.conn)
			return
		}
	}
}
