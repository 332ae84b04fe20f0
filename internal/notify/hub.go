package notify

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/userpulse/backend/pkg/logger"
)

// Hub tracks live dashboard connections and broadcasts insight payloads to
// all of them.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// HandleConnection registers the connection and blocks until the client
// disconnects. Inbound messages are read and discarded to keep the
// connection alive.
func (h *Hub) HandleConnection(c *websocket.Conn) {
	logger.Info("Dashboard connection established")

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
		logger.Info("Dashboard connection closed")
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast writes payload to every connected dashboard. Connections that
// fail to accept the write are dropped.
func (h *Hub) Broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(payload); err != nil {
			logger.Warn("Dropping dashboard connection", zap.Error(err))
			h.mu.Lock()
			delete(h.conns, c)
			h.mu.Unlock()
			c.Close()
		}
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
