package wsserver

import (
	"sync"

	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"go.uber.org/zap"
)

type client struct {
	id   string
	send chan chessdto.Envelope
}

// Hub tracks live connections and implements session.Outbox.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*client
	queueSize int
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		clients:   map[string]*client{},
		queueSize: queueSize,
	}
}

// Send queues env for connID without blocking. Frames for unknown
// connections are discarded; a full queue drops the frame.
func (h *Hub) Send(connID string, env chessdto.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	select {
	case c.send <- env:
	default:
		obslog.L().Warn("ws_send_dropped", zap.String("conn_id", connID), zap.String("event", env.Event))
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan chessdto.Envelope, h.queueSize)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

// unregister removes the connection and closes its queue, which stops the writer.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}
