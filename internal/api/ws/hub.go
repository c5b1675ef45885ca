package ws

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

const defaultClientBuffer = 256

// client is one subscribed connection
type client struct {
	id     string
	filter string // session id, empty for all sessions
	send   chan []byte
}

func (c *client) wants(e terminal.Event) bool {
	return c.filter == "" || c.filter == e.SessionID
}

// Hub fans terminal events out to WebSocket clients
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	bufferSize int
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*client),
		bufferSize: defaultClientBuffer,
		logger:     logger.Named("ws"),
		metrics:    metrics,
	}
}

// Emit implements terminal.EventSink. It never blocks.
func (h *Hub) Emit(e terminal.Event) {
	frame, err := sonic.Marshal(e)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("session_id", e.SessionID), zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.wants(e) {
			continue
		}
		select {
		case c.send <- frame:
			h.metrics.RecordWSMessage("out", string(e.Type))
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.unsubscribe(c) {
			h.metrics.IncWSDropped()
			h.logger.Warn("dropping slow client", zap.String("client_id", c.id))
		}
	}
}

// subscribe registers a client receiving events for filter ("" for all)
func (h *Hub) subscribe(filter string) *client {
	c := &client{
		id:     uuid.NewString(),
		filter: filter,
		send:   make(chan []byte, h.bufferSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.metrics.IncWSConnections()
	return c
}

// unsubscribe removes c and closes its queue; it reports whether c was present.
func (h *Hub) unsubscribe(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	h.metrics.DecWSConnections()
	return true
}

// sendTo queues a frame for one client, reporting false if it is gone or full.
func (h *Hub) sendTo(c *client, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.id]; !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Len returns the number of subscribed clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, c := range h.clients {
		delete(h.clients, key)
		close(c.send)
		h.metrics.DecWSConnections()
	}
}
