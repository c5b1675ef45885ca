package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// SessionService is what inbound messages act on
type SessionService interface {
	Write(sessionID string, data []byte) error
	Resize(sessionID string, rows, cols uint16) error
	Close(sessionID string) error
}

// Message is an inbound client frame
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data string `json:"data,omitempty"`
	Rows uint16 `json:"rows,omitempty"`
	Cols uint16 `json:"cols,omitempty"`
}

// Reply answers an inbound frame
type Reply struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Op         string `json:"op,omitempty"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware
	},
}

// Handler manages WebSocket connections
type Handler struct {
	hub      *Hub
	sessions SessionService
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, sessions SessionService, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:      hub,
		sessions: sessions,
		logger:   logger.Named("ws"),
		metrics:  metrics,
	}
}

// HandleConnection upgrades the request and streams events until the peer leaves
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := h.hub.subscribe(c.Query("session"))
	h.logger.Debug("client connected", zap.String("client_id", cl.id), zap.String("session_id", cl.filter))

	go h.writePump(conn, cl)
	h.readPump(conn, cl)

	h.hub.unsubscribe(cl)
	h.logger.Debug("client disconnected", zap.String("client_id", cl.id))
}

// writePump is the only writer on conn.
func (h *Handler) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readPump(conn *websocket.Conn, cl *client) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.reply(cl, Reply{Type: "error", Error: "malformed message", Kind: terminal.Kind(terminal.ErrInvalidArgument)})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		h.reply(cl, h.dispatch(msg))
	}
}

func (h *Handler) dispatch(msg Message) Reply {
	var err error
	switch msg.Type {
	case "input":
		err = h.sessions.Write(msg.ID, []byte(msg.Data))
	case "resize":
		err = h.sessions.Resize(msg.ID, msg.Rows, msg.Cols)
	case "close":
		err = h.sessions.Close(msg.ID)
	case "ping":
		return Reply{Type: "pong"}
	default:
		return Reply{Type: "error", Op: msg.Type, Error: "unknown message type", Kind: terminal.Kind(terminal.ErrInvalidArgument)}
	}

	if err != nil {
		return Reply{
			Type:       "error",
			ID:         msg.ID,
			Op:         msg.Type,
			Error:      err.Error(),
			Kind:       terminal.Kind(err),
			Suggestion: terminal.Suggestion(err),
		}
	}
	return Reply{Type: "ack", ID: msg.ID, Op: msg.Type}
}

func (h *Handler) reply(cl *client, r Reply) {
	frame, err := sonic.Marshal(r)
	if err != nil {
		h.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	if !h.hub.sendTo(cl, frame) {
		h.logger.Debug("reply dropped", zap.String("client_id", cl.id), zap.String("type", r.Type))
		return
	}
	h.metrics.RecordWSMessage("out", r.Type)
}
