package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/utils"
)

// SessionService is the subset of terminal.Manager the handlers use
type SessionService interface {
	Create(ctx context.Context) (string, error)
	Write(sessionID string, data []byte) error
	Resize(sessionID string, rows, cols uint16) error
	Close(sessionID string) error
	Stats() terminal.Snapshot
}

// ToolExecutor dispatches named tools
type ToolExecutor interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sessions SessionService
	tools    ToolExecutor
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(sessions SessionService, tools ToolExecutor, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sessions: sessions,
		tools:    tools,
		metrics:  metrics,
		logger:   logger.Named("api"),
	}
}

// Register mounts the handlers on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/services", h.Services)
	r.GET("/stats", h.Stats)
	r.POST("/invoke", h.Invoke)

	sessions := r.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.POST("/:id/input", h.WriteSession)
	sessions.POST("/:id/resize", h.ResizeSession)
	sessions.DELETE("/:id", h.CloseSession)
}

// CreateSessionResponse is returned by POST /sessions
type CreateSessionResponse struct {
	ID string `json:"id"`
}

// InputRequest is the body of POST /sessions/:id/input
type InputRequest struct {
	Data string `json:"data"`
}

// ResizeRequest is the body of POST /sessions/:id/resize
type ResizeRequest struct {
	Rows uint16 `json:"rows" binding:"required,min=1"`
	Cols uint16 `json:"cols" binding:"required,min=1"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ptyd",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	stats := h.sessions.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": stats.ActiveSessions,
		"max_sessions":    stats.MaxSessions,
		"metrics":         h.metrics.Snapshot(),
	})
}

// Services lists the tools available through /invoke
func (h *Handlers) Services(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": []types.Service{h.tools.Definition()}})
}

// CreateSession spawns a new shell session
func (h *Handlers) CreateSession(c *gin.Context) {
	sessionID, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateSessionResponse{ID: sessionID})
}

// WriteSession sends input to a session
func (h *Handlers) WriteSession(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalid(err))
		return
	}

	if err := utils.ValidateInput([]byte(req.Data)); err != nil {
		h.writeError(c, invalid(err))
		return
	}

	if err := h.sessions.Write(c.Param("id"), []byte(req.Data)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResizeSession changes a session's window size
func (h *Handlers) ResizeSession(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalid(err))
		return
	}

	if err := h.sessions.Resize(c.Param("id"), req.Rows, req.Cols); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CloseSession terminates a session
func (h *Handlers) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats returns the session snapshot
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Stats())
}

// Invoke executes a tool by id
func (h *Handlers) Invoke(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, invalid(err))
		return
	}
	if err := utils.ValidateToolID(req.ToolID, "tool_id", true); err != nil {
		h.writeError(c, invalid(err))
		return
	}

	result, err := h.tools.Execute(c.Request.Context(), req.ToolID, req.Params)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func invalid(err error) error {
	return &terminal.Error{Kind: terminal.ErrInvalidArgument, Err: err}
}

// StatusFor maps an error kind to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, terminal.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, terminal.ErrCapacityExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, terminal.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, terminal.ErrIO):
		return http.StatusBadGateway
	case errors.Is(err, terminal.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:      err.Error(),
		Kind:       terminal.Kind(err),
		Suggestion: terminal.Suggestion(err),
	})
}
