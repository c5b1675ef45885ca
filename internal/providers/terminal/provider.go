package terminal

import (
	"context"
	"fmt"
	"math"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/types"
)

// Provider exposes the session manager as named tools
type Provider struct {
	manager *Manager
}

// NewProvider creates a new terminal provider
func NewProvider(manager *Manager) *Provider {
	return &Provider{manager: manager}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive shell sessions over pseudo-terminals",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"sessions",
			"resize",
			"idle-reaping",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(ctx)
	case "terminal.write":
		return p.write(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.close":
		return p.close(params)
	case "terminal.stats":
		return p.stats()
	default:
		return nil, newError(ErrInvalidArgument, "", fmt.Errorf("unknown tool: %s", toolID), "")
	}
}

func (p *Provider) getTools() []types.Tool {
	sessionParam := types.Parameter{
		Name:        "session_id",
		Type:        "string",
		Description: "Terminal session ID",
		Required:    true,
	}

	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Spawn the default shell inside a new pseudo-terminal",
			Parameters:  []types.Parameter{},
			Returns:     "session_id",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a terminal session",
			Parameters: []types.Parameter{
				sessionParam,
				{
					Name:        "data",
					Type:        "string",
					Description: "Input to send to terminal",
					Required:    true,
				},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				sessionParam,
				{
					Name:        "rows",
					Type:        "number",
					Description: "New height in rows",
					Required:    true,
				},
				{
					Name:        "cols",
					Type:        "number",
					Description: "New width in columns",
					Required:    true,
				},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.close",
			Name:        "Close Terminal Session",
			Description: "Terminate a terminal session and release its pty",
			Parameters:  []types.Parameter{sessionParam},
			Returns:     "success",
		},
		{
			ID:          "terminal.stats",
			Name:        "Terminal Statistics",
			Description: "Report live sessions with their age and idle time",
			Parameters:  []types.Parameter{},
			Returns:     "stats",
		},
	}
}

func (p *Provider) createSession(ctx context.Context) (*types.Result, error) {
	sessionID, err := p.manager.Create(ctx)
	if err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"session_id": sessionID},
	}, nil
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return nil, err
	}

	data, ok := params["data"].(string)
	if !ok {
		// accept the older "input" spelling
		if data, ok = params["input"].(string); !ok {
			return nil, missingParam("data")
		}
	}

	if err := p.manager.Write(sessionID, []byte(data)); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return nil, err
	}

	rows, err := dimensionParam(params, "rows")
	if err != nil {
		return nil, err
	}

	cols, err := dimensionParam(params, "cols")
	if err != nil {
		return nil, err
	}

	if err := p.manager.Resize(sessionID, rows, cols); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) close(params map[string]interface{}) (*types.Result, error) {
	sessionID, err := stringParam(params, "session_id")
	if err != nil {
		return nil, err
	}

	if err := p.manager.Close(sessionID); err != nil {
		return nil, err
	}

	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"success": true},
	}, nil
}

func (p *Provider) stats() (*types.Result, error) {
	snap := p.manager.Stats()

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"active_sessions": snap.ActiveSessions,
			"max_sessions":    snap.MaxSessions,
			"sessions":        snap.Sessions,
			"platform":        snap.Platform,
			"shell":           snap.Shell,
		},
	}, nil
}

func missingParam(name string) error {
	return newError(ErrInvalidArgument, "", fmt.Errorf("%s is required", name), "")
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	value, ok := params[name].(string)
	if !ok || value == "" {
		return "", missingParam(name)
	}
	return value, nil
}

// dimensionParam reads a row or column count; JSON numbers arrive as float64.
func dimensionParam(params map[string]interface{}, name string) (uint16, error) {
	var value float64
	switch v := params[name].(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case uint16:
		return v, nil
	default:
		return 0, missingParam(name)
	}

	if value < 0 || value > math.MaxUint16 || value != math.Trunc(value) {
		return 0, newError(ErrInvalidArgument, "", fmt.Errorf("%s out of range: %v", name, value), "")
	}
	return uint16(value), nil
}
