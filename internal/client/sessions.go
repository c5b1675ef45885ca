package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

type createResponse struct {
	ID string `json:"id"`
}

// Health is the body of GET /health
type Health struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	MaxSessions    int    `json:"max_sessions"`
}

// Create starts a new session and returns its id.
func (c *Client) Create(ctx context.Context) (string, error) {
	var out createResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Write sends data to the session's shell.
func (c *Client) Write(ctx context.Context, sessionID string, data []byte) error {
	body := map[string]string{"data": string(data)}
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "input"), body, nil)
}

// Resize changes the session's terminal dimensions.
func (c *Client) Resize(ctx context.Context, sessionID string, rows, cols uint16) error {
	body := map[string]uint16{"rows": rows, "cols": cols}
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "resize"), body, nil)
}

// Close terminates the session.
func (c *Client) Close(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, nil)
}

// Stats fetches the registry snapshot.
func (c *Client) Stats(ctx context.Context) (terminal.Snapshot, error) {
	var out terminal.Snapshot
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

// Health fetches the daemon health summary.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func sessionPath(id, action string) string {
	p := "/sessions/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}
