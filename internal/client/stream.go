package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

// ErrStopWatching can be returned by a Watch callback to end the stream
// without error.
var ErrStopWatching = errors.New("stop watching")

// Watch streams events for sessionID from /stream until the session exits,
// ctx is cancelled or fn returns an error. An empty sessionID watches every
// session.
func (c *Client) Watch(ctx context.Context, sessionID string, fn func(terminal.Event) error) error {
	endpoint, err := c.streamURL(sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}

		var event terminal.Event
		if err := sonic.Unmarshal(raw, &event); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if event.Type != terminal.EventOutput && event.Type != terminal.EventError && event.Type != terminal.EventExit {
			// replies to inbound frames share the connection
			continue
		}

		if err := fn(event); err != nil {
			if errors.Is(err, ErrStopWatching) {
				return nil
			}
			return err
		}
		if event.Type == terminal.EventExit && sessionID != "" && event.SessionID == sessionID {
			return nil
		}
	}
}

func (c *Client) streamURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/stream"
	if sessionID != "" {
		u.RawQuery = url.Values{"session": {sessionID}}.Encode()
	}
	return u.String(), nil
}
