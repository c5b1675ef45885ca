// Package ws streams terminal events to WebSocket clients.
//
// Hub implements terminal.EventSink: every event is encoded once and queued
// to each subscribed client without blocking the session pumps. A client
// that falls a full buffer behind is dropped. Clients may subscribe to a
// single session with ?session=<id>.
//
// Message Types (Client → Server):
//   - input: Write data to session id
//   - resize: Resize session id to rows x cols
//   - close: Close session id
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - terminal-output, terminal-error, terminal-exit: session events
//   - ack: Inbound operation succeeded
//   - error: Inbound operation failed
//   - pong: Reply to ping
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	manager := terminal.NewManager(opts, hub, logger)
//	handler := ws.NewHandler(hub, manager, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
