// Package main is the ptyd daemon: interactive shells on pseudo-terminals,
// served over HTTP and WebSocket.
//
// Configuration comes from defaults, then an optional YAML or TOML file,
// then environment variables (see internal/infrastructure/config).
//
// Usage:
//
//	# Production mode
//	PORT=8000 TERMINAL_MAX_SESSIONS=20 ./server
//
//	# Development mode (colored logs, debug level)
//	./server -dev -config ptyd.yaml
//
// Routes:
//   - POST /sessions, POST /sessions/:id/input, POST /sessions/:id/resize,
//     DELETE /sessions/:id
//   - GET /stats, GET /health, GET /services, POST /invoke
//   - GET /stream (WebSocket event feed)
//   - GET /metrics (Prometheus)
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
