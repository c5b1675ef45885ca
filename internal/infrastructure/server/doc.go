// Package server assembles ptyd: the terminal session manager, the idle
// reaper, the WebSocket event hub and the gin router with its middleware.
//
// On shutdown the HTTP server stops accepting requests first. Every session
// is then terminated and its pump drained before WebSocket clients are
// disconnected.
package server
