// Package utils holds request validation shared by the HTTP and WebSocket
// surfaces.
package utils
