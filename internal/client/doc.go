// Package client is a Go client for the ptyd HTTP API.
//
// Requests pass through a rate limiter and a circuit breaker before reaching
// a retryable transport. Error bodies are decoded into RemoteError, which
// unwraps to the terminal package sentinels:
//
//	c := client.New(client.Options{BaseURL: "http://localhost:8080"})
//	id, err := c.Create(ctx)
//	if errors.Is(err, terminal.ErrCapacityExceeded) {
//		// close something first
//	}
package client
