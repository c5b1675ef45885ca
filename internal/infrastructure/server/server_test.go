package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.ShutdownTimeout = config.Duration(2 * time.Second)
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Terminal.MaxSessions = 0

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)

	tests := []struct {
		method, path string
		status       int
		contains     string
	}{
		{http.MethodGet, "/", http.StatusOK, "online"},
		{http.MethodGet, "/health", http.StatusOK, "healthy"},
		{http.MethodGet, "/stats", http.StatusOK, "active_sessions"},
		{http.MethodGet, "/services", http.StatusOK, "terminal.create_session"},
		{http.MethodDelete, "/sessions/missing", http.StatusNotFound, "session_not_found"},
		{http.MethodGet, "/metrics", http.StatusOK, "ptyd_"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "healthy"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	_, err = srv.Manager().Create(context.Background())
	assert.Error(t, err)
}
