package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/providers/terminal"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCreateWriteResizeClose(t *testing.T) {
	var calls []string
	var written map[string]string
	var resized map[string]int

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusCreated, map[string]string{"id": "sess_1"})
	})
	mux.HandleFunc("/sessions/sess_1/input", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&written)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("/sessions/sess_1/resize", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&resized)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("/sessions/sess_1", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	id, err := c.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sess_1", id)

	require.NoError(t, c.Write(ctx, id, []byte("ls\n")))
	require.NoError(t, c.Resize(ctx, id, 40, 120))
	require.NoError(t, c.Close(ctx, id))

	assert.Equal(t, []string{
		"POST /sessions",
		"POST /sessions/sess_1/input",
		"POST /sessions/sess_1/resize",
		"DELETE /sessions/sess_1",
	}, calls)
	assert.Equal(t, "ls\n", written["data"])
	assert.Equal(t, map[string]int{"rows": 40, "cols": 120}, resized)
}

func TestRemoteErrorsMapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   string
		want   error
	}{
		{"not found", http.StatusNotFound, "session_not_found", terminal.ErrSessionNotFound},
		{"capacity", http.StatusTooManyRequests, "capacity_exceeded", terminal.ErrCapacityExceeded},
		{"exhausted", http.StatusServiceUnavailable, "resource_exhausted", terminal.ErrResourceExhausted},
		{"invalid", http.StatusBadRequest, "invalid_argument", terminal.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{
					"error":      "remote says no",
					"kind":       tt.kind,
					"suggestion": "try later",
				})
			}))

			_, err := c.Create(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var re *RemoteError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.status, re.Status)
			assert.Equal(t, "remote says no", re.Error())
			assert.Equal(t, "try later", re.Suggestion)
		})
	}
}

func TestPostIsNotRetriedOnServerError(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "pty resources exhausted",
			"kind":  "resource_exhausted",
		})
	}))

	_, err := c.Create(context.Background())
	assert.ErrorIs(t, err, terminal.ErrResourceExhausted)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetIsRetriedOnServerError(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, terminal.Snapshot{
			ActiveSessions: 1,
			MaxSessions:    10,
			Sessions:       []terminal.SessionStats{{ID: "sess_1", Rows: 24, Cols: 80}},
		})
	}))

	snap, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 1, snap.ActiveSessions)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "sess_1", snap.Sessions[0].ID)
}

func TestUndecodableErrorIsInternal(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := c.Close(context.Background(), "sess_1")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "internal", re.Kind)
	assert.Equal(t, http.StatusInternalServerError, re.Status)
	assert.Contains(t, re.Error(), "500")
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom", "kind": "internal"})
	}))

	for i := 0; i < 5; i++ {
		_ = c.Close(context.Background(), "sess_1")
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	before := hits.Load()
	err := c.Close(context.Background(), "sess_1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, hits.Load())
}

func TestDomainErrorsDoNotTripBreaker(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found", "kind": "session_not_found"})
	}))

	for i := 0; i < 10; i++ {
		err := c.Close(context.Background(), "missing")
		assert.ErrorIs(t, err, terminal.ErrSessionNotFound)
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestSessionPathEscapes(t *testing.T) {
	assert.Equal(t, "/sessions/a%2Fb/input", sessionPath("a/b", "input"))
	assert.Equal(t, "/sessions/sess_1", sessionPath("sess_1", ""))
}
