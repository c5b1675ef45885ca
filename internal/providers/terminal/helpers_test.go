package terminal

import (
	"context"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// requirePTY skips tests that need a real pseudo-terminal and /bin/sh.
func requirePTY(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pty sessions are not supported on windows")
	}
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no /dev/ptmx on this host")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh on this host")
	}
}

// recorder is an EventSink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// output concatenates the terminal-output data seen for sessionID.
func (r *recorder) output(sessionID string) string {
	var b strings.Builder
	for _, e := range r.all() {
		if e.Type == EventOutput && e.SessionID == sessionID {
			b.WriteString(e.Data)
		}
	}
	return b.String()
}

func (r *recorder) has(typ EventType, sessionID string) bool {
	for _, e := range r.all() {
		if e.Type == typ && e.SessionID == sessionID {
			return true
		}
	}
	return false
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Shell = "/bin/sh"
	opts.RetryBaseDelay = time.Millisecond
	return opts
}

// newTestManager builds a manager whose sessions are shut down with the test.
func newTestManager(t *testing.T, opts Options) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(opts, rec, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, m.Shutdown(ctx))
	})
	return m, rec
}

// addFakeSession registers a session backed by a pipe instead of a pty.
// It has no process and no pump.
func addFakeSession(t *testing.T, m *Manager, sessionID string, created, lastActive time.Time) *Session {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	s := newSession(sessionID, r, nil, m.opts.Rows, m.opts.Cols, created)
	s.activity.touch(lastActive)
	close(s.exited)

	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()
	return s
}
