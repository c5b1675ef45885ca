package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

func TestCreateReturnsUniqueIDs(t *testing.T) {
	requirePTY(t)
	m, _ := newTestManager(t, testOptions())

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		sessionID, err := m.Create(context.Background())
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sessionID, "sess_"))
		assert.False(t, seen[sessionID], "duplicate id %s", sessionID)
		seen[sessionID] = true
	}
	assert.Equal(t, 4, m.Stats().ActiveSessions)
}

func TestWriteIsEchoedAsOutput(t *testing.T) {
	requirePTY(t)
	m, rec := newTestManager(t, testOptions())

	sessionID, err := m.Create(context.Background())
	require.NoError(t, err)

	// The tty echoes the command itself; only the shell computes 42
	require.NoError(t, m.Write(sessionID, []byte("echo $((6*7))\n")))

	assert.Eventually(t, func() bool {
		return strings.Contains(rec.output(sessionID), "42")
	}, waitFor, tick)
}

func TestListingAppearsInOutput(t *testing.T) {
	requirePTY(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker-file.txt"), nil, 0o600))

	opts := testOptions()
	opts.WorkingDir = dir
	m, rec := newTestManager(t, opts)

	sessionID, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Write(sessionID, []byte("ls\n")))

	assert.Eventually(t, func() bool {
		// "ls" alone is echoed; the file name only comes from the listing
		return strings.Contains(rec.output(sessionID), "marker-file.txt")
	}, waitFor, tick)
}

func TestCapacityScenario(t *testing.T) {
	requirePTY(t)
	opts := testOptions()
	opts.MaxSessions = 2
	m, rec := newTestManager(t, opts)
	ctx := context.Background()

	a, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = m.Create(ctx)
	require.NoError(t, err)

	_, err = m.Create(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NotEmpty(t, Suggestion(err))
	assert.True(t, rec.has(EventError, ""), "create failure should emit terminal-error")

	require.NoError(t, m.Close(a))

	_, err = m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Stats().ActiveSessions)
}

func TestCloseRemovesImmediately(t *testing.T) {
	requirePTY(t)
	m, _ := newTestManager(t, testOptions())

	sessionID, err := m.Create(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	s := m.sessions[sessionID]
	m.mu.Unlock()

	require.NoError(t, m.Close(sessionID))
	assert.Equal(t, 0, m.Stats().ActiveSessions)
	assert.Empty(t, m.Stats().Sessions)

	err = m.Close(sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Closing the master stops the pump
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("pump did not stop after close")
	}
}

func TestUnknownSessionOperations(t *testing.T) {
	m, _ := newTestManager(t, testOptions())

	assert.ErrorIs(t, m.Write("sess_missing", []byte("x")), ErrSessionNotFound)
	assert.ErrorIs(t, m.Resize("sess_missing", 24, 80), ErrSessionNotFound)
	assert.ErrorIs(t, m.Close("sess_missing"), ErrSessionNotFound)

	var te *Error
	require.True(t, errors.As(m.Close("sess_missing"), &te))
	assert.Equal(t, "sess_missing", te.SessionID)
}

func TestResize(t *testing.T) {
	requirePTY(t)
	m, _ := newTestManager(t, testOptions())

	sessionID, err := m.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Resize(sessionID, 40, 120))
	snap := m.Stats()
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, uint16(40), snap.Sessions[0].Rows)
	assert.Equal(t, uint16(120), snap.Sessions[0].Cols)

	assert.ErrorIs(t, m.Resize(sessionID, 0, 80), ErrInvalidArgument)
	assert.ErrorIs(t, m.Resize(sessionID, 24, 0), ErrInvalidArgument)
}

func TestShellExitRemovesSession(t *testing.T) {
	requirePTY(t)
	m, rec := newTestManager(t, testOptions())

	sessionID, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Write(sessionID, []byte("exit\n")))

	assert.Eventually(t, func() bool {
		return rec.has(EventExit, sessionID) && m.Len() == 0
	}, waitFor, tick)

	assert.ErrorIs(t, m.Close(sessionID), ErrSessionNotFound)
	assert.False(t, rec.has(EventError, sessionID))
}

func TestWriteAfterCloseOfMasterIsIOError(t *testing.T) {
	m, _ := newTestManager(t, testOptions())
	now := time.Now()
	s := addFakeSession(t, m, "sess_fake", now, now)
	require.NoError(t, s.master.Close())

	err := m.Write("sess_fake", []byte("ls\n"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestCreateReleasesSlotOnFactoryFailure(t *testing.T) {
	opts := testOptions()
	opts.MaxSessions = 1
	m, rec := newTestManager(t, opts)
	m.factory.open = func() (*os.File, *os.File, error) {
		return nil, nil, fmt.Errorf("open /dev/ptmx: %w", syscall.ENOSPC)
	}
	m.factory.sleep = func(context.Context, time.Duration) error { return nil }

	for i := 0; i < 2; i++ {
		_, err := m.Create(context.Background())
		assert.ErrorIs(t, err, ErrResourceExhausted, "attempt %d", i)
		assert.NotErrorIs(t, err, ErrCapacityExceeded)
	}

	m.mu.Lock()
	assert.Equal(t, 0, m.pending)
	m.mu.Unlock()

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[0].Type)
	assert.Empty(t, events[0].SessionID)
	assert.Equal(t, ptyLimitSuggestion(), events[0].Suggestion)
}

func TestCreateSpawnFailure(t *testing.T) {
	requirePTY(t)
	m, _ := newTestManager(t, testOptions())
	m.spawn = func(*Pair, Options) (*exec.Cmd, error) {
		return nil, fmt.Errorf("fork/exec: %w", syscall.EAGAIN)
	}

	_, err := m.Create(context.Background())

	assert.ErrorIs(t, err, ErrSpawnFailure)
	assert.Equal(t, "Close some terminal sessions or restart the application", Suggestion(err))
	assert.Equal(t, 0, m.Len())
}

func TestCapacitySweepsIdleSessions(t *testing.T) {
	opts := testOptions()
	opts.MaxSessions = 1
	m, _ := newTestManager(t, opts)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	addFakeSession(t, m, "sess_stale", now.Add(-2*time.Hour), now.Add(-31*time.Minute))

	require.NoError(t, m.reserve())
	assert.Equal(t, 0, m.Len())

	m.mu.Lock()
	assert.Equal(t, 1, m.pending)
	m.mu.Unlock()
	m.release()
}

func TestCapacityWithoutIdleSessions(t *testing.T) {
	opts := testOptions()
	opts.MaxSessions = 1
	m, _ := newTestManager(t, opts)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	addFakeSession(t, m, "sess_busy", now.Add(-time.Hour), now.Add(-time.Minute))

	err := m.reserve()
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 1, m.Len())
}

func TestShutdownRefusesNewSessions(t *testing.T) {
	m, _ := newTestManager(t, testOptions())
	now := time.Now()
	addFakeSession(t, m, "sess_a", now, now)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, 0, m.Len())

	_, err := m.Create(context.Background())
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}
