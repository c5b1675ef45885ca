package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/ptyd/internal/shared/id"
)

// Manager is the registry of live terminal sessions. It owns creation,
// lookup and removal, and enforces the session ceiling.
type Manager struct {
	opts    Options
	factory *Factory
	sink    EventSink
	logger  *zap.Logger
	metrics *monitoring.Metrics

	now   func() time.Time
	spawn func(pair *Pair, opts Options) (*exec.Cmd, error)

	mu       sync.Mutex
	sessions map[string]*Session
	pending  int // creations holding a slot but not yet registered
	closed   bool

	pumps sync.WaitGroup
}

// NewManager creates a session manager emitting events to sink.
func NewManager(opts Options, sink EventSink, logger *zap.Logger) *Manager {
	opts = opts.withDefaults()
	if sink == nil {
		sink = Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("terminal")

	return &Manager{
		opts:     opts,
		factory:  NewFactory(opts.RetryAttempts, opts.RetryBaseDelay, logger.Named("pty")),
		sink:     sink,
		logger:   logger,
		now:      time.Now,
		spawn:    spawnShell,
		sessions: make(map[string]*Session),
	}
}

// WithMetrics attaches a metrics collector
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	m.factory.metrics = metrics
	return m
}

// Options returns the effective settings
func (m *Manager) Options() Options { return m.opts }

// Create allocates a pty, spawns the shell inside it and starts its output
// pump. It may block for the factory's whole backoff budget; ctx bounds it.
func (m *Manager) Create(ctx context.Context) (string, error) {
	timer := monitoring.NewTimer(m.metrics, "terminal", "create")

	sessionID, err := m.create(ctx)
	if err != nil {
		timer.Stop("error")
		m.metrics.IncCreateFailures(Kind(err))
		m.logger.Warn("failed to create session",
			zap.String("reason", Kind(err)),
			zap.String("suggestion", Suggestion(err)),
			zap.Error(err))
		m.sink.Emit(errorEvent("", err))
		return "", err
	}

	timer.Stop("success")
	return sessionID, nil
}

func (m *Manager) create(ctx context.Context) (string, error) {
	if err := m.reserve(); err != nil {
		return "", err
	}

	pair, err := m.factory.Open(ctx, m.opts.Rows, m.opts.Cols)
	if err != nil {
		m.release()
		return "", err
	}

	cmd, err := m.spawn(pair, m.opts)
	if err != nil {
		pair.Close()
		m.release()
		return "", newError(ErrSpawnFailure, "", fmt.Errorf("%s: %w", m.opts.Shell, err), spawnSuggestion(err))
	}
	// The child holds its own copy of the subordinate side
	_ = pair.Slave.Close()

	s := newSession(id.NewSessionID().String(), pair.Master, cmd, m.opts.Rows, m.opts.Cols, m.now())
	go s.wait()

	m.mu.Lock()
	m.pending--
	if m.closed {
		m.mu.Unlock()
		s.terminate()
		return "", errShuttingDown()
	}
	m.sessions[s.id] = s
	active := len(m.sessions)
	m.pumps.Add(1)
	m.mu.Unlock()

	go m.runPump(s)

	m.metrics.IncSessionsCreated()
	m.metrics.SetSessionsActive(active)
	m.logger.Info("session created",
		zap.String("session_id", s.id),
		zap.String("shell", m.opts.Shell),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("active_sessions", active))

	return s.id, nil
}

// reserve claims a slot under the ceiling, sweeping idle sessions once if
// the registry is full.
func (m *Manager) reserve() error {
	for swept := false; ; swept = true {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return errShuttingDown()
		}
		if len(m.sessions)+m.pending < m.opts.MaxSessions {
			m.pending++
			m.mu.Unlock()
			return nil
		}
		m.mu.Unlock()

		if swept || m.ReapIdle() == 0 {
			return newError(ErrCapacityExceeded, "",
				fmt.Errorf("limit of %d sessions reached", m.opts.MaxSessions),
				"Close some terminal sessions and try again")
		}
	}
}

func (m *Manager) release() {
	m.mu.Lock()
	m.pending--
	m.mu.Unlock()
}

func errShuttingDown() *Error {
	return newError(ErrCapacityExceeded, "", errors.New("session manager is shutting down"), "")
}

func (m *Manager) runPump(s *Session) {
	defer m.pumps.Done()

	p := &pump{
		id:       s.id,
		src:      s.master,
		bufSize:  m.opts.ReadBufferSize,
		activity: &s.activity,
		sink:     m.sink,
		now:      m.now,
		metrics:  m.metrics,
	}
	err := p.run()
	close(s.done)

	if err != nil {
		readErr := newError(ErrIO, s.id, err, "")
		m.logger.Error("terminal read failed", zap.String("session_id", s.id), zap.Error(err))
		m.sink.Emit(errorEvent(s.id, readErr))
	}

	// Still registered means nobody closed it: the shell went away on its own
	if m.remove(s.id, s) != nil {
		s.terminate()
		m.metrics.IncSessionsClosed(monitoring.ReasonExited)
		m.logger.Info("session exited", zap.String("session_id", s.id))
		m.sink.Emit(exitEvent(s.id))
	}
}

func (m *Manager) get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, notFound(sessionID)
	}
	return s, nil
}

// remove deletes sessionID if it still maps to expect (any session when
// expect is nil) and returns the removed session.
func (m *Manager) remove(sessionID string, expect *Session) *Session {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || (expect != nil && s != expect) {
		m.mu.Unlock()
		return nil
	}
	delete(m.sessions, sessionID)
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetSessionsActive(active)
	return s
}

// Write sends data to the session's shell and flushes it.
func (m *Manager) Write(sessionID string, data []byte) error {
	s, err := m.get(sessionID)
	if err != nil {
		return err
	}
	if err := s.write(data); err != nil {
		return newError(ErrIO, sessionID, err, "")
	}
	s.activity.touch(m.now())
	m.metrics.AddTerminalBytes("in", len(data))
	return nil
}

// Resize changes the session's window size.
func (m *Manager) Resize(sessionID string, rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return newError(ErrInvalidArgument, sessionID,
			fmt.Errorf("rows and cols must be non-zero, got %dx%d", rows, cols), "")
	}
	s, err := m.get(sessionID)
	if err != nil {
		return err
	}
	if err := s.resize(rows, cols); err != nil {
		return newError(ErrIO, sessionID, err, "")
	}
	s.activity.touch(m.now())
	return nil
}

// Close removes the session and releases its pty. Closing twice fails
// with ErrSessionNotFound.
func (m *Manager) Close(sessionID string) error {
	s := m.remove(sessionID, nil)
	if s == nil {
		return notFound(sessionID)
	}

	s.terminate()
	m.metrics.IncSessionsClosed(monitoring.ReasonClosed)
	m.logger.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// ReapIdle removes every session idle for longer than the idle timeout and
// returns how many it removed.
func (m *Manager) ReapIdle() int {
	now := m.now()

	m.mu.Lock()
	var stale []*Session
	for sessionID, s := range m.sessions {
		if now.Sub(s.activity.get()) > m.opts.IdleTimeout {
			stale = append(stale, s)
			delete(m.sessions, sessionID)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if len(stale) == 0 {
		return 0
	}

	m.metrics.SetSessionsActive(active)
	for _, s := range stale {
		s.terminate()
		m.metrics.IncSessionsClosed(monitoring.ReasonIdle)
		m.logger.Info("reaped idle session",
			zap.String("session_id", s.id),
			zap.Duration("idle", now.Sub(s.activity.get())))
	}
	return len(stale)
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session, refuses new ones and waits for all pumps
// to stop or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.metrics.SetSessionsActive(0)
	for _, s := range sessions {
		s.terminate()
		m.metrics.IncSessionsClosed(monitoring.ReasonShutdown)
	}
	m.logger.Info("session manager shutting down", zap.Int("sessions", len(sessions)))

	done := make(chan struct{})
	go func() {
		m.pumps.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
