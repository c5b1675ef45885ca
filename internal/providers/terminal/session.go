package terminal

import (
	"bufio"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
)

// Grace period between SIGHUP and SIGKILL
const killGrace = 2 * time.Second

// activity is a last-activity timestamp that only moves forward.
type activity struct {
	mu   sync.Mutex
	last time.Time
}

func (a *activity) touch(t time.Time) {
	a.mu.Lock()
	if t.After(a.last) {
		a.last = t
	}
	a.mu.Unlock()
}

func (a *activity) get() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Session is one live shell attached to a pty.
type Session struct {
	id        string
	createdAt time.Time

	// master is kept for resize and close; the pump only reads from it.
	master *os.File
	cmd    *exec.Cmd

	writeMu sync.Mutex
	writer  *bufio.Writer

	sizeMu sync.Mutex
	rows   uint16
	cols   uint16

	activity activity

	closeOnce sync.Once
	done      chan struct{} // pump finished
	exited    chan struct{} // shell reaped
}

func newSession(id string, master *os.File, cmd *exec.Cmd, rows, cols uint16, now time.Time) *Session {
	s := &Session{
		id:        id,
		createdAt: now,
		master:    master,
		cmd:       cmd,
		writer:    bufio.NewWriter(master),
		rows:      rows,
		cols:      cols,
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
	s.activity.touch(now)
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActivity returns the time of the last write, resize or output
func (s *Session) LastActivity() time.Time { return s.activity.get() }

// Size returns the current window size
func (s *Session) Size() (rows, cols uint16) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()
	return s.rows, s.cols
}

// Done is closed once the output pump has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *Session) resize(rows, cols uint16) error {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()

	if err := pty.Setsize(s.master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return err
	}
	s.rows, s.cols = rows, cols
	return nil
}

// wait reaps the shell so it never lingers as a zombie.
func (s *Session) wait() {
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	close(s.exited)
}

// terminate hangs up the shell and closes the master, which unblocks the
// pump. A shell that ignores the hangup is killed after killGrace.
func (s *Session) terminate() {
	s.closeOnce.Do(func() {
		_ = hangup(s.cmd)
		_ = s.master.Close()

		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		go func() {
			timer := time.NewTimer(killGrace)
			defer timer.Stop()
			select {
			case <-s.exited:
			case <-timer.C:
				_ = s.cmd.Process.Kill()
			}
		}()
	})
}
