package terminal

import "time"

// Options tunes a Manager. Zero fields fall back to DefaultOptions.
type Options struct {
	MaxSessions    int
	// RetryAttempts counts pty open attempts, not retries: 3 means one
	// first try plus two retries.
	RetryAttempts  int
	RetryBaseDelay time.Duration
	IdleTimeout    time.Duration
	ReapInterval   time.Duration

	// Shell overrides $SHELL when set
	Shell      string
	WorkingDir string
	Rows       uint16
	Cols       uint16

	ReadBufferSize int
	Term           string
	// Path is exported to the shell as PATH; empty means the host PATH
	Path       string
	ForceColor bool
}

// DefaultOptions returns the stock session manager settings
func DefaultOptions() Options {
	return Options{
		MaxSessions:    10,
		RetryAttempts:  3,
		RetryBaseDelay: 100 * time.Millisecond,
		IdleTimeout:    30 * time.Minute,
		ReapInterval:   5 * time.Minute,
		Rows:           24,
		Cols:           80,
		ReadBufferSize: 4096,
		Term:           "xterm-256color",
		ForceColor:     true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxSessions <= 0 {
		o.MaxSessions = d.MaxSessions
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = d.RetryAttempts
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = d.RetryBaseDelay
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = d.ReapInterval
	}
	if o.Rows == 0 {
		o.Rows = d.Rows
	}
	if o.Cols == 0 {
		o.Cols = d.Cols
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.Term == "" {
		o.Term = d.Term
	}
	if o.Shell == "" {
		o.Shell = DefaultShell()
	}
	return o
}
