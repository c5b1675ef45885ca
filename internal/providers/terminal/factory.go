package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/ptyd/internal/infrastructure/monitoring"
)

const maxRetryDelay = 5 * time.Second

// OpenFunc allocates a pty pair, returning the controlling (master) and
// subordinate (slave) sides.
type OpenFunc func() (master, slave *os.File, err error)

// Pair is an allocated and sized pty
type Pair struct {
	Master *os.File
	Slave  *os.File
}

// Close releases both sides
func (p *Pair) Close() error {
	return errors.Join(p.Slave.Close(), p.Master.Close())
}

// Factory opens pseudo-terminals with bounded retry and exponential backoff.
type Factory struct {
	attempts  int
	baseDelay time.Duration

	open  OpenFunc
	sleep func(ctx context.Context, d time.Duration) error

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewFactory creates a factory making attempts tries in total, waiting
// baseDelay, 2*baseDelay, ... between them. attempts includes the first
// try, so attempts-1 retries follow a failure.
func NewFactory(attempts int, baseDelay time.Duration, logger *zap.Logger) *Factory {
	if attempts <= 0 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		attempts:  attempts,
		baseDelay: baseDelay,
		open:      pty.Open,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// Open allocates a pty sized rows x cols. After the last failed attempt it
// returns an *Error of kind ErrResourceExhausted wrapping the last cause.
func (f *Factory) Open(ctx context.Context, rows, cols uint16) (*Pair, error) {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     f.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxRetryDelay,
	}
	b.Reset()

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		pair, err := f.tryOpen(rows, cols)
		if err == nil {
			f.metrics.RecordPtyAttempt("success")
			if attempt > 1 {
				f.logger.Info("pty allocated after retry", zap.Int("attempt", attempt))
			}
			return pair, nil
		}

		f.metrics.RecordPtyAttempt("failure")
		lastErr = err
		f.logger.Warn("pty allocation failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.attempts),
			zap.Bool("exhausted", isExhaustion(err)),
			zap.Error(err))

		if attempt == f.attempts {
			break
		}

		delay := b.NextBackOff()
		if err := f.sleep(ctx, delay); err != nil {
			return nil, newError(ErrResourceExhausted, "",
				fmt.Errorf("pty allocation abandoned after %d attempts: %w", attempt, errors.Join(err, lastErr)),
				ptySuggestion(lastErr))
		}
	}

	f.metrics.IncPtyExhausted()
	return nil, newError(ErrResourceExhausted, "",
		fmt.Errorf("failed to create pty after %d attempts: %w", f.attempts, lastErr),
		ptySuggestion(lastErr))
}

func (f *Factory) tryOpen(rows, cols uint16) (*Pair, error) {
	master, slave, err := f.open()
	if err != nil {
		return nil, err
	}
	pair := &Pair{Master: master, Slave: slave}
	if err := pty.Setsize(master, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		pair.Close()
		return nil, fmt.Errorf("failed to size pty: %w", err)
	}
	return pair, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var exhaustionMarkers = []string{
	"forkpty",
	"resource temporarily unavailable",
	"no space left on device",
	"too many open files",
}

// isExhaustion reports whether err looks like the host ran out of ptys or descriptors.
func isExhaustion(err error) bool {
	if err == nil {
		return false
	}
	for _, errno := range []syscall.Errno{syscall.EAGAIN, syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range exhaustionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isDescriptorLimit(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) ||
		strings.Contains(strings.ToLower(err.Error()), "too many open files")
}

// ptySuggestion picks a remediation hint for an allocation failure.
func ptySuggestion(err error) string {
	if !isExhaustion(err) {
		return genericSuggestion
	}
	if isDescriptorLimit(err) {
		return "Too many open files. Raise the limit with: ulimit -n 4096"
	}
	return ptyLimitSuggestion()
}

func ptyLimitSuggestion() string {
	switch runtime.GOOS {
	case "darwin":
		return "PTY limit reached. Try: sudo sysctl -w kern.tty.ptmx_max=768"
	case "linux":
		return "PTY limit reached. Try: sudo sysctl -w kernel.pty.max=8192"
	default:
		return "PTY limit reached. Close some terminal sessions and try again"
	}
}

// spawnSuggestion picks a remediation hint for a shell spawn failure.
func spawnSuggestion(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "forkpty"):
		return ptyLimitSuggestion()
	case errors.Is(err, syscall.EAGAIN) || strings.Contains(msg, "resource temporarily unavailable"):
		return "Close some terminal sessions or restart the application"
	default:
		return genericSuggestion
	}
}
