package terminal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically evicts idle sessions from a Manager.
type Reaper struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
}

// NewReaper creates a reaper sweeping every interval; zero uses the
// manager's ReapInterval.
func NewReaper(manager *Manager, interval time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = manager.opts.ReapInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{
		manager:  manager,
		interval: interval,
		logger:   logger.Named("reaper"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("idle reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("idle_timeout", r.manager.opts.IdleTimeout))

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("idle reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep runs one eviction pass and returns how many sessions it removed.
func (r *Reaper) Sweep() int {
	n := r.manager.ReapIdle()
	if n > 0 {
		r.logger.Info("idle sessions reaped",
			zap.Int("reaped", n),
			zap.Int("active_sessions", r.manager.Len()))
	}
	return n
}
