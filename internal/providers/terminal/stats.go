package terminal

import (
	"runtime"
	"sort"
	"time"
)

// Snapshot is a point-in-time view of the registry
type Snapshot struct {
	ActiveSessions int            `json:"active_sessions"`
	MaxSessions    int            `json:"max_sessions"`
	Sessions       []SessionStats `json:"sessions"`
	Platform       string         `json:"platform"`
	Shell          string         `json:"shell"`
}

// SessionStats describes one live session
type SessionStats struct {
	ID          string    `json:"id"`
	AgeSeconds  uint64    `json:"age_seconds"`
	IdleSeconds uint64    `json:"idle_seconds"`
	Rows        uint16    `json:"rows"`
	Cols        uint16    `json:"cols"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats returns a consistent snapshot ordered by creation time.
func (m *Manager) Stats() Snapshot {
	now := m.now()

	m.mu.Lock()
	sessions := make([]SessionStats, 0, len(m.sessions))
	for _, s := range m.sessions {
		rows, cols := s.Size()
		sessions = append(sessions, SessionStats{
			ID:          s.id,
			AgeSeconds:  seconds(now.Sub(s.createdAt)),
			IdleSeconds: seconds(now.Sub(s.activity.get())),
			Rows:        rows,
			Cols:        cols,
			CreatedAt:   s.createdAt,
		})
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return Snapshot{
		ActiveSessions: len(sessions),
		MaxSessions:    m.opts.MaxSessions,
		Sessions:       sessions,
		Platform:       runtime.GOOS,
		Shell:          m.opts.Shell,
	}
}

func seconds(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}
	return uint64(d / time.Second)
}
