package dormancy

import (
	"sync"

	"github.com/user/activity-monitor/internal/entity"
)

// TransitionLog is an in-memory, append-only record of status changes. It is
// safe for concurrent use.
type TransitionLog struct {
	mu      sync.Mutex
	entries []entity.StatusTransition
}

// Append adds a transition to the end of the log.
func (l *TransitionLog) Append(t entity.StatusTransition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, t)
}

// Entries returns a copy of the log, oldest first.
func (l *TransitionLog) Entries() []entity.StatusTransition {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entity.StatusTransition, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *TransitionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
