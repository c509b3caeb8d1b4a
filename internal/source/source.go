// Package source fetches events from external event platforms.
package source

import (
	"context"
	"sync"

	"github.com/user/activity-monitor/internal/entity"
)

// Source yields normalized event records. seen is scoped to one ingestion
// run; records whose origin id is already in it are skipped.
type Source interface {
	Name() string
	Fetch(ctx context.Context, seen *SeenSet) ([]entity.EventRecord, error)
}

// SeenSet remembers origin ids within one run. The zero value is ready to use.
type SeenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// Add records key and reports whether it was new.
func (s *SeenSet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
