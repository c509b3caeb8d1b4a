package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/navigator"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/source"
)

type fakeNavigator struct {
	mu      sync.Mutex
	results map[string]*navigator.CrawlResult
	errs    map[string]error
	panics  map[string]bool
	calls   []string
	times   []time.Time
}

func (n *fakeNavigator) Navigate(ctx context.Context, rootURL string) (*navigator.CrawlResult, error) {
	n.mu.Lock()
	n.calls = append(n.calls, rootURL)
	n.times = append(n.times, time.Now())
	n.mu.Unlock()
	if n.panics[rootURL] {
		panic("renderer crashed")
	}
	if err := n.errs[rootURL]; err != nil {
		return nil, err
	}
	if r, ok := n.results[rootURL]; ok {
		return r, nil
	}
	return &navigator.CrawlResult{Pages: []entity.RawPage{{URL: rootURL}}}, nil
}

type memStore struct {
	mu          sync.Mutex
	facilities  map[string]*entity.Facility
	events      map[string]entity.EventRecord
	transitions []entity.StatusTransition
}

func newMemStore() *memStore {
	return &memStore{
		facilities: make(map[string]*entity.Facility),
		events:     make(map[string]entity.EventRecord),
	}
}

func (s *memStore) UpsertFacility(ctx context.Context, f *entity.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	if old, ok := s.facilities[f.ID]; ok {
		cp.Status = old.Status
	}
	s.facilities[f.ID] = &cp
	return nil
}

func (s *memStore) GetFacility(ctx context.Context, id string) (*entity.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *memStore) ListFacilities(ctx context.Context, status *entity.FacilityStatus) ([]*entity.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Facility
	for _, f := range s.facilities {
		if status == nil || f.Status == *status {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetLatestEventDate(ctx context.Context, facilityID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, e := range s.events {
		if e.FacilityID != facilityID {
			continue
		}
		if latest == nil || e.Date.After(*latest) {
			d := e.Date
			latest = &d
		}
	}
	return latest, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, facilityID string, expected, newStatus entity.FacilityStatus, lastEventDate *time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[facilityID]
	if !ok {
		return repository.ErrNotFound
	}
	if f.Status != expected {
		return repository.ErrStatusConflict
	}
	s.transitions = append(s.transitions, entity.StatusTransition{
		FacilityID: facilityID, OldStatus: f.Status, NewStatus: newStatus, Reason: reason,
	})
	f.Status = newStatus
	if lastEventDate != nil {
		f.LastEventDate = lastEventDate
	}
	return nil
}

func (s *memStore) ListTransitions(ctx context.Context, facilityID string) ([]entity.StatusTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.StatusTransition
	for _, t := range s.transitions {
		if t.FacilityID == facilityID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) UpsertEvent(ctx context.Context, e *entity.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = *e
	return nil
}

func (s *memStore) ListEvents(ctx context.Context, filter repository.EventFilter) ([]*entity.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.EventRecord
	for _, e := range s.events {
		if filter.FacilityID != "" && e.FacilityID != filter.FacilityID {
			continue
		}
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

type memQueue struct {
	mu    sync.Mutex
	items []entity.CheckRequest
}

func (q *memQueue) Push(ctx context.Context, req entity.CheckRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, req)
	return nil
}

func (q *memQueue) Pop(ctx context.Context) (*entity.CheckRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, repository.ErrQueueEmpty
	}
	req := q.items[0]
	q.items = q.items[1:]
	return &req, nil
}

func (q *memQueue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

type memChecked struct {
	mu   sync.Mutex
	urls map[string]time.Duration
}

func newMemChecked() *memChecked {
	return &memChecked{urls: make(map[string]time.Duration)}
}

func (c *memChecked) MarkChecked(ctx context.Context, url string, expiry time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls[url] = expiry
	return nil
}

func (c *memChecked) IsChecked(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.urls[url]
	return ok, nil
}

func (c *memChecked) RemoveChecked(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.urls, url)
	return nil
}

func (c *memChecked) Ping(ctx context.Context) error { return nil }

type staticSource struct {
	records []entity.EventRecord
	err     error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Fetch(ctx context.Context, seen *source.SeenSet) ([]entity.EventRecord, error) {
	var out []entity.EventRecord
	for _, r := range s.records {
		if seen.Add(r.ID) {
			out = append(out, r)
		}
	}
	return out, s.err
}
