package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/navigator"
	"github.com/user/activity-monitor/internal/scorer"
)

func TestCheckWorker_ProcessNext(t *testing.T) {
	nav := &fakeNavigator{results: map[string]*navigator.CrawlResult{
		"https://hub.example.com/": {Pages: []entity.RawPage{{Text: "2026年1月20日 Demo Day"}}},
	}}
	store := newMemStore()
	queue := &memQueue{}
	checker := newTestChecker(nav, DefaultCheckerConfig())
	rec := NewRecorder(store, store, dormancy.NewMachine(60), scorer.New(scorer.DefaultConfig()), nil, nil)
	w := NewCheckWorker(queue, checker, rec, 0, nil)
	ctx := context.Background()

	took, err := w.ProcessNext(ctx)
	if took || err != nil {
		t.Fatalf("empty queue: got %v, %v", took, err)
	}

	queue.Push(ctx, entity.CheckRequest{FacilityID: "hub", URL: "https://hub.example.com/", Name: "Hub"})
	took, err = w.ProcessNext(ctx)
	if !took || err != nil {
		t.Fatalf("ProcessNext = %v, %v", took, err)
	}

	f, err := store.GetFacility(ctx, "hub")
	if err != nil {
		t.Fatalf("facility not recorded: %v", err)
	}
	if f.Status != entity.StatusActive || f.Name != "Hub" {
		t.Errorf("unexpected facility %+v", f)
	}
}

func TestCheckWorker_RunStopsOnCancel(t *testing.T) {
	nav := &fakeNavigator{}
	store := newMemStore()
	queue := &memQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	for _, u := range []string{"https://a.example.com/", "https://b.example.com/"} {
		queue.Push(ctx, entity.CheckRequest{URL: u})
	}
	cfg := DefaultCheckerConfig()
	cfg.InterFacilityDelay = 0
	rec := NewRecorder(store, store, dormancy.NewMachine(60), scorer.New(scorer.DefaultConfig()), nil, nil)
	w := NewCheckWorker(queue, newTestChecker(nav, cfg), rec, 0, nil)

	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		n, _ := queue.Size(ctx)
		if n == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("queue was not drained")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(store.facilities) != 2 {
		t.Errorf("expected 2 recorded facilities, got %d", len(store.facilities))
	}
}

func TestCheckWorker_RunWaitsBetweenFacilities(t *testing.T) {
	const delay = 40 * time.Millisecond
	nav := &fakeNavigator{}
	store := newMemStore()
	queue := &memQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, u := range []string{"https://a.example.com/", "https://b.example.com/", "https://c.example.com/"} {
		queue.Push(ctx, entity.CheckRequest{URL: u})
	}
	rec := NewRecorder(store, store, dormancy.NewMachine(60), scorer.New(scorer.DefaultConfig()), nil, nil)
	w := NewCheckWorker(queue, newTestChecker(nav, DefaultCheckerConfig()), rec, delay, nil)

	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		nav.mu.Lock()
		n := len(nav.times)
		nav.mu.Unlock()
		if n == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected 3 checks, got %d", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	for i := 1; i < len(nav.times); i++ {
		if gap := nav.times[i].Sub(nav.times[i-1]); gap < delay {
			t.Errorf("check %d started %v after the previous one, want at least %v", i, gap, delay)
		}
	}
}

func TestCheckWorker_CancelInterruptsDelay(t *testing.T) {
	queue := &memQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	queue.Push(ctx, entity.CheckRequest{URL: "https://a.example.com/"})
	store := newMemStore()
	nav := &fakeNavigator{}
	rec := NewRecorder(store, store, dormancy.NewMachine(60), scorer.New(scorer.DefaultConfig()), nil, nil)
	w := NewCheckWorker(queue, newTestChecker(nav, DefaultCheckerConfig()), rec, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Millisecond)
		close(done)
	}()
	for {
		nav.mu.Lock()
		n := len(nav.calls)
		nav.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting after cancel")
	}
}
