package dormancy

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var refNow = time.Date(2026, 2, 4, 9, 30, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		last      *time.Time
		now       time.Time
		threshold int
		want      entity.FacilityStatus
	}{
		{"no events", nil, refNow, 60, entity.StatusNew},
		{"no events any now", nil, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), 60, entity.StatusNew},
		{"55 day gap", date(2025, 12, 10), refNow, 60, entity.StatusActive},
		{"95 day gap", date(2025, 11, 1), refNow, 60, entity.StatusDormant},
		{"exactly threshold", date(2025, 12, 6), refNow, 60, entity.StatusActive},
		{"one day past threshold", date(2025, 12, 5), refNow, 60, entity.StatusDormant},
		{"future event", date(2026, 3, 1), refNow, 60, entity.StatusActive},
		{"default threshold", date(2025, 12, 10), refNow, 0, entity.StatusActive},
		{"short threshold", date(2025, 12, 10), refNow, 30, entity.StatusDormant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.last, tt.now, tt.threshold); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_NeverClosed(t *testing.T) {
	for d := 0; d < 400; d += 7 {
		last := refNow.AddDate(0, 0, -d)
		if got := Classify(&last, refNow, 60); got == entity.StatusClosed {
			t.Fatalf("Classify must never produce closed (gap %d days)", d)
		}
	}
}

func TestMachine_Evaluate(t *testing.T) {
	stamp := time.Date(2026, 2, 4, 12, 0, 0, 0, time.UTC)
	m := NewMachine(60)
	m.Now = func() time.Time { return stamp }

	tests := []struct {
		name       string
		current    entity.FacilityStatus
		last       *time.Time
		want       entity.FacilityStatus
		wantReason string
	}{
		{"new to active", entity.StatusNew, date(2026, 1, 20), entity.StatusActive, ReasonFirstEvent},
		{"active to dormant", entity.StatusActive, date(2025, 10, 1), entity.StatusDormant, ReasonNoRecent},
		{"dormant to active", entity.StatusDormant, date(2026, 2, 1), entity.StatusActive, ReasonNewEvent},
		{"new to dormant", entity.StatusNew, date(2025, 10, 1), entity.StatusDormant, ReasonRecalc},
		{"active to new", entity.StatusActive, nil, entity.StatusNew, ReasonRecalc},
		{"unchanged", entity.StatusActive, date(2026, 1, 20), entity.StatusActive, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, tr, err := m.Evaluate("f1", tt.current, tt.last, refNow)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if next != tt.want {
				t.Errorf("next = %s, want %s", next, tt.want)
			}
			if tt.wantReason == "" {
				if tr != nil {
					t.Errorf("expected no transition, got %+v", tr)
				}
				return
			}
			if tr == nil {
				t.Fatal("expected a transition")
			}
			if tr.Reason != tt.wantReason || tr.OldStatus != tt.current || tr.NewStatus != tt.want || tr.FacilityID != "f1" {
				t.Errorf("unexpected transition %+v", tr)
			}
			if !tr.Timestamp.Equal(stamp) {
				t.Errorf("timestamp = %v, want %v", tr.Timestamp, stamp)
			}
		})
	}
}

func TestMachine_EvaluateClosed(t *testing.T) {
	m := NewMachine(60)
	next, tr, err := m.Evaluate("f1", entity.StatusClosed, date(2026, 2, 1), refNow)
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if next != entity.StatusClosed || tr != nil {
		t.Errorf("closed facility must stay closed without a transition, got %s %+v", next, tr)
	}
}

func TestMachine_ManualTransitions(t *testing.T) {
	m := NewMachine(60)

	tr, err := m.Close("f1", entity.StatusActive, "")
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if tr.NewStatus != entity.StatusClosed || tr.Reason != ReasonClosed {
		t.Errorf("unexpected close transition %+v", tr)
	}

	if _, err := m.Close("f1", entity.StatusClosed, ""); !errors.Is(err, ErrTerminal) {
		t.Errorf("closing twice should fail with ErrTerminal, got %v", err)
	}
	if _, err := m.Reactivate("f1", entity.StatusClosed, ""); !errors.Is(err, ErrTerminal) {
		t.Errorf("reactivating closed should fail with ErrTerminal, got %v", err)
	}
	if _, err := m.Reactivate("f1", entity.StatusActive, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reactivating active should fail, got %v", err)
	}

	tr, err = m.Reactivate("f1", entity.StatusDormant, "confirmed by phone")
	if err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}
	if tr.NewStatus != entity.StatusActive || tr.Reason != "confirmed by phone" {
		t.Errorf("unexpected reactivate transition %+v", tr)
	}
}

func TestTransitionLog_Concurrent(t *testing.T) {
	var log TransitionLog
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(entity.StatusTransition{FacilityID: "f", NewStatus: entity.StatusActive})
		}()
	}
	wg.Wait()

	if log.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", log.Len())
	}
	entries := log.Entries()
	entries[0].FacilityID = "changed"
	if log.Entries()[0].FacilityID != "f" {
		t.Error("Entries must return a copy")
	}
}
