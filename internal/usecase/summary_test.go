package usecase

import (
	"testing"

	"github.com/user/activity-monitor/internal/entity"
)

func TestSummarize(t *testing.T) {
	snaps := []*entity.FacilityActivitySnapshot{
		{Status: entity.StatusActive, Events: make([]entity.EventRecord, 3)},
		{Status: entity.StatusActive, Events: make([]entity.EventRecord, 1)},
		{Status: entity.StatusDormant, Events: make([]entity.EventRecord, 2)},
		{Status: entity.StatusNew},
		{Status: entity.StatusUnknown},
		{Status: entity.StatusError},
		nil,
	}

	got := Summarize(snaps)
	want := BatchSummary{TotalFacilities: 7, Active: 2, Dormant: 1, New: 1, Unknown: 1, Error: 2, TotalEvents: 6}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}
