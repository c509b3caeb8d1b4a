// Package report builds the JSON artifact written at the end of a batch run.
package report

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/usecase"
)

// Event is an event record annotated with the facility it was found for.
type Event struct {
	entity.EventRecord
	FacilityName string `json:"facility_name,omitempty"`
}

// Artifact is the batch output document.
type Artifact struct {
	GeneratedAt time.Time                          `json:"generated_at"`
	Summary     usecase.BatchSummary               `json:"summary"`
	Facilities  []*entity.FacilityActivitySnapshot `json:"facilities"`
	Events      []Event                            `json:"events"`
}

// Build assembles the artifact. Events from all snapshots are flattened and
// sorted newest first; events on the same date keep snapshot order.
func Build(now time.Time, snaps []*entity.FacilityActivitySnapshot) *Artifact {
	a := &Artifact{
		GeneratedAt: now.UTC(),
		Summary:     usecase.Summarize(snaps),
		Facilities:  make([]*entity.FacilityActivitySnapshot, 0, len(snaps)),
		Events:      []Event{},
	}
	for _, s := range snaps {
		if s == nil {
			continue
		}
		a.Facilities = append(a.Facilities, s)
		for _, e := range s.Events {
			if e.FacilityID == "" {
				e.FacilityID = s.FacilityID
			}
			a.Events = append(a.Events, Event{EventRecord: e, FacilityName: s.FacilityName})
		}
	}
	sort.SliceStable(a.Events, func(i, j int) bool {
		return a.Events[i].Date.After(a.Events[j].Date)
	})
	return a
}

// Write encodes the artifact as indented JSON.
func Write(w io.Writer, a *Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(a)
}
