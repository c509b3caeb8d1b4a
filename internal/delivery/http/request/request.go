package request

import (
	"fmt"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

type SubmitCheckRequest struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	FacilityID string `json:"facility_id"`
	Force      bool   `json:"force"`
}

type TransitionRequest struct {
	Reason string `json:"reason"`
}

// ClassifyRequest dates are YYYY-MM-DD. A missing now means today.
type ClassifyRequest struct {
	LastEventDate *string `json:"last_event_date"`
	Now           *string `json:"now"`
	ThresholdDays *int    `json:"threshold_days"`
}

// Dates parses the request dates.
func (r ClassifyRequest) Dates(today time.Time) (last *time.Time, now time.Time, err error) {
	now = today
	if r.Now != nil && *r.Now != "" {
		if now, err = time.Parse(entity.DateLayout, *r.Now); err != nil {
			return nil, now, fmt.Errorf("invalid now: %w", err)
		}
	}
	if r.LastEventDate != nil && *r.LastEventDate != "" {
		t, err := time.Parse(entity.DateLayout, *r.LastEventDate)
		if err != nil {
			return nil, now, fmt.Errorf("invalid last_event_date: %w", err)
		}
		last = &t
	}
	return last, now, nil
}

// ScoreRequest carries the event fields the scorer looks at.
type ScoreRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	IsOnline          bool   `json:"is_online"`
	ParticipantsLimit int    `json:"participants_limit"`
	Fee               string `json:"fee"`
}

func (r ScoreRequest) Event() *entity.EventRecord {
	return &entity.EventRecord{
		Title:             r.Title,
		Description:       r.Description,
		IsOnline:          r.IsOnline,
		ParticipantsLimit: r.ParticipantsLimit,
		Fee:               r.Fee,
	}
}
