package response

import (
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

type SubmitCheckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	CheckID string `json:"check_id"`
}

// CheckStatusResponse is a DTO for check status, mirroring entity.CheckStatus
type CheckStatusResponse struct {
	URL            string                `json:"url"`
	CurrentStatus  string                `json:"current_status"` // "pending", "checked"
	LastCheckedAt  *time.Time            `json:"last_checked_at,omitempty"`
	FacilityStatus entity.FacilityStatus `json:"facility_status,omitempty"`
	LastEventDate  *string               `json:"last_event_date,omitempty"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type ClassifyResponse struct {
	Status entity.FacilityStatus `json:"status"`
}

type ScoreResponse struct {
	Score     int    `json:"score"`
	Label     string `json:"label"`
	EventType string `json:"event_type"`
}

type FacilitiesResponse struct {
	Count      int                `json:"count"`
	Facilities []*entity.Facility `json:"facilities"`
}

type EventsResponse struct {
	Count  int                   `json:"count"`
	Events []*entity.EventRecord `json:"events"`
}

type TransitionsResponse struct {
	FacilityID  string                    `json:"facility_id"`
	Transitions []entity.StatusTransition `json:"transitions"`
}
