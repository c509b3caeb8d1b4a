package entity

import "time"

// FacilityStatus is the lifecycle state of a facility.
type FacilityStatus string

const (
	StatusNew     FacilityStatus = "new"
	StatusActive  FacilityStatus = "active"
	StatusDormant FacilityStatus = "dormant"
	// StatusClosed is only ever set by an operator and is never left again.
	StatusClosed FacilityStatus = "closed"
)

// Snapshot-only outcomes. They describe a check run, never a stored facility.
const (
	StatusUnknown FacilityStatus = "unknown"
	StatusError   FacilityStatus = "error"
)

// Valid reports whether s is one of the persisted facility statuses.
func (s FacilityStatus) Valid() bool {
	switch s {
	case StatusNew, StatusActive, StatusDormant, StatusClosed:
		return true
	}
	return false
}

func (s FacilityStatus) String() string {
	return string(s)
}

// Facility mirrors the `facilities` table.
type Facility struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Prefecture    string         `json:"prefecture,omitempty"`
	City          string         `json:"city,omitempty"`
	Address       string         `json:"address,omitempty"`
	Website       string         `json:"website,omitempty"`
	Status        FacilityStatus `json:"status"`
	LastEventDate *time.Time     `json:"last_event_date,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// StatusTransition is one row of the append-only status history.
type StatusTransition struct {
	ID         int64          `json:"id,omitempty"`
	FacilityID string         `json:"facility_id"`
	OldStatus  FacilityStatus `json:"old_status"`
	NewStatus  FacilityStatus `json:"new_status"`
	Timestamp  time.Time      `json:"timestamp"`
	Reason     string         `json:"reason"`
}
