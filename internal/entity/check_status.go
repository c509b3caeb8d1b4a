package entity

import "time"

// CheckRequest is the payload queued for an asynchronous facility check.
type CheckRequest struct {
	FacilityID string `json:"facility_id"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	Force      bool   `json:"force"`
}

// Ref converts the request into the reference the checker works with.
func (r CheckRequest) Ref() FacilityRef {
	return FacilityRef{ID: r.FacilityID, Name: r.Name, URL: r.URL}
}

type CheckStatus struct {
	URL            string
	CurrentStatus  string // "pending", "checked", "not_found"
	LastCheckedAt  *time.Time
	FacilityStatus FacilityStatus
	LastEventDate  *time.Time
}
