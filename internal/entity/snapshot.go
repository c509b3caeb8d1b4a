package entity

import "time"

// Link is an anchor found on a rendered page.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// RawPage is the boilerplate-stripped capture of one visited page.
type RawPage struct {
	URL      string
	Text     string
	Links    []Link
	Feeds    []string
	Platform string // empty for the facility's own site
}

// PageError records a page that could not be fetched during a check.
type PageError struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// FacilityRef identifies the facility a check runs against.
type FacilityRef struct {
	ID         string `json:"facility_id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Prefecture string `json:"prefecture,omitempty"`
}

// FacilityActivitySnapshot is the full result of one activity check. It is
// built fresh on every run.
type FacilityActivitySnapshot struct {
	RunID             string         `json:"run_id"`
	FacilityID        string         `json:"facility_id"`
	FacilityName      string         `json:"facility_name"`
	URL               string         `json:"url"`
	Prefecture        string         `json:"prefecture,omitempty"`
	Status            FacilityStatus `json:"status"`
	LastEventDate     *time.Time     `json:"last_event_date"`
	Events            []EventRecord  `json:"event_list"`
	ExternalPlatforms []string       `json:"external_platforms"`
	PagesVisited      []string       `json:"checked_pages"`
	UnreachablePages  []PageError    `json:"unreachable_pages,omitempty"`
	Error             string         `json:"error,omitempty"`
	CheckedAt         time.Time      `json:"checked_at"`
}
