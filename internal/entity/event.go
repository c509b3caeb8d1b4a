package entity

import "time"

// DateLayout is the calendar-date layout used for event dates on the wire and in SQLite.
const DateLayout = "2006-01-02"

// Sources of event records.
const (
	SourceCrawl    = "crawl"
	SourceConnpass = "connpass"
)

// EventRecord is a normalized event, either synthesized from a crawl or
// ingested from an event platform.
type EventRecord struct {
	ID                string    `json:"id"`
	FacilityID        string    `json:"facility_id,omitempty"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Date              time.Time `json:"event_date"`
	Time              string    `json:"event_time,omitempty"`
	Venue             string    `json:"venue,omitempty"`
	EventType         string    `json:"event_type,omitempty"`
	Source            string    `json:"source,omitempty"`
	SourcePlatform    string    `json:"source_platform,omitempty"`
	SourceURL         string    `json:"source_url,omitempty"`
	IsOnline          bool      `json:"is_online"`
	ParticipantsLimit int       `json:"participants_limit,omitempty"`
	ParticipantsCount int       `json:"participants_count,omitempty"`
	Fee               string    `json:"fee,omitempty"`
	Prefecture        string    `json:"prefecture,omitempty"`
	PriorityScore     int       `json:"priority_score"`
}

// DateString returns the event date as YYYY-MM-DD.
func (e *EventRecord) DateString() string {
	return e.Date.Format(DateLayout)
}

// ExtractedDate is a calendar date found in page text together with the
// line it came from.
type ExtractedDate struct {
	Date    time.Time `json:"date"`
	Context string    `json:"context"`
}
