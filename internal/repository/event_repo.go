package repository

import (
	"context"

	"github.com/user/activity-monitor/internal/entity"
)

// EventFilter narrows ListEvents.
type EventFilter struct {
	FacilityID string
	MinScore   *int
	Limit      int
}

// EventRepository defines the interface for storing event records.
type EventRepository interface {
	// UpsertEvent stores the record keyed by its ID. Re-ingesting the same record is a no-op update.
	UpsertEvent(ctx context.Context, e *entity.EventRecord) error
	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]*entity.EventRecord, error)
}
