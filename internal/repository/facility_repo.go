package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

var (
	// ErrNotFound is returned when a facility or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict is returned by UpdateStatus when the stored status is
	// no longer the one the caller evaluated.
	ErrStatusConflict = errors.New("facility status changed concurrently")
)

// FacilityRepository defines the interface for storing facilities and their status history.
type FacilityRepository interface {
	// UpsertFacility creates or updates a facility keyed by its ID. An existing
	// facility keeps its status; only UpdateStatus changes it.
	UpsertFacility(ctx context.Context, f *entity.Facility) error
	// GetFacility returns a single facility or ErrNotFound.
	GetFacility(ctx context.Context, id string) (*entity.Facility, error)
	// ListFacilities returns all facilities, optionally restricted to one status.
	ListFacilities(ctx context.Context, status *entity.FacilityStatus) ([]*entity.Facility, error)
	// GetLatestEventDate returns the newest stored event date, or nil when there is none.
	GetLatestEventDate(ctx context.Context, facilityID string) (*time.Time, error)
	// UpdateStatus moves the facility from expected to newStatus and appends a
	// StatusTransition row. It fails with ErrStatusConflict, changing nothing,
	// when the stored status is not expected.
	UpdateStatus(ctx context.Context, facilityID string, expected, newStatus entity.FacilityStatus, lastEventDate *time.Time, reason string) error
	// ListTransitions returns the status history of a facility, oldest first.
	ListTransitions(ctx context.Context, facilityID string) ([]entity.StatusTransition, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
