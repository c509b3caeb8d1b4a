// Package dormancy classifies facilities as new, active or dormant from the
// date of their latest known event and keeps the audit trail of status changes.
package dormancy

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/activity-monitor/internal/entity"
)

// DefaultThresholdDays is the number of days without an event after which a
// facility becomes dormant.
const DefaultThresholdDays = 60

var (
	// ErrTerminal is returned for any automatic or manual move out of closed.
	ErrTerminal = errors.New("facility is closed")
	// ErrInvalidTransition is returned for manual moves the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Transition reasons.
const (
	ReasonFirstEvent  = "first event observed"
	ReasonNoRecent    = "no event within threshold window"
	ReasonNewEvent    = "new event detected"
	ReasonRecalc      = "status recalculated"
	ReasonClosed      = "manually closed"
	ReasonReactivated = "manually reactivated"
)

type edge struct {
	from, to entity.FacilityStatus
}

var reasons = map[edge]string{
	{entity.StatusNew, entity.StatusActive}:     ReasonFirstEvent,
	{entity.StatusActive, entity.StatusDormant}: ReasonNoRecent,
	{entity.StatusDormant, entity.StatusActive}: ReasonNewEvent,
}

// Reason returns the audit reason for an automatic change from -> to.
func Reason(from, to entity.FacilityStatus) string {
	if r, ok := reasons[edge{from, to}]; ok {
		return r
	}
	return ReasonRecalc
}

// Classify maps the latest event date to a status. Dates are compared as
// calendar days: a facility whose last event is exactly thresholdDays ago is
// still active. thresholdDays <= 0 means DefaultThresholdDays.
func Classify(last *time.Time, now time.Time, thresholdDays int) entity.FacilityStatus {
	if last == nil {
		return entity.StatusNew
	}
	if thresholdDays <= 0 {
		thresholdDays = DefaultThresholdDays
	}
	cutoff := calendarDay(now).AddDate(0, 0, -thresholdDays)
	if calendarDay(*last).Before(cutoff) {
		return entity.StatusDormant
	}
	return entity.StatusActive
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Machine applies the facility lifecycle: automatic moves between new,
// active and dormant, and operator-only moves into and out of closed.
type Machine struct {
	ThresholdDays int
	// Now stamps transitions; time.Now when nil.
	Now func() time.Time
}

// NewMachine creates a Machine with the given threshold.
func NewMachine(thresholdDays int) *Machine {
	if thresholdDays <= 0 {
		thresholdDays = DefaultThresholdDays
	}
	return &Machine{ThresholdDays: thresholdDays}
}

func (m *Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Evaluate computes the next status of a facility. The transition is nil when
// the status does not change. Closed facilities are never evaluated and
// return ErrTerminal.
func (m *Machine) Evaluate(facilityID string, current entity.FacilityStatus, last *time.Time, now time.Time) (entity.FacilityStatus, *entity.StatusTransition, error) {
	if current == entity.StatusClosed {
		return current, nil, ErrTerminal
	}
	next := Classify(last, now, m.ThresholdDays)
	if next == current {
		return current, nil, nil
	}
	return next, &entity.StatusTransition{
		FacilityID: facilityID,
		OldStatus:  current,
		NewStatus:  next,
		Timestamp:  m.now().UTC(),
		Reason:     Reason(current, next),
	}, nil
}

// Close marks a facility as closed. Any status but closed may be closed.
func (m *Machine) Close(facilityID string, current entity.FacilityStatus, reason string) (*entity.StatusTransition, error) {
	if current == entity.StatusClosed {
		return nil, ErrTerminal
	}
	if !current.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	if reason == "" {
		reason = ReasonClosed
	}
	return m.manual(facilityID, current, entity.StatusClosed, reason), nil
}

// Reactivate puts a dormant or new facility back to active.
func (m *Machine) Reactivate(facilityID string, current entity.FacilityStatus, reason string) (*entity.StatusTransition, error) {
	switch current {
	case entity.StatusClosed:
		return nil, ErrTerminal
	case entity.StatusDormant, entity.StatusNew:
	default:
		return nil, fmt.Errorf("%w: cannot reactivate from %s", ErrInvalidTransition, current)
	}
	if reason == "" {
		reason = ReasonReactivated
	}
	return m.manual(facilityID, current, entity.StatusActive, reason), nil
}

func (m *Machine) manual(facilityID string, from, to entity.FacilityStatus, reason string) *entity.StatusTransition {
	return &entity.StatusTransition{
		FacilityID: facilityID,
		OldStatus:  from,
		NewStatus:  to,
		Timestamp:  m.now().UTC(),
		Reason:     reason,
	}
}
