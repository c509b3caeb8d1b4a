package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/scorer"
	"github.com/user/activity-monitor/pkg/metrics"
)

// Recorder persists check results and applies the resulting status change.
type Recorder interface {
	// Record returns the transition applied to the facility, or nil when its
	// status did not change.
	Record(ctx context.Context, snap *entity.FacilityActivitySnapshot) (*entity.StatusTransition, error)
}

type recorder struct {
	facilities repository.FacilityRepository
	events     repository.EventRepository
	machine    *dormancy.Machine
	scorer     *scorer.Scorer
	log        *dormancy.TransitionLog
	logger     *zap.Logger
}

// NewRecorder creates a new Recorder. log may be nil.
func NewRecorder(
	facilities repository.FacilityRepository,
	events repository.EventRepository,
	machine *dormancy.Machine,
	sc *scorer.Scorer,
	log *dormancy.TransitionLog,
	logger *zap.Logger,
) Recorder {
	if log == nil {
		log = &dormancy.TransitionLog{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &recorder{
		facilities: facilities,
		events:     events,
		machine:    machine,
		scorer:     sc,
		log:        log,
		logger:     logger,
	}
}

// Record stores the snapshot's events and re-evaluates the facility against
// its newest stored event. Unknown and error snapshots only tell that the
// check failed, so nothing is stored for them. Closed facilities keep their
// status.
func (r *recorder) Record(ctx context.Context, snap *entity.FacilityActivitySnapshot) (*entity.StatusTransition, error) {
	if snap.Status == entity.StatusUnknown || snap.Status == entity.StatusError {
		r.logger.Debug("skipping record of incomplete check", zap.String("facility_id", snap.FacilityID), zap.String("status", string(snap.Status)))
		return nil, nil
	}

	f, err := r.facilities.GetFacility(ctx, snap.FacilityID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		f = &entity.Facility{
			ID:         snap.FacilityID,
			Name:       snap.FacilityName,
			Website:    snap.URL,
			Prefecture: snap.Prefecture,
			Status:     entity.StatusNew,
		}
		// Events reference the facility row.
		if err := r.facilities.UpsertFacility(ctx, f); err != nil {
			return nil, fmt.Errorf("failed to create facility %s: %w", f.ID, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load facility %s: %w", snap.FacilityID, err)
	}

	for i := range snap.Events {
		e := snap.Events[i]
		e.FacilityID = f.ID
		e.EventType = r.scorer.DetectType(&e)
		e.PriorityScore = r.scorer.Score(&e)
		if e.Prefecture == "" {
			e.Prefecture = f.Prefecture
		}
		if err := r.events.UpsertEvent(ctx, &e); err != nil {
			return nil, fmt.Errorf("failed to save event %s: %w", e.ID, err)
		}
		snap.Events[i] = e
		metrics.EventsIngestedTotal.WithLabelValues(e.Source).Inc()
	}

	latest, err := r.facilities.GetLatestEventDate(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest event date for %s: %w", f.ID, err)
	}

	checked := snap.CheckedAt
	f.LastCheckedAt = &checked
	f.LastEventDate = latest
	if err := r.facilities.UpsertFacility(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to save facility %s: %w", f.ID, err)
	}

	next, tr, err := r.machine.Evaluate(f.ID, f.Status, latest, snap.CheckedAt)
	if errors.Is(err, dormancy.ErrTerminal) {
		return nil, nil
	}
	if err != nil || tr == nil {
		return nil, err
	}

	if err := r.facilities.UpdateStatus(ctx, f.ID, f.Status, next, latest, tr.Reason); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// The facility changed since it was loaded (an operator may have
			// closed it); the newer status stands.
			r.logger.Info("facility status changed during record", zap.String("facility_id", f.ID), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update status for %s: %w", f.ID, err)
	}
	r.log.Append(*tr)
	metrics.StatusTransitionsTotal.WithLabelValues(string(tr.OldStatus), string(tr.NewStatus)).Inc()
	r.logger.Info("facility status changed",
		zap.String("facility_id", f.ID),
		zap.String("from", string(tr.OldStatus)),
		zap.String("to", string(tr.NewStatus)),
		zap.String("reason", tr.Reason),
	)
	return tr, nil
}

// ManualTransition applies an operator action (close or reactivate) to a
// stored facility.
type ManualTransition struct {
	facilities repository.FacilityRepository
	machine    *dormancy.Machine
	log        *dormancy.TransitionLog
}

func NewManualTransition(facilities repository.FacilityRepository, machine *dormancy.Machine, log *dormancy.TransitionLog) *ManualTransition {
	if log == nil {
		log = &dormancy.TransitionLog{}
	}
	return &ManualTransition{facilities: facilities, machine: machine, log: log}
}

// Close marks the facility closed.
func (m *ManualTransition) Close(ctx context.Context, facilityID, reason string) (*entity.StatusTransition, error) {
	return m.apply(ctx, facilityID, func(f *entity.Facility) (*entity.StatusTransition, error) {
		return m.machine.Close(f.ID, f.Status, reason)
	})
}

// Reactivate moves a dormant or new facility back to active.
func (m *ManualTransition) Reactivate(ctx context.Context, facilityID, reason string) (*entity.StatusTransition, error) {
	return m.apply(ctx, facilityID, func(f *entity.Facility) (*entity.StatusTransition, error) {
		return m.machine.Reactivate(f.ID, f.Status, reason)
	})
}

func (m *ManualTransition) apply(ctx context.Context, facilityID string, fn func(*entity.Facility) (*entity.StatusTransition, error)) (*entity.StatusTransition, error) {
	f, err := m.facilities.GetFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	tr, err := fn(f)
	if err != nil {
		return nil, err
	}
	if err := m.facilities.UpdateStatus(ctx, f.ID, f.Status, tr.NewStatus, f.LastEventDate, tr.Reason); err != nil {
		return nil, fmt.Errorf("failed to update status for %s: %w", f.ID, err)
	}
	m.log.Append(*tr)
	metrics.StatusTransitionsTotal.WithLabelValues(string(tr.OldStatus), string(tr.NewStatus)).Inc()
	return tr, nil
}
