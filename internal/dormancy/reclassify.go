package dormancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/pkg/metrics"
)

// Outcome is the result of re-classifying one facility.
type Outcome struct {
	FacilityID string                `json:"facility_id"`
	Status     entity.FacilityStatus `json:"status"`
	Changed    bool                  `json:"changed"`
	Error      string                `json:"error,omitempty"`
}

// ReclassifyResult summarises a batch pass.
type ReclassifyResult struct {
	Active      int                       `json:"active"`
	Dormant     int                       `json:"dormant"`
	New         int                       `json:"new"`
	Unchanged   int                       `json:"unchanged"`
	Skipped     int                       `json:"skipped"`
	Errors      int                       `json:"errors"`
	Transitions []entity.StatusTransition `json:"transitions"`
	Outcomes    []Outcome                 `json:"outcomes"`
}

// Reclassifier re-evaluates every stored facility against its latest event date.
type Reclassifier struct {
	repo    repository.FacilityRepository
	machine *Machine
	log     *TransitionLog
	logger  *zap.Logger
}

// NewReclassifier creates a Reclassifier. log may be nil.
func NewReclassifier(repo repository.FacilityRepository, machine *Machine, log *TransitionLog, logger *zap.Logger) *Reclassifier {
	if log == nil {
		log = &TransitionLog{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reclassifier{repo: repo, machine: machine, log: log, logger: logger}
}

// Log returns the transitions recorded by this reclassifier so far.
func (r *Reclassifier) Log() *TransitionLog {
	return r.log
}

// Run re-classifies all facilities. Closed facilities are skipped without
// looking up their events. A failure on one facility is recorded in its
// outcome and the pass continues; only listing facilities or a cancelled
// context stop it.
func (r *Reclassifier) Run(ctx context.Context, now time.Time) (*ReclassifyResult, error) {
	facilities, err := r.repo.ListFacilities(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}

	res := &ReclassifyResult{
		Transitions: []entity.StatusTransition{},
		Outcomes:    make([]Outcome, 0, len(facilities)),
	}
	for _, f := range facilities {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if f.Status == entity.StatusClosed {
			res.Skipped++
			continue
		}

		out := r.one(ctx, f, now, res)
		res.Outcomes = append(res.Outcomes, out)
	}

	r.logger.Info("reclassification finished",
		zap.Int("active", res.Active),
		zap.Int("dormant", res.Dormant),
		zap.Int("new", res.New),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

func (r *Reclassifier) one(ctx context.Context, f *entity.Facility, now time.Time, res *ReclassifyResult) Outcome {
	out := Outcome{FacilityID: f.ID, Status: f.Status}

	fail := func(err error) Outcome {
		r.logger.Error("failed to reclassify facility", zap.String("facility_id", f.ID), zap.Error(err))
		res.Errors++
		out.Status = entity.StatusError
		out.Error = err.Error()
		return out
	}

	last, err := r.repo.GetLatestEventDate(ctx, f.ID)
	if err != nil {
		return fail(fmt.Errorf("latest event date: %w", err))
	}

	next, tr, err := r.machine.Evaluate(f.ID, f.Status, last, now)
	if err != nil {
		return fail(err)
	}
	if tr == nil {
		res.Unchanged++
		return out
	}

	if err := r.repo.UpdateStatus(ctx, f.ID, f.Status, next, last, tr.Reason); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Another writer got there first; its status stands.
			r.logger.Info("facility status changed during reclassification", zap.String("facility_id", f.ID), zap.Error(err))
			res.Skipped++
			return out
		}
		return fail(fmt.Errorf("update status: %w", err))
	}

	r.log.Append(*tr)
	metrics.StatusTransitionsTotal.WithLabelValues(string(tr.OldStatus), string(tr.NewStatus)).Inc()
	r.logger.Info("facility status changed",
		zap.String("facility_id", f.ID),
		zap.String("name", f.Name),
		zap.String("from", string(tr.OldStatus)),
		zap.String("to", string(tr.NewStatus)),
	)

	res.Transitions = append(res.Transitions, *tr)
	switch next {
	case entity.StatusActive:
		res.Active++
	case entity.StatusDormant:
		res.Dormant++
	case entity.StatusNew:
		res.New++
	}
	out.Status = next
	out.Changed = true
	return out
}
