package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/pkg/metrics"
)

// CheckWorker defines the interface for processing queued facility checks.
type CheckWorker interface {
	// ProcessNext handles one queued check. An empty queue is not an error.
	ProcessNext(ctx context.Context) (bool, error)
	// Run processes checks until ctx is done, polling every interval while the queue is empty.
	Run(ctx context.Context, interval time.Duration)
}

type checkWorker struct {
	queueRepo repository.CheckQueueRepository
	checker   ActivityChecker
	recorder  Recorder
	delay     time.Duration
	logger    *zap.Logger
}

// NewCheckWorker creates a new CheckWorker. Run waits delay after every
// check it takes from the queue.
func NewCheckWorker(queueRepo repository.CheckQueueRepository, checker ActivityChecker, recorder Recorder, delay time.Duration, logger *zap.Logger) CheckWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &checkWorker{
		queueRepo: queueRepo,
		checker:   checker,
		recorder:  recorder,
		delay:     delay,
		logger:    logger,
	}
}

// ProcessNext pops a single request, checks the facility and records the result.
// It reports whether a request was taken from the queue.
func (w *checkWorker) ProcessNext(ctx context.Context) (bool, error) {
	req, err := w.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			// Queue is empty, which is a normal state.
			return false, nil
		}
		return false, fmt.Errorf("failed to pop check from queue: %w", err)
	}
	if size, err := w.queueRepo.Size(ctx); err == nil {
		metrics.ChecksInQueue.Set(float64(size))
	}

	w.logger.Info("processing facility check from queue", zap.String("url", req.URL), zap.String("facility_id", req.FacilityID))

	snap := w.checker.CheckFacility(ctx, req.Ref())
	if _, err := w.recorder.Record(ctx, snap); err != nil {
		return true, fmt.Errorf("failed to record check of %s: %w", req.URL, err)
	}
	return true, nil
}

func (w *checkWorker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		if ctx.Err() != nil {
			return
		}
		took, err := w.ProcessNext(ctx)
		if err != nil {
			w.logger.Error("check worker error", zap.Error(err))
		}
		if took {
			sleep(ctx, w.delay)
			continue
		}
		sleep(ctx, interval)
	}
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
