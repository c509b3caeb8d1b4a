package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/navigator"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/synth"
	"github.com/user/activity-monitor/internal/temporal"
	"github.com/user/activity-monitor/pkg/metrics"
	"github.com/user/activity-monitor/pkg/utils"
)

// SiteNavigator crawls the pages of one facility.
type SiteNavigator interface {
	Navigate(ctx context.Context, rootURL string) (*navigator.CrawlResult, error)
}

// ActivityChecker defines the interface for running facility activity checks.
type ActivityChecker interface {
	// CheckFacility never fails: problems are reported in the snapshot status and error.
	CheckFacility(ctx context.Context, ref entity.FacilityRef) *entity.FacilityActivitySnapshot
	// CheckFacilities returns one snapshot per ref, in the same order.
	CheckFacilities(ctx context.Context, refs []entity.FacilityRef) []*entity.FacilityActivitySnapshot
}

// CheckerConfig tunes batch checks.
type CheckerConfig struct {
	ThresholdDays      int
	Workers            int
	InterFacilityDelay time.Duration
	EraEpochYear       int
}

// DefaultCheckerConfig runs facilities one at a time, 1.5s apart.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		ThresholdDays:      dormancy.DefaultThresholdDays,
		Workers:            1,
		InterFacilityDelay: 1500 * time.Millisecond,
		EraEpochYear:       temporal.DefaultEraEpochYear,
	}
}

type activityChecker struct {
	nav       SiteNavigator
	extractor *temporal.Extractor
	cfg       CheckerConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityChecker creates a new ActivityChecker.
func NewActivityChecker(nav SiteNavigator, cfg CheckerConfig, logger *zap.Logger) ActivityChecker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ThresholdDays <= 0 {
		cfg.ThresholdDays = dormancy.DefaultThresholdDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &activityChecker{
		nav:       nav,
		extractor: temporal.NewExtractor(temporal.Options{EraEpochYear: cfg.EraEpochYear}),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// FacilityID returns ref.ID, or an id derived from the URL when it is empty.
func FacilityID(ref entity.FacilityRef) string {
	if ref.ID != "" {
		return ref.ID
	}
	return utils.HashURL(ref.URL)[:16]
}

func newSnapshot(ref entity.FacilityRef, now time.Time) *entity.FacilityActivitySnapshot {
	return &entity.FacilityActivitySnapshot{
		RunID:             uuid.NewString(),
		FacilityID:        FacilityID(ref),
		FacilityName:      ref.Name,
		URL:               ref.URL,
		Prefecture:        ref.Prefecture,
		Events:            []entity.EventRecord{},
		ExternalPlatforms: []string{},
		PagesVisited:      []string{},
		CheckedAt:         now.UTC(),
	}
}

func (c *activityChecker) CheckFacility(ctx context.Context, ref entity.FacilityRef) (snap *entity.FacilityActivitySnapshot) {
	start := time.Now()
	now := c.now()
	snap = newSnapshot(ref, now)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic during facility check", zap.String("url", ref.URL), zap.Any("panic", r))
			snap.Status = entity.StatusError
			snap.Error = fmt.Sprintf("panic: %v", r)
		}
		metrics.FacilityChecksTotal.WithLabelValues(string(snap.Status)).Inc()
		metrics.FacilityCheckDuration.WithLabelValues(string(snap.Status)).Observe(time.Since(start).Seconds())
	}()

	if strings.TrimSpace(ref.URL) == "" {
		snap.Status = entity.StatusUnknown
		snap.Error = "facility has no website"
		return snap
	}

	res, err := c.nav.Navigate(ctx, ref.URL)
	if err != nil {
		snap.Error = err.Error()
		switch {
		case errors.Is(err, repository.ErrRendererUnavailable),
			errors.Is(err, navigator.ErrRootUnreachable),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			snap.Status = entity.StatusUnknown
		default:
			snap.Status = entity.StatusError
		}
		c.logger.Warn("facility check incomplete",
			zap.String("facility_id", snap.FacilityID),
			zap.String("url", ref.URL),
			zap.String("status", string(snap.Status)),
			zap.Error(err),
		)
		return snap
	}

	pages := make([]synth.PageDates, 0, len(res.Pages))
	for _, p := range res.Pages {
		pages = append(pages, synth.PageDates{
			URL:      p.URL,
			Platform: p.Platform,
			Dates:    c.extractor.Extract(p.Text, now),
		})
	}

	events, last := synth.Synthesize(ref.URL, pages)
	for i := range events {
		events[i].FacilityID = snap.FacilityID
	}

	snap.Events = events
	snap.LastEventDate = last
	snap.ExternalPlatforms = res.ExternalPlatforms
	snap.PagesVisited = res.PagesVisited()
	snap.UnreachablePages = res.Unreachable
	snap.Status = dormancy.Classify(last, now, c.cfg.ThresholdDays)

	c.logger.Info("facility checked",
		zap.String("facility_id", snap.FacilityID),
		zap.String("name", ref.Name),
		zap.String("status", string(snap.Status)),
		zap.Int("events", len(events)),
		zap.Int("pages", len(snap.PagesVisited)),
		zap.Duration("duration", time.Since(start)),
	)
	return snap
}

// CheckFacilities checks up to Workers facilities at a time. Each worker waits
// InterFacilityDelay after a facility before taking the next one. Facilities
// not started when ctx is cancelled get an unknown snapshot.
func (c *activityChecker) CheckFacilities(ctx context.Context, refs []entity.FacilityRef) []*entity.FacilityActivitySnapshot {
	results := make([]*entity.FacilityActivitySnapshot, len(refs))

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)

	for i, ref := range refs {
		if ctx.Err() != nil {
			results[i] = c.cancelled(ref, ctx.Err())
			continue
		}
		last := i == len(refs)-1
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = c.cancelled(ref, ctx.Err())
				return nil
			}
			results[i] = c.CheckFacility(ctx, ref)
			if !last {
				sleep(ctx, c.cfg.InterFacilityDelay)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *activityChecker) cancelled(ref entity.FacilityRef, err error) *entity.FacilityActivitySnapshot {
	snap := newSnapshot(ref, c.now())
	snap.Status = entity.StatusUnknown
	snap.Error = fmt.Sprintf("check not started: %v", err)
	return snap
}
