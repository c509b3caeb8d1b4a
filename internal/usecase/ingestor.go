package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/scorer"
	"github.com/user/activity-monitor/internal/source"
	"github.com/user/activity-monitor/pkg/metrics"
)

// IngestResult counts what one source run produced.
type IngestResult struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
	Stored  int    `json:"stored"`
	Failed  int    `json:"failed"`
}

// Ingestor pulls events from external sources, scores and stores them.
type Ingestor struct {
	events repository.EventRepository
	scorer *scorer.Scorer
	logger *zap.Logger
}

func NewIngestor(events repository.EventRepository, sc *scorer.Scorer, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{events: events, scorer: sc, logger: logger}
}

// Ingest runs src once. seen is owned by the caller and scopes deduplication
// to the caller's run. Records are upserted by id, so re-ingesting is safe.
func (in *Ingestor) Ingest(ctx context.Context, src source.Source, seen *source.SeenSet) (*IngestResult, error) {
	res := &IngestResult{Source: src.Name()}

	records, err := src.Fetch(ctx, seen)
	res.Fetched = len(records)
	if err != nil && len(records) == 0 {
		return res, fmt.Errorf("failed to fetch from %s: %w", src.Name(), err)
	}

	for i := range records {
		e := &records[i]
		e.EventType = in.scorer.DetectType(e)
		e.PriorityScore = in.scorer.Score(e)
		if uerr := in.events.UpsertEvent(ctx, e); uerr != nil {
			res.Failed++
			in.logger.Warn("failed to store event", zap.String("id", e.ID), zap.String("source", e.Source), zap.Error(uerr))
			continue
		}
		res.Stored++
		metrics.EventsIngestedTotal.WithLabelValues(e.Source).Inc()
	}

	in.logger.Info("source ingested",
		zap.String("source", res.Source),
		zap.Int("fetched", res.Fetched),
		zap.Int("stored", res.Stored),
		zap.Int("failed", res.Failed),
	)
	return res, err
}
