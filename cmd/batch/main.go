package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/app"
	"github.com/user/activity-monitor/internal/dormancy"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/report"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/scorer"
	"github.com/user/activity-monitor/internal/source"
	"github.com/user/activity-monitor/internal/usecase"
	"github.com/user/activity-monitor/pkg/config"
	"github.com/user/activity-monitor/pkg/logger"
	"github.com/user/activity-monitor/pkg/utils"
)

func main() {
	flags := pflag.NewFlagSet("batch", pflag.ExitOnError)
	output := flags.StringP("output", "o", "", "write the JSON report to this file instead of stdout")
	limit := flags.Int("limit", 0, "check at most this many facilities (0 means all)")
	seed := flags.String("facilities", "", "JSON file of facilities to add before checking")
	ingest := flags.Bool("ingest", false, "also ingest events from connpass")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("store", "", "store driver (sqlite or postgres)")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.Int("workers", 0, "facilities checked at the same time")
	flags.Int("threshold-days", 0, "days without events before a facility is dormant")
	flags.String("chrome-path", "", "Chrome or Chromium executable")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{output: *output, limit: *limit, seed: *seed, ingest: *ingest}); err != nil {
		log.Error("batch run failed", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	output string
	limit  int
	seed   string
	ingest bool
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, opts options) error {
	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer stores.Close()

	if opts.seed != "" {
		n, err := seedFacilities(ctx, stores.Facilities, opts.seed)
		if err != nil {
			return err
		}
		log.Info("facilities loaded", zap.String("file", opts.seed), zap.Int("count", n))
	}

	refs, err := facilityRefs(ctx, stores.Facilities, opts.limit)
	if err != nil {
		return err
	}
	log.Info("checking facilities", zap.Int("count", len(refs)))

	renderer := app.NewRenderer(cfg, log)
	defer renderer.Close()
	if err := renderer.Available(); err != nil {
		// Continue anyway, every facility with a website reports unknown.
		log.Warn("headless browser not available", zap.Error(err))
	}

	machine := dormancy.NewMachine(cfg.ThresholdDays)
	transitions := &dormancy.TransitionLog{}
	sc := scorer.New(scorer.DefaultConfig())

	checker := usecase.NewActivityChecker(app.NewNavigator(cfg, renderer, log), app.CheckerConfig(cfg), log)
	recorder := usecase.NewRecorder(stores.Facilities, stores.Events, machine, sc, transitions, log)

	snaps := checker.CheckFacilities(ctx, refs)
	for _, snap := range snaps {
		if _, err := recorder.Record(ctx, snap); err != nil {
			// Continue anyway, the snapshot is still reported.
			log.Error("failed to record facility check", zap.String("facility_id", snap.FacilityID), zap.Error(err))
		}
	}

	if ctx.Err() == nil {
		res, err := dormancy.NewReclassifier(stores.Facilities, machine, transitions, log).Run(ctx, time.Now())
		if err != nil {
			log.Error("reclassification failed", zap.Error(err))
		} else {
			log.Info("reclassification done", zap.Int("transitions", len(res.Transitions)))
		}
	}

	if opts.ingest && ctx.Err() == nil {
		ingestor := usecase.NewIngestor(stores.Events, sc, log)
		if _, err := ingestor.Ingest(ctx, app.NewConnpass(cfg, log), source.NewSeenSet()); err != nil {
			log.Error("connpass ingestion failed", zap.Error(err))
		}
	}

	artifact := report.Build(time.Now(), snaps)
	if err := writeReport(opts.output, artifact); err != nil {
		return err
	}

	s := artifact.Summary
	log.Info("batch finished",
		zap.Int("total", s.TotalFacilities),
		zap.Int("active", s.Active),
		zap.Int("dormant", s.Dormant),
		zap.Int("new", s.New),
		zap.Int("unknown", s.Unknown),
		zap.Int("error", s.Error),
		zap.Int("events", s.TotalEvents),
		zap.Int("transitions", transitions.Len()),
	)
	return nil
}

// seedFacilities upserts the facilities listed in a JSON array of references.
func seedFacilities(ctx context.Context, repo repository.FacilityRepository, path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read facilities file: %w", err)
	}
	var refs []entity.FacilityRef
	if err := json.Unmarshal(b, &refs); err != nil {
		return 0, fmt.Errorf("failed to parse facilities file: %w", err)
	}
	for _, ref := range refs {
		// Same key as a check submitted over the API.
		if strings.TrimSpace(ref.URL) != "" {
			normalized, err := utils.NormalizeFacilityURL(ref.URL)
			if err != nil {
				return 0, fmt.Errorf("invalid url for facility %q: %w", ref.Name, err)
			}
			ref.URL = normalized
		}
		f := &entity.Facility{
			ID:         usecase.FacilityID(ref),
			Name:       ref.Name,
			Website:    ref.URL,
			Prefecture: ref.Prefecture,
			Status:     entity.StatusNew,
		}
		if err := repo.UpsertFacility(ctx, f); err != nil {
			return 0, fmt.Errorf("failed to save facility %s: %w", f.ID, err)
		}
	}
	return len(refs), nil
}

// facilityRefs lists the stored facilities that are not closed.
func facilityRefs(ctx context.Context, repo repository.FacilityRepository, limit int) ([]entity.FacilityRef, error) {
	facilities, err := repo.ListFacilities(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	refs := make([]entity.FacilityRef, 0, len(facilities))
	for _, f := range facilities {
		if f.Status == entity.StatusClosed {
			continue
		}
		refs = append(refs, entity.FacilityRef{ID: f.ID, Name: f.Name, URL: f.Website, Prefecture: f.Prefecture})
		if limit > 0 && len(refs) == limit {
			break
		}
	}
	return refs, nil
}

func writeReport(path string, a *report.Artifact) (err error) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("failed to create report file: %w", cerr)
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}
	if err := report.Write(w, a); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
