// Package app assembles the components shared by the api and batch commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/adapter/chromedp_crawler"
	"github.com/user/activity-monitor/internal/adapter/postgres"
	"github.com/user/activity-monitor/internal/adapter/sqlite"
	"github.com/user/activity-monitor/internal/navigator"
	"github.com/user/activity-monitor/internal/proxy"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/internal/source"
	"github.com/user/activity-monitor/internal/usecase"
	"github.com/user/activity-monitor/pkg/config"
)

// Stores bundles the persistence used by the use cases.
type Stores struct {
	Facilities repository.FacilityRepository
	Events     repository.EventRepository
	Close      func()
}

// OpenStores connects to the configured store driver and migrates it.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		logger.Info("PostgreSQL connection pool established")
		return &Stores{
			Facilities: postgres.NewFacilityRepo(db),
			Events:     postgres.NewEventRepo(db),
			Close:      db.Close,
		}, nil
	case "sqlite", "":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("SQLite database opened", zap.String("path", cfg.SQLitePath))
		return &Stores{
			Facilities: s,
			Events:     s,
			Close:      func() { _ = s.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NewRenderer builds the headless browser renderer with proxy and user agent rotation.
func NewRenderer(cfg *config.Config, logger *zap.Logger) *chromedp_crawler.ChromedpRenderer {
	return chromedp_crawler.NewChromedpRenderer(chromedp_crawler.Config{
		ExecPath:       cfg.ChromePath,
		AcceptLanguage: cfg.AcceptLanguage,
		PageTimeout:    cfg.PageTimeout,
	}, proxy.NewManager(cfg.Proxies, cfg.UserAgents), logger)
}

// NewNavigator wires the renderer and a gofeed fetcher into a Navigator.
func NewNavigator(cfg *config.Config, renderer repository.PageRenderer, logger *zap.Logger) *navigator.Navigator {
	navCfg := navigator.DefaultConfig()
	navCfg.MaxInternalPages = cfg.MaxInternalPages
	navCfg.MaxExternalPages = cfg.MaxExternalPages
	navCfg.PageTimeout = cfg.PageTimeout
	navCfg.FeedDiscovery = cfg.FeedDiscovery
	return navigator.New(renderer, navigator.NewGofeedFetcher(proxy.DefaultUserAgents[0]), navCfg, logger)
}

// CheckerConfig maps the loaded config onto the activity checker settings.
func CheckerConfig(cfg *config.Config) usecase.CheckerConfig {
	return usecase.CheckerConfig{
		ThresholdDays:      cfg.ThresholdDays,
		Workers:            cfg.CheckWorkers,
		InterFacilityDelay: cfg.InterFacilityDelay,
		EraEpochYear:       cfg.EraEpochYear,
	}
}

// NewConnpass builds the connpass event source.
func NewConnpass(cfg *config.Config, logger *zap.Logger) *source.Connpass {
	return source.NewConnpass(source.ConnpassConfig{
		BaseURL:     cfg.ConnpassURL,
		APIKey:      cfg.ConnpassAPIKey,
		Keywords:    cfg.ConnpassKeywords,
		MonthsAhead: cfg.ConnpassMonthsAhead,
		Interval:    cfg.ConnpassInterval,
	}, logger)
}
