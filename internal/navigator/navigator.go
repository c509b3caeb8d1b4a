// Package navigator walks a facility's web presence with bounded, one-hop
// navigation and returns the boilerplate-stripped pages it could reach.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/repository"
	"github.com/user/activity-monitor/pkg/metrics"
)

// ErrRootUnreachable is returned when the facility's root page cannot be fetched.
var ErrRootUnreachable = errors.New("root page unreachable")

// Config bounds the work done per facility.
type Config struct {
	MaxInternalPages int
	MaxExternalPages int
	PageTimeout      time.Duration
	RootSettle       time.Duration
	ExternalSettle   time.Duration
	FeedDiscovery    bool
}

// DefaultConfig returns the standard bounds: 3 internal pages, 2 external
// platform pages, 30s per page.
func DefaultConfig() Config {
	return Config{
		MaxInternalPages: 3,
		MaxExternalPages: 2,
		PageTimeout:      30 * time.Second,
		RootSettle:       time.Second,
		ExternalSettle:   2 * time.Second,
		FeedDiscovery:    true,
	}
}

// CrawlResult is everything gathered for one facility.
type CrawlResult struct {
	Pages             []entity.RawPage
	ExternalPlatforms []string
	Unreachable       []entity.PageError
}

// PagesVisited returns the URLs of all captured pages in visit order.
func (r *CrawlResult) PagesVisited() []string {
	urls := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		urls = append(urls, p.URL)
	}
	return urls
}

// Navigator is stateless between calls and safe for concurrent use across facilities.
type Navigator struct {
	renderer repository.PageRenderer
	feeds    FeedFetcher
	cfg      Config
	logger   *zap.Logger
}

// New creates a Navigator. feeds may be nil, which disables feed discovery.
func New(renderer repository.PageRenderer, feeds FeedFetcher, cfg Config, logger *zap.Logger) *Navigator {
	def := DefaultConfig()
	if cfg.MaxInternalPages < 0 {
		cfg.MaxInternalPages = def.MaxInternalPages
	}
	if cfg.MaxExternalPages < 0 {
		cfg.MaxExternalPages = def.MaxExternalPages
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = def.PageTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{renderer: renderer, feeds: feeds, cfg: cfg, logger: logger}
}

// Navigate renders the root page, then at most MaxInternalPages same-site
// content pages and MaxExternalPages external platform pages found on it.
// Failures on anything but the root page are recorded and skipped.
func (n *Navigator) Navigate(ctx context.Context, rootURL string) (*CrawlResult, error) {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrRootUnreachable, rootURL)
	}
	if err := n.renderer.Available(); err != nil {
		return nil, err
	}

	result := &CrawlResult{}

	rootPage, err := n.fetch(ctx, rootURL, "root", n.cfg.RootSettle, "")
	if err != nil {
		if errors.Is(err, repository.ErrRendererUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrRootUnreachable, err)
	}
	result.Pages = append(result.Pages, *rootPage)

	internal, external := ClassifyLinks(root, rootPage.Links)
	result.ExternalPlatforms = distinctPlatforms(external)

	visited := map[string]bool{normalizeURL(root): true}

	for _, c := range limit(internal, n.cfg.MaxInternalPages) {
		n.visit(ctx, result, visited, c, "internal", n.cfg.RootSettle)
	}
	for _, c := range limit(external, n.cfg.MaxExternalPages) {
		n.visit(ctx, result, visited, c, "external", n.cfg.ExternalSettle)
	}

	if n.cfg.FeedDiscovery && n.feeds != nil {
		n.visitFeed(ctx, result, root, rootPage.Feeds)
	}

	n.logger.Debug("facility crawl finished",
		zap.String("url", rootURL),
		zap.Int("pages", len(result.Pages)),
		zap.Int("unreachable", len(result.Unreachable)),
		zap.Strings("platforms", result.ExternalPlatforms),
	)
	return result, nil
}

func (n *Navigator) visit(ctx context.Context, result *CrawlResult, visited map[string]bool, c Candidate, kind string, settle time.Duration) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return
	}
	key := normalizeURL(u)
	if visited[key] {
		return
	}
	visited[key] = true

	page, err := n.fetch(ctx, c.URL, kind, settle, c.Platform)
	if err != nil {
		n.logger.Warn("page unreachable", zap.String("url", c.URL), zap.String("kind", kind), zap.Error(err))
		result.Unreachable = append(result.Unreachable, entity.PageError{URL: c.URL, Reason: err.Error()})
		return
	}
	result.Pages = append(result.Pages, *page)
}

// visitFeed follows the first same-site feed advertised by the root page.
func (n *Navigator) visitFeed(ctx context.Context, result *CrawlResult, root *url.URL, feeds []string) {
	for _, f := range feeds {
		u, err := url.Parse(f)
		if err != nil || !strings.EqualFold(u.Hostname(), root.Hostname()) {
			continue
		}

		fctx, cancel := context.WithTimeout(ctx, n.cfg.PageTimeout)
		page, err := n.feeds.FetchFeed(fctx, f)
		cancel()
		if err != nil {
			metrics.PageFetchesTotal.WithLabelValues("feed", "failure").Inc()
			n.logger.Warn("feed unreachable", zap.String("url", f), zap.Error(err))
			result.Unreachable = append(result.Unreachable, entity.PageError{URL: f, Reason: err.Error()})
			return
		}
		metrics.PageFetchesTotal.WithLabelValues("feed", "success").Inc()
		result.Pages = append(result.Pages, *page)
		return
	}
}

// fetch renders one page under the fixed page timeout.
func (n *Navigator) fetch(ctx context.Context, pageURL, kind string, settle time.Duration, platform string) (*entity.RawPage, error) {
	pctx, cancel := context.WithTimeout(ctx, n.cfg.PageTimeout)
	defer cancel()

	html, err := n.renderer.Render(pctx, pageURL, repository.RenderOptions{Settle: settle})
	if err != nil {
		metrics.PageFetchesTotal.WithLabelValues(kind, "failure").Inc()
		return nil, err
	}

	page, err := ParsePage(pageURL, html)
	if err != nil {
		metrics.PageFetchesTotal.WithLabelValues(kind, "failure").Inc()
		return nil, err
	}
	page.Platform = platform
	metrics.PageFetchesTotal.WithLabelValues(kind, "success").Inc()
	return page, nil
}

func limit(c []Candidate, n int) []Candidate {
	if len(c) > n {
		return c[:n]
	}
	return c
}

func distinctPlatforms(external []Candidate) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, c := range external {
		if !seen[c.Platform] {
			seen[c.Platform] = true
			out = append(out, c.Platform)
		}
	}
	return out
}
