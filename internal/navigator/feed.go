package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/user/activity-monitor/internal/entity"
)

// FeedFetcher loads an RSS/Atom feed and renders its items as page text.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*entity.RawPage, error)
}

// GofeedFetcher implements FeedFetcher with gofeed.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewGofeedFetcher creates a feed fetcher sending the given user agent.
func NewGofeedFetcher(userAgent string) *GofeedFetcher {
	p := gofeed.NewParser()
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &GofeedFetcher{parser: p}
}

// FetchFeed turns every dated item into a "YYYY-MM-DD title" line so it can
// go through the same date extraction as rendered pages.
func (f *GofeedFetcher) FetchFeed(ctx context.Context, feedURL string) (*entity.RawPage, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return FeedPage(feedURL, feed), nil
}

// FeedPage converts a parsed feed into a RawPage.
func FeedPage(feedURL string, feed *gofeed.Feed) *entity.RawPage {
	var b strings.Builder
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		t := item.PublishedParsed
		if t == nil {
			t = item.UpdatedParsed
		}
		if t == nil {
			continue
		}
		b.WriteString(t.UTC().Format(entity.DateLayout))
		b.WriteByte(' ')
		b.WriteString(collapseSpaces(item.Title))
		b.WriteByte('\n')
	}
	return &entity.RawPage{
		URL:   feedURL,
		Text:  strings.TrimRight(b.String(), "\n"),
		Links: []entity.Link{},
	}
}
