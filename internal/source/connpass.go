package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/pkg/utils"
)

const (
	DefaultConnpassURL  = "https://connpass.com/api/v2/events/"
	maxDescriptionRunes = 1000
	connpassPageSize    = 100
)

// DefaultConnpassKeywords are searched one at a time.
var DefaultConnpassKeywords = []string{
	"スタートアップ", "起業", "ピッチ", "資金調達", "ベンチャー", "創業", "補助金",
}

var onlinePlaceKeywords = []string{"オンライン", "online", "zoom", "teams", "ウェビナー", "webinar"}

// ConnpassConfig configures the connpass source.
type ConnpassConfig struct {
	BaseURL     string
	APIKey      string
	UserAgent   string
	Keywords    []string
	MonthsAhead int
	// Interval is the minimum time between two API requests.
	Interval time.Duration
	Timeout  time.Duration
}

// Connpass searches the connpass event API by keyword and month.
type Connpass struct {
	cfg     ConnpassConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewConnpass creates the source; zero config values fall back to defaults.
func NewConnpass(cfg ConnpassConfig, logger *zap.Logger) *Connpass {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConnpassURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "activity-monitor/1.0"
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultConnpassKeywords
	}
	if cfg.MonthsAhead < 0 {
		cfg.MonthsAhead = 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connpass{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Connpass) Name() string { return entity.SourceConnpass }

type connpassResponse struct {
	ResultsReturned  int             `json:"results_returned"`
	ResultsAvailable int             `json:"results_available"`
	Events           []connpassEvent `json:"events"`
}

// connpassEvent accepts both the v1 (event_id, event_url) and v2 (id, url) field names.
type connpassEvent struct {
	ID          int64  `json:"id"`
	EventID     int64  `json:"event_id"`
	Title       string `json:"title"`
	Catch       string `json:"catch"`
	Description string `json:"description"`
	URL         string `json:"url"`
	EventURL    string `json:"event_url"`
	StartedAt   string `json:"started_at"`
	Place       string `json:"place"`
	Address     string `json:"address"`
	Limit       int    `json:"limit"`
	Accepted    int    `json:"accepted"`
	EventType   string `json:"event_type"`
}

// Months returns the YYYYMM values searched: the current month and
// MonthsAhead following months.
func (c *Connpass) Months() []string {
	now := c.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, c.cfg.MonthsAhead+1)
	for i := 0; i <= c.cfg.MonthsAhead; i++ {
		months = append(months, first.AddDate(0, i, 0).Format("200601"))
	}
	return months
}

// Fetch runs every keyword for every month. A failing request is logged and
// skipped; Fetch only fails when ctx is done.
func (c *Connpass) Fetch(ctx context.Context, seen *SeenSet) ([]entity.EventRecord, error) {
	if seen == nil {
		seen = NewSeenSet()
	}
	var out []entity.EventRecord
	for _, ym := range c.Months() {
		for _, kw := range c.cfg.Keywords {
			if err := c.limiter.Wait(ctx); err != nil {
				return out, err
			}
			resp, err := c.search(ctx, kw, ym)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				c.logger.Warn("connpass search failed", zap.String("keyword", kw), zap.String("ym", ym), zap.Error(err))
				continue
			}
			for _, ev := range resp.Events {
				origin := ev.originID()
				if origin == "" || !seen.Add(entity.SourceConnpass+":"+origin) {
					continue
				}
				rec, ok := normalize(ev)
				if !ok {
					continue
				}
				out = append(out, rec)
			}
		}
	}
	c.logger.Info("connpass fetch finished", zap.Int("events", len(out)))
	return out, nil
}

func (c *Connpass) search(ctx context.Context, keyword, ym string) (*connpassResponse, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("ym", ym)
	q.Set("count", strconv.Itoa(connpassPageSize))
	q.Set("order", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("connpass returned status %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	var out connpassResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode connpass response: %w", err)
	}
	return &out, nil
}

func (e connpassEvent) originID() string {
	switch {
	case e.ID != 0:
		return strconv.FormatInt(e.ID, 10)
	case e.EventID != 0:
		return strconv.FormatInt(e.EventID, 10)
	}
	return ""
}

// normalize converts a connpass event into an EventRecord. Events without a
// parsable start time are dropped.
func normalize(e connpassEvent) (entity.EventRecord, bool) {
	started, err := time.Parse(time.RFC3339, strings.TrimSpace(e.StartedAt))
	if err != nil {
		return entity.EventRecord{}, false
	}

	link := e.URL
	if link == "" {
		link = e.EventURL
	}
	venue := e.Place
	if venue == "" {
		venue = e.Address
	}
	fee := "paid"
	if e.EventType == "participation" {
		fee = "free"
	}

	return entity.EventRecord{
		ID:                utils.EventID(entity.SourceConnpass, e.originID()),
		Title:             e.Title,
		Description:       truncate(e.Description, maxDescriptionRunes),
		Date:              time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC),
		Time:              started.Format("15:04"),
		Venue:             venue,
		Source:            entity.SourceConnpass,
		SourcePlatform:    "connpass",
		SourceURL:         link,
		IsOnline:          isOnlinePlace(e.Place),
		ParticipantsLimit: e.Limit,
		ParticipantsCount: e.Accepted,
		Fee:               fee,
		Prefecture:        Prefecture(e.Address),
	}, true
}

func isOnlinePlace(place string) bool {
	p := strings.ToLower(place)
	for _, kw := range onlinePlaceKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
