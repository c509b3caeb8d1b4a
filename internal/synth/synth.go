// Package synth turns dates extracted across a facility's pages into one
// bounded, date-unique event list.
package synth

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/pkg/utils"
)

const (
	// MaxEvents bounds the event list of one snapshot.
	MaxEvents = 20
	// MaxTitleRunes bounds a derived title.
	MaxTitleRunes = 50
	minTitleRunes = 3
)

// PageDates is the extractor output for one visited page.
type PageDates struct {
	URL      string
	Platform string
	Dates    []entity.ExtractedDate
}

type candidate struct {
	date     time.Time
	context  string
	url      string
	platform string
}

// Synthesize merges the dates of every page, newest first. Each calendar date
// yields one event; when several pages mention a date the first one in page
// order wins. At most MaxEvents events are returned. last is the newest date,
// or nil when nothing was found.
func Synthesize(facilityURL string, pages []PageDates) (events []entity.EventRecord, last *time.Time) {
	var all []candidate
	for _, p := range pages {
		for _, d := range p.Dates {
			all = append(all, candidate{date: d.Date, context: d.Context, url: p.URL, platform: p.Platform})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].date.After(all[j].date)
	})

	events = []entity.EventRecord{}
	seen := make(map[time.Time]bool)
	for _, c := range all {
		if seen[c.date] {
			continue
		}
		seen[c.date] = true

		events = append(events, entity.EventRecord{
			ID:             utils.EventID(entity.SourceCrawl, facilityURL+"#"+c.date.Format(entity.DateLayout)),
			Title:          Title(c.context, c.date),
			Description:    c.context,
			Date:           c.date,
			Source:         entity.SourceCrawl,
			SourcePlatform: c.platform,
			SourceURL:      c.url,
		})
		if len(events) == MaxEvents {
			break
		}
	}

	if len(events) > 0 {
		d := events[0].Date
		last = &d
	}
	return events, last
}

const leadingDelimiters = "|｜・-–—:：/>＞*■□●○◆◇▶►★☆※"

var brackets = map[rune]rune{
	'【': '】',
	'[': ']',
	'［': '］',
	'〔': '〕',
	'(': ')',
	'（': '）',
	'<': '>',
	'《': '》',
	'「': '」',
}

// Title derives an event title from the line a date was found on. Text after
// the first "|" is dropped, leading delimiters and bracketed prefixes are
// stripped and the rest is cut to MaxTitleRunes. Too little text left gives
// "Event (YYYY-MM-DD)".
func Title(context string, date time.Time) string {
	s := stripLeading(context)
	if i := strings.IndexAny(s, "|｜"); i >= 0 {
		s = s[:i]
	}
	for {
		rest, ok := stripBracketPrefix(s)
		if !ok {
			break
		}
		s = stripLeading(rest)
	}

	if utf8.RuneCountInString(s) > MaxTitleRunes {
		s = string([]rune(s)[:MaxTitleRunes])
	}
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if utf8.RuneCountInString(s) < minTitleRunes {
		return "Event (" + date.Format(entity.DateLayout) + ")"
	}
	return s
}

func stripLeading(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(leadingDelimiters, r)
	})
}

// stripBracketPrefix removes one leading bracketed segment, but only when
// more text follows it.
func stripBracketPrefix(s string) (string, bool) {
	open, size := utf8.DecodeRuneInString(s)
	closing, ok := brackets[open]
	if !ok {
		return s, false
	}
	end := strings.IndexRune(s[size:], closing)
	if end < 0 {
		return s, false
	}
	rest := s[size+end+utf8.RuneLen(closing):]
	if strings.TrimSpace(rest) == "" {
		return s, false
	}
	return rest, true
}
