// Package temporal finds calendar dates mentioned in free page text.
package temporal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/user/activity-monitor/internal/entity"
)

const (
	MinYear = 2020
	MaxYear = 2030

	// DefaultEraEpochYear is the calendar year of era year 1 (Reiwa 1 = 2019).
	DefaultEraEpochYear = 2019

	maxContextRunes = 100
)

type patternKind int

const (
	kindYMD patternKind = iota
	kindMonthNameDY
	kindDMonthNameY
	kindEra
	kindMD
)

type datePattern struct {
	re   *regexp.Regexp
	kind patternKind
	// full patterns carry a year; year-less ones must not re-match text a
	// full pattern already claimed.
	full bool
}

const monthNames = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

// Order matters: matches are collected pattern by pattern, and ties in the
// final date ordering keep that discovery order.
var patterns = []datePattern{
	{regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`), kindYMD, true},
	{regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`), kindYMD, true},
	{regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), kindYMD, true},
	{regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`), kindYMD, true},
	{regexp.MustCompile(`(?i)\b` + monthNames + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), kindMonthNameDY, true},
	{regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+(\d{4})\b`), kindDMonthNameY, true},
	{regexp.MustCompile(`令和\s*(\d{1,2}|元)\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`), kindEra, true},
	{regexp.MustCompile(`R(\d{1,2})\.(\d{1,2})\.(\d{1,2})`), kindEra, true},
	{regexp.MustCompile(`(\d{1,2})/(\d{1,2})`), kindMD, false},
	{regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*日`), kindMD, false},
}

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Options tunes an Extractor.
type Options struct {
	// EraEpochYear is the calendar year that era year 1 maps to.
	EraEpochYear int
}

// Extractor turns text into dated context lines. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	eraEpoch int
}

// NewExtractor returns an Extractor; zero options fall back to defaults.
func NewExtractor(opts Options) *Extractor {
	if opts.EraEpochYear <= 0 {
		opts.EraEpochYear = DefaultEraEpochYear
	}
	return &Extractor{eraEpoch: opts.EraEpochYear}
}

var defaultExtractor = NewExtractor(Options{})

// Extract runs the default extractor.
func Extract(text string, now time.Time) []entity.ExtractedDate {
	return defaultExtractor.Extract(text, now)
}

// Extract returns every valid date found in text, newest first, one entry per
// calendar date. now anchors year-less dates.
func (x *Extractor) Extract(text string, now time.Time) []entity.ExtractedDate {
	var found []entity.ExtractedDate

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		context := truncateRunes(strings.TrimSpace(line), maxContextRunes)
		// Full-width digits and punctuation (２０２６／２／４) match as ASCII.
		line = width.Fold.String(line)

		var claimed [][2]int
		for _, p := range patterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(line, -1) {
				start, end := m[0], m[1]
				if !isBoundary(line, start, end, p.kind) {
					continue
				}
				if !p.full && overlaps(claimed, start, end) {
					continue
				}
				groups := submatches(line, m)
				date, ok := x.resolve(p.kind, groups, now)
				if p.full {
					// The span is a date expression even when it fails validation,
					// so year-less patterns must not reinterpret its tail.
					claimed = append(claimed, [2]int{start, end})
				}
				if !ok {
					continue
				}
				found = append(found, entity.ExtractedDate{Date: date, Context: context})
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Date.After(found[j].Date)
	})

	out := make([]entity.ExtractedDate, 0, len(found))
	seen := make(map[time.Time]struct{}, len(found))
	for _, d := range found {
		if _, dup := seen[d.Date]; dup {
			continue
		}
		seen[d.Date] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (x *Extractor) resolve(kind patternKind, g []string, now time.Time) (time.Time, bool) {
	var year, month, day int
	switch kind {
	case kindYMD:
		year, month, day = atoi(g[0]), atoi(g[1]), atoi(g[2])
	case kindMonthNameDY:
		month, day, year = monthFromName(g[0]), atoi(g[1]), atoi(g[2])
	case kindDMonthNameY:
		day, month, year = atoi(g[0]), monthFromName(g[1]), atoi(g[2])
	case kindEra:
		eraYear := 1
		if g[0] != "元" {
			eraYear = atoi(g[0])
		}
		if eraYear < 1 {
			return time.Time{}, false
		}
		year = x.eraEpoch + eraYear - 1
		month, day = atoi(g[1]), atoi(g[2])
	case kindMD:
		month, day = atoi(g[0]), atoi(g[1])
		year = now.Year()
		if month < int(now.Month()) {
			year++
		}
	}
	return validDate(year, month, day)
}

// validDate applies the range bounds and rejects impossible days such as 2/30.
func validDate(year, month, day int) (time.Time, bool) {
	if year < MinYear || year > MaxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func isBoundary(line string, start, end int, kind patternKind) bool {
	if start > 0 {
		prev := line[start-1]
		if isDigit(prev) {
			return false
		}
		if kind == kindEra && isASCIILetter(prev) {
			return false
		}
		if kind == kindMD && (prev == '/' || prev == '.') {
			return false
		}
	}
	if end < len(line) {
		next := line[end]
		if isDigit(next) {
			return false
		}
		if kind == kindMD && (next == '/' || next == '.') {
			return false
		}
	}
	return true
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

func submatches(line string, m []int) []string {
	groups := make([]string, 0, len(m)/2-1)
	for i := 2; i+1 < len(m); i += 2 {
		if m[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, line[m[i]:m[i+1]])
	}
	return groups
}

func monthFromName(name string) int {
	if len(name) < 3 {
		return 0
	}
	return int(monthByPrefix[strings.ToLower(name[:3])])
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isASCIILetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
