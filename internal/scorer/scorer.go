// Package scorer rates how worthwhile an event is to attend, on a 0-150 scale.
package scorer

import (
	"sort"
	"strings"

	"github.com/user/activity-monitor/internal/entity"
)

// MaxScore is the upper bound of every score.
const MaxScore = 150

// Event types, in detection priority order.
const (
	TypePitch      = "pitch"
	TypeNetworking = "networking"
	TypeWorkshop   = "workshop"
	TypeSeminar    = "seminar"
	TypeOnline     = "online"
	TypeOther      = "other"
)

// TypeKeywords is one entry of the ordered type detection table.
type TypeKeywords struct {
	Type     string
	Keywords []string
}

// Config holds the scoring tables. Keywords are matched case-insensitively as
// substrings of title and description.
type Config struct {
	TypeScores      map[string]int
	Types           []TypeKeywords
	HighPriority    []string
	Exclude         []string
	KeywordBonus    int
	KeywordBonusCap int
	OfflineBonus    int
	FreeBonus       int
}

// DefaultConfig returns the standard scoring tables.
func DefaultConfig() Config {
	return Config{
		TypeScores: map[string]int{
			TypePitch:      100,
			TypeNetworking: 90,
			TypeWorkshop:   70,
			TypeSeminar:    50,
			TypeOnline:     30,
			TypeOther:      40,
		},
		Types: []TypeKeywords{
			{TypePitch, []string{"ピッチ", "pitch", "デモデイ", "demo day", "demoday", "発表会", "プレゼン大会"}},
			{TypeNetworking, []string{"交流会", "ネットワーキング", "networking", "懇親会", "ミートアップ", "meetup", "meet up", "名刺交換", "異業種交流", "マッチング"}},
			{TypeWorkshop, []string{"ワークショップ", "workshop", "ハンズオン", "hands-on", "実践", "体験"}},
			{TypeSeminar, []string{"セミナー", "seminar", "講演", "講座", "ウェビナー", "webinar", "勉強会"}},
			{TypeOnline, []string{"オンライン", "online", "ウェビナー", "webinar", "zoom", "teams"}},
		},
		HighPriority: []string{
			"ピッチ", "pitch", "デモデイ", "demo day", "demoday",
			"交流会", "ネットワーキング", "networking", "懇親会",
			"ミートアップ", "meetup", "meet up",
			"起業家", "スタートアップ", "startup", "アントレ", "entrepreneur",
			"補助金", "助成金", "資金調達", "ファンディング", "funding", "grant",
		},
		Exclude: []string{
			"初心者向けプログラミング", "もくもく会", "読書会", "LT大会",
			"beginner programming", "casual coding", "mokumoku", "book club",
		},
		KeywordBonus:    10,
		KeywordBonusCap: 30,
		OfflineBonus:    20,
		FreeBonus:       5,
	}
}

// Scorer is a pure function of its Config.
type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

var defaultScorer = New(DefaultConfig())

// Score rates e with the default tables.
func Score(e *entity.EventRecord) int {
	return defaultScorer.Score(e)
}

// DetectType classifies e with the default tables.
func DetectType(e *entity.EventRecord) string {
	return defaultScorer.DetectType(e)
}

func text(e *entity.EventRecord) string {
	return strings.ToLower(e.Title + " " + e.Description)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Score returns the priority of e in [0, MaxScore]. Any exclusion keyword
// scores 0 regardless of every other signal.
func (s *Scorer) Score(e *entity.EventRecord) int {
	t := text(e)
	if containsAny(t, s.cfg.Exclude) {
		return 0
	}

	score := s.typeScore(s.detect(t, e.IsOnline))

	matched := 0
	seen := make(map[string]bool)
	for _, kw := range s.cfg.HighPriority {
		kw = strings.ToLower(kw)
		if seen[kw] {
			continue
		}
		seen[kw] = true
		if strings.Contains(t, kw) {
			matched++
		}
	}
	score += min(matched*s.cfg.KeywordBonus, s.cfg.KeywordBonusCap)

	score += capacityBonus(e.ParticipantsLimit)

	if !e.IsOnline {
		score += s.cfg.OfflineBonus
	}
	if IsFree(e.Fee) {
		score += s.cfg.FreeBonus
	}

	return max(0, min(score, MaxScore))
}

// DetectType returns the first matching type in table order. The online type
// is only considered for events marked online.
func (s *Scorer) DetectType(e *entity.EventRecord) string {
	return s.detect(text(e), e.IsOnline)
}

func (s *Scorer) detect(t string, online bool) string {
	for _, tk := range s.cfg.Types {
		if tk.Type == TypeOnline && !online {
			continue
		}
		if containsAny(t, tk.Keywords) {
			return tk.Type
		}
	}
	return TypeOther
}

func (s *Scorer) typeScore(typ string) int {
	if v, ok := s.cfg.TypeScores[typ]; ok {
		return v
	}
	return s.cfg.TypeScores[TypeOther]
}

func capacityBonus(limit int) int {
	switch {
	case limit >= 10 && limit <= 50:
		return 15
	case limit > 50 && limit <= 100:
		return 10
	case limit > 100:
		return 5
	}
	return 0
}

// IsFree reports whether a fee string denotes a free event.
func IsFree(fee string) bool {
	f := strings.ToLower(strings.TrimSpace(fee))
	if f == "" {
		return false
	}
	if strings.Contains(f, "free") || strings.Contains(f, "無料") {
		return true
	}
	switch f {
	case "0", "0円", "¥0", "￥0":
		return true
	}
	return false
}

// Label buckets a score for display.
func Label(score int) string {
	switch {
	case score >= 100:
		return "top"
	case score >= 80:
		return "high"
	case score >= 50:
		return "medium"
	case score >= 30:
		return "low"
	}
	return "none"
}

// Rank scores every event in place and sorts them by score, highest first.
// Events with equal scores keep their relative order.
func (s *Scorer) Rank(events []*entity.EventRecord) []*entity.EventRecord {
	for _, e := range events {
		e.PriorityScore = s.Score(e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].PriorityScore > events[j].PriorityScore
	})
	return events
}

// ShouldAttend reports whether e scores at least minScore.
func (s *Scorer) ShouldAttend(e *entity.EventRecord, minScore int) bool {
	return s.Score(e) >= minScore
}
