package scorer

import (
	"testing"

	"github.com/user/activity-monitor/internal/entity"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		event entity.EventRecord
		want  int
	}{
		{
			name:  "startup pitch contest clamps to max",
			event: entity.EventRecord{Title: "startup pitch contest", ParticipantsLimit: 30, Fee: "free"},
			want:  150,
		},
		{
			name:  "exclusion keyword",
			event: entity.EventRecord{Title: "beginner programming casual coding meetup"},
			want:  0,
		},
		{
			name:  "exclusion beats strong signals",
			event: entity.EventRecord{Title: "ピッチ交流会", Description: "終了後はもくもく会", ParticipantsLimit: 20, Fee: "無料"},
			want:  0,
		},
		{
			name: "online subsidy seminar",
			// seminar 50 + 補助金 10 + capacity 15 + free 5
			event: entity.EventRecord{Title: "補助金セミナー", Description: "オンライン開催", IsOnline: true, ParticipantsLimit: 50, Fee: "無料"},
			want:  80,
		},
		{
			name: "online webinar without other types",
			// online 30, no bonuses
			event: entity.EventRecord{Title: "Zoom Q&A", IsOnline: true},
			want:  30,
		},
		{
			name: "other offline large paid",
			// other 40 + capacity 5 + offline 20
			event: entity.EventRecord{Title: "Open house", ParticipantsLimit: 300, Fee: "1000円"},
			want:  65,
		},
		{
			name: "keyword bonus capped",
			// networking 90 + cap 30 + offline 20 = 140, limit 5 gives no capacity bonus
			event: entity.EventRecord{Title: "networking meetup for startup founders", Description: "funding and grant talk", ParticipantsLimit: 5},
			want:  140,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(&tt.event); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore_AlwaysInRange(t *testing.T) {
	s := New(Config{
		TypeScores:      map[string]int{TypeOther: 400},
		KeywordBonus:    10,
		KeywordBonusCap: 30,
		OfflineBonus:    20,
	})
	if got := s.Score(&entity.EventRecord{Title: "x"}); got != MaxScore {
		t.Errorf("expected clamp to %d, got %d", MaxScore, got)
	}

	neg := New(Config{TypeScores: map[string]int{TypeOther: -50}})
	if got := neg.Score(&entity.EventRecord{Title: "x", IsOnline: true}); got != 0 {
		t.Errorf("expected clamp to 0, got %d", got)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		title  string
		online bool
		want   string
	}{
		{"Demo Day 2026", false, TypePitch},
		{"ピッチと交流会", false, TypePitch},
		{"異業種交流 night", false, TypeNetworking},
		{"Hands-on workshop", false, TypeWorkshop},
		{"勉強会", false, TypeSeminar},
		{"online webinar", true, TypeSeminar},
		{"Zoom office hours", true, TypeOnline},
		{"Zoom office hours", false, TypeOther},
		{"Open house", false, TypeOther},
	}
	for _, tt := range tests {
		e := &entity.EventRecord{Title: tt.title, IsOnline: tt.online}
		if got := DetectType(e); got != tt.want {
			t.Errorf("DetectType(%q, online=%v) = %s, want %s", tt.title, tt.online, got, tt.want)
		}
	}
}

func TestIsFree(t *testing.T) {
	for _, fee := range []string{"free", "Free entry", "無料", "0", "0円", "¥0", " 0 "} {
		if !IsFree(fee) {
			t.Errorf("IsFree(%q) = false, want true", fee)
		}
	}
	for _, fee := range []string{"", "paid", "500円", "10", "¥1000"} {
		if IsFree(fee) {
			t.Errorf("IsFree(%q) = true, want false", fee)
		}
	}
}

func TestLabel(t *testing.T) {
	tests := map[int]string{150: "top", 100: "top", 99: "high", 80: "high", 50: "medium", 30: "low", 29: "none", 0: "none"}
	for score, want := range tests {
		if got := Label(score); got != want {
			t.Errorf("Label(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestRank(t *testing.T) {
	s := New(DefaultConfig())
	events := []*entity.EventRecord{
		{ID: "low", Title: "Open house", IsOnline: true},
		{ID: "top", Title: "Pitch night", ParticipantsLimit: 30},
		{ID: "zero", Title: "読書会"},
		{ID: "mid", Title: "Seminar"},
	}

	ranked := s.Rank(events)

	want := []string{"top", "mid", "low", "zero"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("ranked[%d] = %s, want %s", i, ranked[i].ID, id)
		}
	}
	if ranked[0].PriorityScore == 0 {
		t.Error("Rank should store the computed score")
	}
	if !s.ShouldAttend(ranked[0], 50) || s.ShouldAttend(ranked[3], 1) {
		t.Error("ShouldAttend disagrees with the scores")
	}
}
