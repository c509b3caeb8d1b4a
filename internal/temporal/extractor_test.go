package temporal

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var refNow = time.Date(2026, time.February, 4, 9, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtract_Notations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"kanji separators", "開催日: 2026年2月4日 (水)", day(2026, 2, 4)},
		{"kanji with spaces", "2025年 12月 10日", day(2025, 12, 10)},
		{"slash", "更新 2025/11/1", day(2025, 11, 1)},
		{"dash", "posted 2025-09-30", day(2025, 9, 30)},
		{"dot", "2024.3.15 お知らせ", day(2024, 3, 15)},
		{"english month first", "Demo day on February 14, 2026 at 18:00", day(2026, 2, 14)},
		{"english abbreviated", "Sep 3 2025 meetup", day(2025, 9, 3)},
		{"english day first", "Held 21st March 2025", day(2025, 3, 21)},
		{"era kanji", "令和7年10月1日 セミナー", day(2025, 10, 1)},
		{"era first year", "令和元年5月1日 開所", time.Time{}}, // 2019 is out of range
		{"era short", "R8.2.4 更新", day(2026, 2, 4)},
		{"month day later this year", "3/20 ピッチイベント", day(2026, 3, 20)},
		{"month day already passed", "1月10日 交流会", day(2027, 1, 10)},
		{"month day same month", "2/28 meetup", day(2026, 2, 28)},
		{"full-width kanji separators", "２０２６年２月４日 開催", day(2026, 2, 4)},
		{"full-width era", "令和８年２月４日", day(2026, 2, 4)},
		{"full-width slash", "更新　２０２５／１１／１", day(2025, 11, 1)},
		{"full-width era short", "Ｒ８．２．４", day(2026, 2, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text, refNow)
			if tt.want.IsZero() {
				if len(got) != 0 {
					t.Fatalf("expected no dates, got %v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 date, got %d: %v", len(got), got)
			}
			if !got[0].Date.Equal(tt.want) {
				t.Errorf("got %s, want %s", got[0].Date.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestExtract_RejectsOutOfRange(t *testing.T) {
	text := strings.Join([]string{
		"TEL 0120-123-456",
		"03-1234-5678",
		"established 1998/04/01",
		"2031-01-01 roadmap",
		"2026/13/01",
		"2026/02/30",
		"令和20年1月1日",
		"24/7 support",
	}, "\n")

	got := Extract(text, refNow)
	if len(got) != 0 {
		t.Fatalf("expected no dates, got %v", got)
	}
}

func TestExtract_AllDatesInRange(t *testing.T) {
	text := `
2019/12/31 old
2020/1/1 first
2030/12/31 last
99/99
12/31 year-less
令和3年4月5日
R12.12.12
`
	for _, d := range Extract(text, refNow) {
		y, m, dd := d.Date.Date()
		if y < MinYear || y > MaxYear || m < 1 || m > 12 || dd < 1 || dd > 31 {
			t.Errorf("out of range date %v", d.Date)
		}
	}
}

func TestExtract_FullDateIsNotReparsedAsMonthDay(t *testing.T) {
	got := Extract("2024年3月1日 開催報告", refNow)
	if len(got) != 1 {
		t.Fatalf("expected 1 date, got %v", got)
	}
	if !got[0].Date.Equal(day(2024, 3, 1)) {
		t.Errorf("got %v", got[0].Date)
	}
}

func TestExtract_FullWidthKeepsOriginalContext(t *testing.T) {
	got := Extract("  ２０２６年２月４日　ピッチ大会  ", refNow)
	if len(got) != 1 {
		t.Fatalf("expected 1 date, got %v", got)
	}
	if got[0].Context != "２０２６年２月４日　ピッチ大会" {
		t.Errorf("context = %q", got[0].Context)
	}
}

func TestExtract_DateRange(t *testing.T) {
	got := Extract("会期 2026/2/4-2/6", refNow)
	if len(got) != 2 {
		t.Fatalf("expected both ends of the range, got %v", got)
	}
	if !got[0].Date.Equal(day(2026, 2, 6)) || !got[1].Date.Equal(day(2026, 2, 4)) {
		t.Errorf("unexpected dates %v", got)
	}

	got = Extract("2026年2月4日〜2月6日", refNow)
	if len(got) != 2 {
		t.Errorf("expected both ends of the kanji range, got %v", got)
	}
}

func TestExtract_SortedDescendingAndDeduplicated(t *testing.T) {
	text := "2025/10/01 first\n2026/01/15 second\n2025-10-01 calendar widget\n2026年1月15日 repeat"

	got := Extract(text, refNow)
	if len(got) != 2 {
		t.Fatalf("expected 2 distinct dates, got %d: %v", len(got), got)
	}
	if !got[0].Date.Equal(day(2026, 1, 15)) || !got[1].Date.Equal(day(2025, 10, 1)) {
		t.Fatalf("unexpected order: %v", got)
	}
	if got[0].Context != "2026/01/15 second" {
		t.Errorf("expected first-encountered context, got %q", got[0].Context)
	}
	if got[1].Context != "2025/10/01 first" {
		t.Errorf("expected first-encountered context, got %q", got[1].Context)
	}
}

func TestExtract_ContextTruncated(t *testing.T) {
	line := "2026/01/20 " + strings.Repeat("あ", 200)
	got := Extract(line, refNow)
	if len(got) != 1 {
		t.Fatalf("expected 1 date, got %d", len(got))
	}
	if n := len([]rune(got[0].Context)); n != maxContextRunes {
		t.Errorf("context length = %d runes, want %d", n, maxContextRunes)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := "2026/01/20 a\n3/3 b\n令和7年12月1日 c\nJanuary 5, 2026 d"
	first := Extract(text, refNow)
	second := Extract(text, refNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction is not deterministic:\n%v\n%v", first, second)
	}
}

func TestExtractor_CustomEraEpoch(t *testing.T) {
	x := NewExtractor(Options{EraEpochYear: 2020})
	got := x.Extract("令和6年4月1日", refNow)
	if len(got) != 1 || !got[0].Date.Equal(day(2025, 4, 1)) {
		t.Fatalf("unexpected result %v", got)
	}
}
