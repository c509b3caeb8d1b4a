package utils

import "testing"

func TestEventID(t *testing.T) {
	a := EventID("connpass", "12345")
	if len(a) != 16 {
		t.Fatalf("expected 16 characters, got %d (%s)", len(a), a)
	}
	if a != EventID("connpass", "12345") {
		t.Error("EventID must be deterministic")
	}
	if a == EventID("peatix", "12345") {
		t.Error("different sources must not collide")
	}
}

func TestNormalizeFacilityURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://Hub.Example.com", "https://hub.example.com/", false},
		{" hub.example.com/news#top ", "https://hub.example.com/news", false},
		{"http://hub.example.com/a?b=1", "http://hub.example.com/a?b=1", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeFacilityURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeFacilityURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeFacilityURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
