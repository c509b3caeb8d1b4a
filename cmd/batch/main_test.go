package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/user/activity-monitor/internal/adapter/sqlite"
	"github.com/user/activity-monitor/internal/entity"
	"github.com/user/activity-monitor/internal/report"
	"github.com/user/activity-monitor/internal/usecase"
	"github.com/user/activity-monitor/pkg/config"
)

const seedJSON = `[
  {"facility_id": "hub", "name": "Hub Tokyo", "url": "https://hub.invalid/", "prefecture": "東京都"},
  {"name": "No Site Lab", "url": ""},
  {"facility_id": "gone", "name": "Gone Space", "url": "https://gone.invalid/"}
]`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facilities.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0o644); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}
	return path
}

func TestSeedAndFacilityRefs(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	n, err := seedFacilities(ctx, store, writeSeed(t))
	if err != nil {
		t.Fatalf("seedFacilities failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 facilities, got %d", n)
	}
	if err := store.UpdateStatus(ctx, "gone", entity.StatusNew, entity.StatusClosed, nil, "moved out"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	refs, err := facilityRefs(ctx, store, 0)
	if err != nil {
		t.Fatalf("facilityRefs failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected closed facility to be left out, got %+v", refs)
	}
	for _, r := range refs {
		if r.ID == "gone" {
			t.Error("closed facility should not be checked")
		}
		if r.Name == "No Site Lab" && r.ID != usecase.FacilityID(entity.FacilityRef{URL: ""}) {
			t.Errorf("expected derived id for facility without id, got %q", r.ID)
		}
	}

	limited, _ := facilityRefs(ctx, store, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d refs", len(limited))
	}
}

func TestSeedFacilities_BadFile(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	if _, err := seedFacilities(context.Background(), store, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)
	if _, err := seedFacilities(context.Background(), store, bad); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// Without a browser every facility ends up unknown, and the run still
// writes a complete report.
func TestRun_WithoutBrowser(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "report.json")

	cfg := &config.Config{
		StoreDriver:      "sqlite",
		SQLitePath:       filepath.Join(dir, "activity.db"),
		ChromePath:       filepath.Join(dir, "no-chrome"),
		ThresholdDays:    60,
		CheckWorkers:     2,
		MaxInternalPages: 3,
		MaxExternalPages: 2,
	}

	err := run(context.Background(), cfg, zap.NewNop(), options{output: out, seed: writeSeed(t)})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var a report.Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if a.Summary.TotalFacilities != 3 || a.Summary.Unknown != 3 {
		t.Errorf("unexpected summary %+v", a.Summary)
	}
	if len(a.Facilities) != 3 || len(a.Events) != 0 {
		t.Errorf("expected 3 facilities and no events, got %d and %d", len(a.Facilities), len(a.Events))
	}
}

func TestSeedFacilities_NormalizesURL(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	path := filepath.Join(t.TempDir(), "facilities.json")
	seed := `[{"name": "Hub", "url": "Hub.Example.com"}, {"name": "Hub", "url": "https://hub.example.com/#access"}]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := seedFacilities(ctx, store, path); err != nil {
		t.Fatalf("seedFacilities failed: %v", err)
	}

	list, err := store.ListFacilities(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected both spellings to map to one facility, got %d", len(list))
	}
	want := usecase.FacilityID(entity.FacilityRef{URL: "https://hub.example.com/"})
	if list[0].ID != want || list[0].Website != "https://hub.example.com/" {
		t.Errorf("got id %q website %q, want id %q", list[0].ID, list[0].Website, want)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`[{"name": "Broken", "url": "https://"}]`), 0o644)
	if _, err := seedFacilities(ctx, store, bad); err == nil {
		t.Error("expected an error for a url without host")
	}
}
