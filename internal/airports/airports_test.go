package airports

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yegors/skywatch/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return log
}

func testCurated() []Airport {
	return []Airport{
		{Code: "LLBG", Name: "Ben Gurion Intl", Lat: 32.0114, Lon: 34.8867, ElevationFt: 135},
		{Code: "LLHA", Name: "Haifa", Lat: 32.8094, Lon: 35.0431, ElevationFt: 28},
		{Code: "OLBA", Name: "Beirut Rafic Hariri Intl", Lat: 33.8209, Lon: 35.4884, ElevationFt: 87},
	}
}

func TestByCode(t *testing.T) {
	store, err := NewStore(testCurated(), "", "", 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	a, ok := store.ByCode("LLBG")
	if !ok || a.Name != "Ben Gurion Intl" {
		t.Errorf("ByCode(LLBG) = %+v, %v", a, ok)
	}
	if _, ok := store.ByCode(" llbg "); !ok {
		t.Error("ByCode should be case-insensitive and trim spaces")
	}
	if _, ok := store.ByCode("ZZZZ"); ok {
		t.Error("ByCode(ZZZZ) should not resolve")
	}
	if _, ok := store.ByCode(""); ok {
		t.Error("empty code should not resolve")
	}
}

func TestNearest(t *testing.T) {
	store, err := NewStore(testCurated(), "", "", 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// Just off the Tel Aviv coast: Ben Gurion is closest.
	a, dist, ok := store.Nearest(32.05, 34.75)
	if !ok {
		t.Fatal("Nearest returned no airport")
	}
	if a.Code != "LLBG" {
		t.Errorf("nearest = %s, want LLBG", a.Code)
	}
	if dist <= 0 || dist > 20 {
		t.Errorf("distance = %.2f NM, want a small positive value", dist)
	}

	// Cached cell: asking again returns the same airport.
	b, _, _ := store.Nearest(32.05, 34.75)
	if b.Code != a.Code {
		t.Errorf("cached nearest = %s, want %s", b.Code, a.Code)
	}

	empty, err := NewStore(nil, "", "", 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, _, ok := empty.Nearest(32.0, 34.9); ok {
		t.Error("store with no airports should return ok=false")
	}
}

func TestRunwayHeadings(t *testing.T) {
	dir := t.TempDir()
	runwaysPath := filepath.Join(dir, "runways.json")
	if err := os.WriteFile(runwaysPath, []byte(`{"LLBG": [76, 256]}`), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(testCurated(), "", runwaysPath, 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	headings := store.RunwayHeadings("llbg")
	if len(headings) != 2 || headings[0] != 76 || headings[1] != 256 {
		t.Errorf("RunwayHeadings(llbg) = %v, want [76 256]", headings)
	}
	if store.RunwayHeadings("LLHA") != nil {
		t.Error("airport without runway table should return nil")
	}
}

func TestIsRunwayAligned(t *testing.T) {
	dir := t.TempDir()
	runwaysPath := filepath.Join(dir, "runways.json")
	if err := os.WriteFile(runwaysPath, []byte(`{"LLBG": [76, 256]}`), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(testCurated(), "", runwaysPath, 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// Magnetic declination around Tel Aviv is ~5 degrees east, so a true
	// track near the magnetic heading stays inside a 30-degree tolerance.
	if !store.IsRunwayAligned("LLBG", 80.0, 30.0, now) {
		t.Error("track 080 should align with runway 076 within 30 degrees")
	}
	if store.IsRunwayAligned("LLBG", 170.0, 30.0, now) {
		t.Error("track 170 should not align with runways 076/256")
	}

	// No runway table for the airport: alignment checks never block.
	if !store.IsRunwayAligned("LLHA", 170.0, 30.0, now) {
		t.Error("airport without runway table should always pass")
	}
}

func TestTrueRunwayHeadings(t *testing.T) {
	dir := t.TempDir()
	runwaysPath := filepath.Join(dir, "runways.json")
	if err := os.WriteFile(runwaysPath, []byte(`{"LLBG": [76, 256]}`), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(testCurated(), "", runwaysPath, 30.0, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	trueHeadings := store.TrueRunwayHeadings("LLBG", now)
	if len(trueHeadings) != 2 {
		t.Fatalf("TrueRunwayHeadings = %v, want 2 entries", trueHeadings)
	}
	for _, h := range trueHeadings {
		if h < 0 || h >= 360 {
			t.Errorf("heading %.2f outside [0, 360)", h)
		}
	}
	if store.TrueRunwayHeadings("LLHA", now) != nil {
		t.Error("airport without runway table should return nil")
	}
}
