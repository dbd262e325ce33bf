package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yegors/skywatch/internal/airports"
	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/pkg/logger"
)

const testCatalogJSON = `[
  {"id": 1, "name": "Emergency squawk", "definition": "Emergency transponder code", "severity": "high", "category": "distress"},
  {"id": 13, "name": "Military aircraft", "definition": "Military identification", "severity": "medium", "category": "identity"}
]`

// fakeSource wraps the in-memory repository with a metadata map so it
// satisfies TrackSource.
type fakeSource struct {
	*track.MemoryRepository
	meta map[string]*track.FlightMetadata
}

func (s *fakeSource) FetchMetadata(_ context.Context, flightID string) (*track.FlightMetadata, error) {
	return s.meta[flightID], nil
}

// fakeSink records saved reports and counts calls so tests can tell a cache
// hit from a re-evaluation.
type fakeSink struct {
	mu      sync.Mutex
	reports map[string]*rules.Report
	saves   int
	gets    int
}

func newFakeSink() *fakeSink {
	return &fakeSink{reports: make(map[string]*rules.Report)}
}

func (s *fakeSink) Save(_ context.Context, report *rules.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.FlightID] = report
	s.saves++
	return nil
}

func (s *fakeSink) Get(_ context.Context, flightID string) (*rules.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	return s.reports[flightID], nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return log
}

func testCfg(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Server.Port = 8080
	c.Logging.Level = "error"
	c.Logging.Format = "console"
	c.Storage.SQLitePath = "unused.db"
	c.Airports.Curated = []config.CuratedAirport{
		{Code: "LLBG", Name: "Ben Gurion Intl", Lat: 32.0114, Lon: 34.8867, ElevationFt: 135},
		{Code: "OLBA", Name: "Beirut Rafic Hariri Intl", Lat: 33.8209, Lon: 35.4884, ElevationFt: 87},
	}
	c.Gateway.ExcludedPrefixes = []string{"4XC", "HMR"}
	catalogPath := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalogJSON), 0644); err != nil {
		t.Fatal(err)
	}
	c.Rules.CatalogPath = catalogPath
	c.Rules.AltitudeChange = config.AltitudeChangeConfig{DeltaFt: 3000, WindowSeconds: 60, MinCruiseFt: 10000}
	c.Rules.AbruptTurn = config.AbruptTurnConfig{HeadingChangeDeg: 40, WindowSeconds: 30, MinSpeedKts: 100}
	c.Rules.Proximity = config.ProximityConfig{DistanceNM: 2, AltitudeFt: 1000, TimeWindowSeconds: 60, AirportExclusionNM: 2}
	c.Rules.GoAround = config.GoAroundConfig{RadiusNM: 10, MinLowAltFt: 1500, RecoveryFt: 1000}
	c.Rules.ReturnToField = config.ReturnToFieldConfig{TimeLimitSeconds: 1800, NearAirportNM: 5, TakeoffAltFt: 500, LandingAltFt: 300, MinOutboundNM: 5, MinElapsedSeconds: 300}
	c.Rules.Diversion = config.DiversionConfig{NearAirportNM: 10}
	c.Rules.LowAltitude = config.LowAltitudeConfig{ThresholdFt: 800, AirportRadiusNM: 10}
	c.Rules.SignalLoss = config.SignalLossConfig{GapSeconds: 60, RepeatCount: 3}
	c.Rules.UnplannedLand = config.UnplannedLandConfig{NearAirportNM: 10}
	c.Rules.Circular = config.CircularConfig{MinDurationSeconds: 900, MaxClosureNM: 5}
	c.Rules.DistanceTrend = config.DistanceTrendConfig{CheckWindowSeconds: 300, SampleIntervalSeconds: 10, MinIncreasingRatio: 0.8, MinCruiseAltFt: 18000, PostLandingMinDistNM: 20}
	c.PathLearning.PathsFile = filepath.Join(t.TempDir(), "paths.json")
	if err := c.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return c
}

func testMonitor(t *testing.T) (*Monitor, *fakeSource, *fakeSink) {
	t.Helper()
	cfg := testCfg(t)
	log := testLogger(t)

	curated := make([]airports.Airport, 0, len(cfg.Airports.Curated))
	for _, a := range cfg.Airports.Curated {
		curated = append(curated, airports.Airport{
			Code: a.Code, Name: a.Name, Lat: a.Lat, Lon: a.Lon, ElevationFt: a.ElevationFt,
		})
	}
	airportStore, err := airports.NewStore(curated, "", "", cfg.Airports.FallbackRadiusNM, log)
	if err != nil {
		t.Fatalf("creating airport store: %v", err)
	}

	pathLibrary, err := paths.NewStore(paths.Config{
		PathsFile:              cfg.PathLearning.PathsFile,
		NumSamples:             cfg.PathLearning.NumSamples,
		DefaultWidthNM:         cfg.PathLearning.DefaultWidthNM,
		MinWidthNM:             cfg.PathLearning.MinWidthNM,
		MinTubeMembers:         cfg.PathLearning.MinTubeMembers,
		TubeLateralToleranceNM: cfg.PathLearning.TubeLateralToleranceNM,
		TubeAltToleranceFt:     cfg.PathLearning.TubeAltToleranceFt,
		TurnZoneToleranceNM:    cfg.PathLearning.TurnZoneToleranceNM,
		SIDSTARToleranceNM:     cfg.PathLearning.SIDSTARToleranceNM,
		SIDSTARDefaultWidthNM:  cfg.PathLearning.SIDSTARDefaultWidthNM,
		EmergingBucketSize:     cfg.PathLearning.EmergingBucketSize,
		EmergingSimilarityDeg:  cfg.PathLearning.EmergingSimilarityDeg,
		EmergingBinSeconds:     cfg.PathLearning.EmergingBinSeconds,
	}, log)
	if err != nil {
		t.Fatalf("creating path library: %v", err)
	}

	source := &fakeSource{
		MemoryRepository: track.NewMemoryRepository(),
		meta:             make(map[string]*track.FlightMetadata),
	}
	engine, err := rules.NewEngine(cfg, airportStore, pathLibrary, source, log)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	sink := newFakeSink()
	mon, err := New(cfg, engine, source, sink, nil, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mon, source, sink
}

// cruiseTrack builds a plausible constant-heading cruise well above the
// gateway altitude, anchored at recent timestamps.
func cruiseTrack(flightID string, n int, startTS int64) *track.FlightTrack {
	lat, lon := 31.95, 34.25
	speed, heading := 300.0, 90.0
	stepNM := speed * 10 / 3600.0

	points := make([]track.Point, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, track.Point{
			FlightID:  flightID,
			Timestamp: startTS + int64(i)*10,
			Lat:       lat,
			Lon:       lon,
			Alt:       20000,
			GSpeed:    &speed,
			Track:     &heading,
		})
		lat, lon = geodesy.Destination(lat, lon, heading, stepNM)
	}
	return &track.FlightTrack{FlightID: flightID, Points: points}
}

func TestEvaluateFlightCachesReport(t *testing.T) {
	mon, source, sink := testMonitor(t)
	startTS := time.Now().Add(-5 * time.Minute).Unix()
	source.Put(cruiseTrack("f1", 10, startTS))

	report, err := mon.EvaluateFlight(context.Background(), "f1")
	if err != nil {
		t.Fatalf("EvaluateFlight: %v", err)
	}
	if report.FlightID != "f1" {
		t.Errorf("flight id = %q", report.FlightID)
	}
	if report.TotalRules != 2 {
		t.Errorf("total rules = %d, want 2", report.TotalRules)
	}
	if sink.saves != 1 {
		t.Fatalf("saves = %d, want 1", sink.saves)
	}

	// The second read must come from the cache, not a re-evaluation.
	again, err := mon.EvaluateFlight(context.Background(), "f1")
	if err != nil {
		t.Fatalf("second EvaluateFlight: %v", err)
	}
	if again != report {
		t.Error("second read did not hit the cache")
	}
	if sink.saves != 1 {
		t.Errorf("saves = %d after cached read, want 1", sink.saves)
	}
}

func TestEvaluateFlightUnknownFlight(t *testing.T) {
	mon, _, _ := testMonitor(t)
	if _, err := mon.EvaluateFlight(context.Background(), "missing"); err == nil {
		t.Error("unknown flight should be an error")
	}
}

func TestEvaluateSubmittedPersistsAndCaches(t *testing.T) {
	mon, _, sink := testMonitor(t)
	ft := cruiseTrack("adhoc1", 10, time.Now().Add(-5*time.Minute).Unix())

	report, err := mon.EvaluateSubmitted(context.Background(), ft, nil)
	if err != nil {
		t.Fatalf("EvaluateSubmitted: %v", err)
	}
	if sink.saves != 1 {
		t.Errorf("saves = %d, want 1", sink.saves)
	}

	cached, found, err := mon.CachedReport(context.Background(), "adhoc1")
	if err != nil {
		t.Fatalf("CachedReport: %v", err)
	}
	if !found || cached != report {
		t.Error("submitted report not served from the cache")
	}
	if sink.gets != 0 {
		t.Errorf("gets = %d, cache hit should not touch storage", sink.gets)
	}
}

func TestCachedReportFallsBackToStorage(t *testing.T) {
	mon, _, sink := testMonitor(t)
	stored := &rules.Report{FlightID: "stored1", GeneratedAt: time.Now().UTC()}
	sink.reports["stored1"] = stored

	report, found, err := mon.CachedReport(context.Background(), "stored1")
	if err != nil {
		t.Fatalf("CachedReport: %v", err)
	}
	if !found || report != stored {
		t.Fatal("stored report not returned")
	}
	if sink.gets != 1 {
		t.Errorf("gets = %d, want 1", sink.gets)
	}

	// Once loaded it stays in the cache.
	if _, _, err := mon.CachedReport(context.Background(), "stored1"); err != nil {
		t.Fatalf("second CachedReport: %v", err)
	}
	if sink.gets != 1 {
		t.Errorf("gets = %d after cached read, want 1", sink.gets)
	}

	_, found, err = mon.CachedReport(context.Background(), "absent")
	if err != nil {
		t.Fatalf("CachedReport for absent flight: %v", err)
	}
	if found {
		t.Error("absent flight reported as found")
	}
}

func TestEvaluateRecentSweepsAllFlights(t *testing.T) {
	mon, source, sink := testMonitor(t)
	startTS := time.Now().Add(-5 * time.Minute).Unix()
	source.Put(cruiseTrack("f1", 10, startTS))
	source.Put(cruiseTrack("f2", 10, startTS))
	source.meta["f2"] = &track.FlightMetadata{Callsign: "ELY321", Category: "passenger"}

	count, err := mon.EvaluateRecent(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("EvaluateRecent: %v", err)
	}
	if count != 2 {
		t.Errorf("evaluated %d flights, want 2", count)
	}
	if sink.saves != 2 {
		t.Errorf("saves = %d, want 2", sink.saves)
	}
	for _, id := range []string{"f1", "f2"} {
		if sink.reports[id] == nil {
			t.Errorf("no report saved for %s", id)
		}
	}

	// A cutoff in the future matches nothing.
	count, err = mon.EvaluateRecent(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("EvaluateRecent with future cutoff: %v", err)
	}
	if count != 0 {
		t.Errorf("evaluated %d flights past the cutoff, want 0", count)
	}
}

func TestMaxSeverity(t *testing.T) {
	cases := []struct {
		name string
		evs  []rules.Evaluation
		want string
	}{
		{"no matches", []rules.Evaluation{{Severity: "high"}}, ""},
		{"single match", []rules.Evaluation{{Matched: true, Severity: "medium"}}, "medium"},
		{"highest wins", []rules.Evaluation{
			{Matched: true, Severity: "low"},
			{Matched: true, Severity: "critical"},
			{Matched: true, Severity: "medium"},
		}, "critical"},
		{"unmatched ignored", []rules.Evaluation{
			{Severity: "critical"},
			{Matched: true, Severity: "low"},
		}, "low"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := maxSeverity(&rules.Report{Evaluations: tc.evs})
			if got != tc.want {
				t.Errorf("maxSeverity = %q, want %q", got, tc.want)
			}
		})
	}
}
