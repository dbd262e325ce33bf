package rules

import (
	"path/filepath"
	"testing"

	"github.com/yegors/skywatch/internal/airports"
	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/pkg/logger"
)

func fp(v float64) *float64 { return &v }
func sp(s string) *string   { return &s }

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
		{Code: "LLHA", Name: "Haifa", Lat: 32.8094, Lon: 35.0431, ElevationFt: 28},
		{Code: "OLBA", Name: "Beirut Rafic Hariri Intl", Lat: 33.8209, Lon: 35.4884, ElevationFt: 87},
	}
	c.Gateway.ExcludedPrefixes = []string{"4XC", "4XB", "CHLE", "4XA", "HMR"}
	c.Rules.CatalogPath = "unused.json"
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

func testAirportStore(t *testing.T, cfg *config.Config) *airports.Store {
	t.Helper()
	curated := make([]airports.Airport, 0, len(cfg.Airports.Curated))
	for _, a := range cfg.Airports.Curated {
		curated = append(curated, airports.Airport{
			Code: a.Code, Name: a.Name, Lat: a.Lat, Lon: a.Lon, ElevationFt: a.ElevationFt,
		})
	}
	store, err := airports.NewStore(curated, "", "", cfg.Airports.FallbackRadiusNM, testLogger(t))
	if err != nil {
		t.Fatalf("creating airport store: %v", err)
	}
	return store
}

func testPathLibrary(t *testing.T, cfg *config.Config) *paths.Store {
	t.Helper()
	store, err := paths.NewStore(paths.Config{
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
	}, testLogger(t))
	if err != nil {
		t.Fatalf("creating path library: %v", err)
	}
	return store
}

// testContext assembles an evaluation context the way the engine does.
func testContext(t *testing.T, ft *track.FlightTrack, meta *track.FlightMetadata, repo track.Repository) *Context {
	t.Helper()
	cfg := testCfg(t)
	library := testPathLibrary(t, cfg)
	return &Context{
		Track:    ft,
		Points:   ft.SortedPoints(),
		Metadata: meta,
		Repo:     repo,
		Airports: testAirportStore(t, cfg),
		Paths:    library.Snapshot(),
		Library:  library,
		Cfg:      cfg,
		Limits:   cfg.Physics.Limits(),
		Glitch:   cfg.Physics.GlitchLimits(),
	}
}

// cruisePoints builds a plausible constant-heading cruise segment. startTS is
// in unix seconds; points are spaced dtSec apart.
func cruisePoints(n int, lat, lon, headingDeg, speedKts, altFt float64, dtSec, startTS int64) []track.Point {
	points := make([]track.Point, 0, n)
	stepNM := speedKts * float64(dtSec) / 3600.0
	for i := 0; i < n; i++ {
		points = append(points, track.Point{
			Timestamp: startTS + int64(i)*dtSec,
			Lat:       lat,
			Lon:       lon,
			Alt:       altFt,
			GSpeed:    fp(speedKts),
			Track:     fp(headingDeg),
		})
		lat, lon = geodesy.Destination(lat, lon, headingDeg, stepNM)
	}
	return points
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int{1, 2, 3, 4, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 20} {
		e, ok := r.Lookup(id)
		if !ok {
			t.Errorf("no evaluator registered for rule %d", id)
			continue
		}
		if e.ID() != id {
			t.Errorf("evaluator for rule %d reports ID %d", id, e.ID())
		}
		if e.Name() == "" {
			t.Errorf("evaluator for rule %d has no name", id)
		}
	}
	if _, ok := r.Lookup(5); ok {
		t.Error("rule 5 should have no evaluator")
	}
}

func TestNotImplemented(t *testing.T) {
	res := NotImplemented(5)
	if res.Matched {
		t.Error("not-implemented result must not match")
	}
	if res.Summary != "Rule not implemented" {
		t.Errorf("summary = %q", res.Summary)
	}
	if res.RuleID != 5 {
		t.Errorf("rule id = %d", res.RuleID)
	}
}

func TestHasPointsAboveAltitude(t *testing.T) {
	low := cruisePoints(10, 32.0, 34.2, 90, 300, 3000, 10, 1000)
	if hasPointsAboveAltitude(low, 5600, 5) {
		t.Error("all-low track reported above threshold")
	}

	high := cruisePoints(10, 32.0, 34.2, 90, 300, 20000, 10, 1000)
	if !hasPointsAboveAltitude(high, 5600, 5) {
		t.Error("cruise track not reported above threshold")
	}

	// Exactly at the boundary: more than minAbove-1 points are required.
	mixed := cruisePoints(10, 32.0, 34.2, 90, 300, 3000, 10, 1000)
	for i := 0; i < 4; i++ {
		mixed[i].Alt = 20000
	}
	if hasPointsAboveAltitude(mixed, 5600, 5) {
		t.Error("4 points above should not satisfy a threshold of 5")
	}
	mixed[4].Alt = 20000
	if !hasPointsAboveAltitude(mixed, 5600, 5) {
		t.Error("5 points above should satisfy a threshold of 5")
	}
}

func TestExcludedCallsign(t *testing.T) {
	points := cruisePoints(5, 32.0, 34.2, 90, 300, 20000, 10, 1000)
	if cs := excludedCallsign(points, []string{"4XC", "HMR"}); cs != "" {
		t.Errorf("no-callsign track excluded as %q", cs)
	}

	points[2].Callsign = sp(" 4xc123 ")
	if cs := excludedCallsign(points, []string{"4XC", "HMR"}); cs != "4XC123" {
		t.Errorf("excluded callsign = %q, want 4XC123", cs)
	}

	points[2].Callsign = sp("ELY321")
	if cs := excludedCallsign(points, []string{"4XC", "HMR"}); cs != "" {
		t.Errorf("airline callsign excluded as %q", cs)
	}
}
