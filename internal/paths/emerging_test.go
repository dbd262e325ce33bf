package paths

import (
	"fmt"
	"os"
	"testing"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

func fp(v float64) *float64 { return &v }

// eastboundPoints builds an eastbound point sequence with the reported track
// set, spaced 10 seconds apart.
func eastboundPoints(n int, lat, lon float64) []track.Point {
	points := make([]track.Point, 0, n)
	for i := 0; i < n; i++ {
		points = append(points, track.Point{
			Timestamp: int64(i) * 10,
			Lat:       lat,
			Lon:       lon,
			Alt:       20000,
			Track:     fp(90.0),
		})
		lat, lon = geodesy.Destination(lat, lon, 90.0, 0.8)
	}
	return points
}

func TestHeadingSignature(t *testing.T) {
	points := eastboundPoints(12, 32.0, 34.0)

	sig := HeadingSignature(points, 10, 30)
	if len(sig) == 0 {
		t.Fatal("signature is empty")
	}
	// Constant heading 090 quantized into 30-degree bins is always bucket 3.
	for i, b := range sig {
		if b != 3 {
			t.Errorf("bucket %d = %d, want 3", i, b)
		}
	}

	// Same geometry always produces the same signature.
	again := HeadingSignature(points, 10, 30)
	if len(again) != len(sig) {
		t.Fatalf("signature not deterministic: %v vs %v", sig, again)
	}
	for i := range sig {
		if sig[i] != again[i] {
			t.Fatalf("signature not deterministic: %v vs %v", sig, again)
		}
	}

	if HeadingSignature(nil, 10, 30) != nil {
		t.Error("empty input should yield nil signature")
	}
	if HeadingSignature(points, 0, 30) != nil {
		t.Error("non-positive bin duration should yield nil signature")
	}
}

func TestResample(t *testing.T) {
	points := eastboundPoints(10, 32.0, 34.0)

	centerline := Resample(points, 20)
	if len(centerline) != 20 {
		t.Fatalf("resampled length = %d, want 20", len(centerline))
	}
	if centerline[0] != points[0].Position() {
		t.Errorf("first sample %v, want track start %v", centerline[0], points[0].Position())
	}
	last := points[len(points)-1].Position()
	if geodesy.DistanceNM(centerline[19], last) > 0.01 {
		t.Errorf("last sample %v, want track end %v", centerline[19], last)
	}

	// Roughly uniform spacing along a straight track.
	first := geodesy.DistanceNM(centerline[0], centerline[1])
	mid := geodesy.DistanceNM(centerline[9], centerline[10])
	if first <= 0 || mid <= 0 || mid/first > 1.5 || first/mid > 1.5 {
		t.Errorf("spacing not uniform: first=%.3f mid=%.3f", first, mid)
	}

	if Resample(points[:1], 20) != nil {
		t.Error("single-point input should yield nil")
	}
	// Zero-length track.
	static := []track.Point{
		{Timestamp: 0, Lat: 32.0, Lon: 34.0},
		{Timestamp: 10, Lat: 32.0, Lon: 34.0},
	}
	if Resample(static, 20) != nil {
		t.Error("zero-length track should yield nil")
	}
}

func TestRecordOffPathPromotion(t *testing.T) {
	cfg := testConfig(t) // bucket size 3
	store, err := NewStore(cfg, testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var promoted *Path
	for i := 0; i < cfg.EmergingBucketSize; i++ {
		ft := &track.FlightTrack{
			FlightID: fmt.Sprintf("f%d", i),
			Points:   eastboundPoints(12, 32.0, 34.0),
		}
		promoted, err = store.RecordOffPath(ft, ft.Points)
		if err != nil {
			t.Fatalf("RecordOffPath: %v", err)
		}
		if i < cfg.EmergingBucketSize-1 && promoted != nil {
			t.Fatalf("flight %d promoted early", i)
		}
	}

	if promoted == nil {
		t.Fatal("bucket reached size without promotion")
	}
	if promoted.Type != PathTypeEmerging {
		t.Errorf("promoted type = %q, want %q", promoted.Type, PathTypeEmerging)
	}
	if len(promoted.Centerline) != cfg.NumSamples {
		t.Errorf("centerline has %d samples, want %d", len(promoted.Centerline), cfg.NumSamples)
	}
	if promoted.WidthNM < cfg.MinWidthNM {
		t.Errorf("width %.2f below the configured floor %.2f", promoted.WidthNM, cfg.MinWidthNM)
	}

	// The promoted path shows up in fresh snapshots and the bucket is gone.
	snap := store.Snapshot()
	found := false
	for _, p := range snap.Paths {
		if p.ID == promoted.ID {
			found = true
		}
	}
	if !found {
		t.Error("promoted path missing from snapshot")
	}

	// The library document was persisted.
	if _, err := os.Stat(cfg.PathsFile); err != nil {
		t.Errorf("library file not written: %v", err)
	}
}

func TestRecordOffPathNoPoints(t *testing.T) {
	store, err := NewStore(testConfig(t), testLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	promoted, err := store.RecordOffPath(&track.FlightTrack{FlightID: "f"}, nil)
	if err != nil || promoted != nil {
		t.Errorf("RecordOffPath with no points = %v, %v", promoted, err)
	}
}
