package rules

import (
	"context"
	"testing"

	"github.com/yegors/skywatch/internal/track"
)

func TestAltitudeChangeNominal(t *testing.T) {
	rule := &AltitudeChangeRule{}
	points := cruisePoints(8, 31.95, 34.25, 90, 450, 35000, 30, 0)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("level cruise matched: %q", res.Summary)
	}
	if res.Summary != "Altitude profile nominal" {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestAltitudeChangeDetected(t *testing.T) {
	rule := &AltitudeChangeRule{}

	// 3,500 ft lost in a single 30-second step at cruise: ~117 ft/s, fast
	// enough to flag but slow enough to be physically real.
	points := cruisePoints(6, 31.95, 34.25, 90, 450, 35000, 30, 0)
	for i := 3; i < len(points); i++ {
		points[i].Alt = 31500
	}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("rapid altitude change not matched: %q", res.Summary)
	}
	details, ok := res.Details.(AltitudeDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if len(details.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(details.Events))
	}
	ev := details.Events[0]
	if ev.DeltaFt != -3500 {
		t.Errorf("delta = %.0f, want -3500", ev.DeltaFt)
	}
	if ev.RateFtS > 0 {
		t.Errorf("descent rate should be negative, got %.1f", ev.RateFtS)
	}
}

func TestAltitudeChangeIgnoresSensorDropout(t *testing.T) {
	rule := &AltitudeChangeRule{}

	// Cruise collapsing to near zero and snapping back is a feed artifact,
	// not a 35,000 ft dive.
	points := cruisePoints(6, 31.95, 34.25, 90, 450, 35000, 30, 0)
	points[2].Alt = 400
	points[3].Alt = 400
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("sensor dropout burst matched: %q", res.Summary)
	}
}
