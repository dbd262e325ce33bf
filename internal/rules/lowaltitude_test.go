package rules

import (
	"context"
	"testing"

	"github.com/yegors/skywatch/internal/track"
)

func TestLowAltitudeDetected(t *testing.T) {
	rule := &LowAltitudeRule{}

	// Level at 500 ft, ~35 NM from the nearest airport, no climb or descent.
	points := cruisePoints(4, 32.0, 34.2, 90, 150, 500, 10, 0)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("sustained low flight not matched: %q", res.Summary)
	}
	details, ok := res.Details.(LowAltitudeDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if len(details.Events) == 0 {
		t.Fatal("matched with no events")
	}
	if details.Events[0].AltFt != 500 {
		t.Errorf("event altitude = %.0f", details.Events[0].AltFt)
	}
}

func TestLowAltitudeNominalCruise(t *testing.T) {
	rule := &LowAltitudeRule{}
	points := cruisePoints(4, 32.0, 34.2, 90, 300, 3000, 10, 0)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("3,000 ft cruise matched: %q", res.Summary)
	}
	if res.Summary != "Altitude remained above minima" {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestLowAltitudeProtectedNearAirport(t *testing.T) {
	rule := &LowAltitudeRule{}

	// 500 ft within 5 NM of Ben Gurion is approach traffic.
	points := cruisePoints(4, 32.0114, 34.79, 90, 150, 500, 10, 0)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("low flight inside the airport radius matched: %q", res.Summary)
	}
}
