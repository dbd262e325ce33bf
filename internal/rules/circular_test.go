package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

// loopTrack departs Ben Gurion from the surface, climbs out, and returns to
// within 1 NM of the field after ~17 minutes.
func loopTrack() []track.Point {
	llbgLat, llbgLon := 32.0114, 34.8867
	p1Lat, p1Lon := geodesy.Destination(llbgLat, llbgLon, 90, 8)
	p2Lat, p2Lon := geodesy.Destination(p1Lat, p1Lon, 0, 5)
	p3Lat, p3Lon := geodesy.Destination(llbgLat, llbgLon, 90, 1)
	return []track.Point{
		{Timestamp: 0, Lat: llbgLat, Lon: llbgLon, Alt: 135},
		{Timestamp: 300, Lat: p1Lat, Lon: p1Lon, Alt: 6000},
		{Timestamp: 600, Lat: p2Lat, Lon: p2Lon, Alt: 6000},
		{Timestamp: 1000, Lat: p3Lat, Lon: p3Lon, Alt: 500},
	}
}

func TestCircularFlightDetected(t *testing.T) {
	rule := &CircularFlightRule{}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: loopTrack()}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("closed loop not matched: %q", res.Summary)
	}
	if !strings.Contains(res.Summary, "Circular flight detected") {
		t.Errorf("summary = %q", res.Summary)
	}
	details, ok := res.Details.(CircularDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if !details.GroundDeparture {
		t.Error("ground departure not recorded")
	}
	if details.ClosureNM > 5 {
		t.Errorf("closure = %.1f NM", details.ClosureNM)
	}
	if details.DurationSec != 1000 {
		t.Errorf("duration = %d", details.DurationSec)
	}
	if details.PointsAboveMin != 2 {
		t.Errorf("points above minimum altitude = %d, want 2", details.PointsAboveMin)
	}
}

func TestCircularFlightExcludesCommercial(t *testing.T) {
	rule := &CircularFlightRule{}
	meta := &track.FlightMetadata{Category: "passenger"}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: loopTrack()}, meta, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Error("passenger flight matched")
	}
	if !strings.Contains(res.Summary, "Commercial category") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestCircularFlightRequiresGroundDeparture(t *testing.T) {
	rule := &CircularFlightRule{}
	points := loopTrack()
	points[0].Alt = 20000
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Error("mid-air track start matched")
	}
	if !strings.Contains(res.Summary, "ground departure") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestCircularFlightTooShort(t *testing.T) {
	rule := &CircularFlightRule{}
	points := loopTrack()
	for i := range points {
		points[i].Timestamp /= 2
	}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Error("8-minute loop matched against a 15-minute floor")
	}
}
