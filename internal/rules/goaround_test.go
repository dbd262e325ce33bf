package rules

import (
	"context"
	"testing"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

// approachPoints places a sequence of altitudes on final east of Ben Gurion,
// one point per minute.
func approachPoints(altsFt []float64, distancesNM []float64) []track.Point {
	llbgLat, llbgLon := 32.0114, 34.8867
	points := make([]track.Point, 0, len(altsFt))
	for i, alt := range altsFt {
		lat, lon := geodesy.Destination(llbgLat, llbgLon, 90, distancesNM[i])
		points = append(points, track.Point{
			Timestamp: int64(i) * 60,
			Lat:       lat,
			Lon:       lon,
			Alt:       alt,
		})
	}
	return points
}

func TestGoAroundDetected(t *testing.T) {
	rule := &GoAroundRule{}

	// Descent to 800 ft on approach, then a 2,200 ft climb back out.
	points := approachPoints(
		[]float64{3000, 1500, 800, 2200, 3000},
		[]float64{4, 3, 2, 3, 4},
	)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("aborted landing not matched: %q", res.Summary)
	}
	details, ok := res.Details.(GoAroundDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if len(details.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(details.Events))
	}
	ev := details.Events[0]
	if ev.Airport != "LLBG" {
		t.Errorf("airport = %q", ev.Airport)
	}
	if ev.MinAltFt != 800 {
		t.Errorf("low point = %.0f ft", ev.MinAltFt)
	}
	if ev.RecoveredFt < 1000 {
		t.Errorf("recovered = %.0f ft, want at least the recovery threshold", ev.RecoveredFt)
	}
}

func TestGoAroundIgnoresCompletedLanding(t *testing.T) {
	rule := &GoAroundRule{}

	points := approachPoints(
		[]float64{3000, 1500, 800, 400, 140},
		[]float64{4, 3, 2, 1, 0.2},
	)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("normal landing matched: %q", res.Summary)
	}
	if res.Summary != "No go-around patterns" {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestGoAroundIgnoresHighPass(t *testing.T) {
	rule := &GoAroundRule{}

	// Never descends below ~2,500 ft AGL: an overflight, not an approach.
	points := approachPoints(
		[]float64{5000, 3500, 2700, 3500, 5000},
		[]float64{4, 3, 2, 3, 4},
	)
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("high pass matched: %q", res.Summary)
	}
}
