package rules

import (
	"context"
	"testing"

	"github.com/yegors/skywatch/internal/track"
)

func TestEmergencySquawk(t *testing.T) {
	rule := &EmergencySquawkRule{}

	points := cruisePoints(8, 31.95, 34.25, 90, 300, 20000, 10, 0)
	points[2].Squawk = sp("7700")
	points[3].Squawk = sp("7700")
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatal("7700 transmission not matched")
	}
	if res.Summary != "Emergency code transmitted" {
		t.Errorf("summary = %q", res.Summary)
	}
	details, ok := res.Details.(SquawkDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if len(details.Events) != 2 {
		t.Errorf("got %d events, want 2", len(details.Events))
	}
	if details.Events[0].Squawk != "7700" {
		t.Errorf("event squawk = %q", details.Events[0].Squawk)
	}
}

func TestEmergencySquawkClean(t *testing.T) {
	rule := &EmergencySquawkRule{}

	points := cruisePoints(8, 31.95, 34.25, 90, 300, 20000, 10, 0)
	points[2].Squawk = sp("2000")
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Error("routine squawk code matched")
	}
}
