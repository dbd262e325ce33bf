package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/yegors/skywatch/internal/track"
)

func TestMilitaryFromMetadataCallsign(t *testing.T) {
	rule := &MilitaryRule{}
	points := cruisePoints(5, 31.95, 34.25, 90, 300, 20000, 10, 0)
	meta := &track.FlightMetadata{Callsign: "IAF123"}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, meta, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("IAF callsign not matched: %q", res.Summary)
	}
	if !strings.HasPrefix(res.Summary, "Military aircraft detected:") {
		t.Errorf("summary = %q", res.Summary)
	}
	details, ok := res.Details.(MilitaryDetails)
	if !ok {
		t.Fatalf("details type = %T", res.Details)
	}
	if details.DetectionMethod != "callsign" {
		t.Errorf("detection method = %q", details.DetectionMethod)
	}
	if details.Organization == "" {
		t.Error("organization not reported")
	}
}

func TestMilitaryFromTrackCallsign(t *testing.T) {
	rule := &MilitaryRule{}
	points := cruisePoints(5, 31.95, 34.25, 90, 300, 20000, 10, 0)
	points[1].Callsign = sp("RCH471")
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, nil, nil)

	res := rule.Evaluate(context.Background(), rc)
	if !res.Matched {
		t.Fatalf("RCH callsign from track points not matched: %q", res.Summary)
	}
	details := res.Details.(MilitaryDetails)
	if details.Callsign != "RCH471" {
		t.Errorf("callsign = %q", details.Callsign)
	}
}

func TestMilitaryCivilianFlight(t *testing.T) {
	rule := &MilitaryRule{}
	points := cruisePoints(5, 31.95, 34.25, 90, 300, 20000, 10, 0)
	meta := &track.FlightMetadata{Callsign: "ELY321", Category: "passenger"}
	rc := testContext(t, &track.FlightTrack{FlightID: "f1", Points: points}, meta, nil)

	res := rule.Evaluate(context.Background(), rc)
	if res.Matched {
		t.Errorf("airline flight matched: %q", res.Summary)
	}
	if res.Summary != "No military identification" {
		t.Errorf("summary = %q", res.Summary)
	}
}
