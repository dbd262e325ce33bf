package rules

import (
	"context"
	"math"

	"github.com/yegors/skywatch/internal/geodesy"
)

// ProximityRule flags dangerous proximity to other flights: pairs of points
// within the distance/altitude thresholds at nearly the same instant. Needs a
// repository to see other flights; skips cleanly without one.
type ProximityRule struct{}

func (r *ProximityRule) ID() int      { return 4 }
func (r *ProximityRule) Name() string { return "Dangerous proximity" }

// ProximityEvent is one close encounter with another flight.
type ProximityEvent struct {
	Timestamp      int64   `json:"timestamp"`
	OtherFlight    string  `json:"other_flight"`
	OtherCallsign  string  `json:"other_callsign,omitempty"`
	DistanceNM     float64 `json:"distance_nm"`
	AltitudeDiffFt float64 `json:"altitude_diff_ft"`
}

// ProximityDetails lists the close encounters.
type ProximityDetails struct {
	Events []ProximityEvent `json:"events"`
}

func (r *ProximityRule) Evaluate(ctx context.Context, rc *Context) Result {
	points := rc.Points
	if len(points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}
	if rc.Repo == nil {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Skipped: no flight database available"}
	}

	cfg := rc.Cfg.Rules.Proximity
	window := int64(cfg.TimeWindowSeconds)
	start := points[0].Timestamp - window
	end := points[len(points)-1].Timestamp + window

	all, err := rc.Repo.FetchPointsBetween(ctx, start, end)
	if err != nil {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Skipped: repository error"}
	}

	nearby := all[:0:0]
	for _, p := range all {
		if p.FlightID != rc.Track.FlightID {
			nearby = append(nearby, p)
		}
	}

	var events []ProximityEvent
	for i, point := range points {
		if rc.impossible(i) {
			continue
		}
		if point.Alt < 100 {
			continue
		}

		// Converging traffic near airports is the normal pattern, not an
		// anomaly.
		if cfg.AirportExclusionNM > 0 {
			if _, dist, ok := rc.nearestAirport(point); ok && dist <= cfg.AirportExclusionNM {
				continue
			}
		}

		for _, other := range nearby {
			// Strict time sync between the two samples.
			if abs64(other.Timestamp-point.Timestamp) > 5 {
				continue
			}
			// Both aircraft well airborne, away from ground clutter.
			if point.Alt < 5000 || other.Alt < 5000 {
				continue
			}

			dist := geodesy.HaversineNM(point.Lat, point.Lon, other.Lat, other.Lon)
			altDiff := math.Abs(point.Alt - other.Alt)

			if dist <= cfg.DistanceNM && altDiff <= cfg.AltitudeFt {
				events = append(events, ProximityEvent{
					Timestamp:      point.Timestamp,
					OtherFlight:    other.FlightID,
					OtherCallsign:  svalue(other.Callsign),
					DistanceNM:     dist,
					AltitudeDiffFt: altDiff,
				})
				break
			}
		}
	}

	matched := len(events) > 0
	summary := "No proximity conflicts"
	if matched {
		summary = "Proximity alert triggered"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: ProximityDetails{Events: events}}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
