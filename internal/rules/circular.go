package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yegors/skywatch/internal/geodesy"
)

// CircularFlightRule flags flights that depart from the ground, stay up for a
// sustained period, and come back to where they started without a commercial
// reason to. Passenger and cargo operations are excluded up front since
// out-and-back rotations are their normal business.
type CircularFlightRule struct{}

func (r *CircularFlightRule) ID() int      { return 14 }
func (r *CircularFlightRule) Name() string { return "Circular flight" }

// CircularDetails records the closure geometry of the loop.
type CircularDetails struct {
	Category        string  `json:"category,omitempty"`
	DurationSec     int64   `json:"duration_sec"`
	DurationMin     float64 `json:"duration_min"`
	ClosureNM       float64 `json:"closure_nm"`
	ValidPoints     int     `json:"valid_points"`
	MaxAltFt        float64 `json:"max_alt_ft"`
	PointsAboveMin  int     `json:"points_above_min"`
	StartLat        float64 `json:"start_lat"`
	StartLon        float64 `json:"start_lon"`
	EndLat          float64 `json:"end_lat"`
	EndLon          float64 `json:"end_lon"`
	GroundDeparture bool    `json:"ground_departure"`
}

func (r *CircularFlightRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.Circular
	points := rc.Points
	if len(points) < 4 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Insufficient track data"}
	}

	var category string
	if rc.Metadata != nil {
		category = rc.Metadata.Category
	}
	lower := strings.ToLower(category)
	if strings.Contains(lower, "passenger") || strings.Contains(lower, "cargo") {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Commercial category (%s) - circular patterns are routine", category)}
	}

	first := points[0]
	last := points[len(points)-1]

	// Only flights observed from the ground up qualify; a track that starts
	// mid-air tells us nothing about where the flight actually began.
	groundDeparture := false
	if ap, dist, ok := rc.nearestAirport(first); ok && dist <= 10 {
		if first.Alt <= ap.ElevationFt+10 {
			groundDeparture = true
		}
	} else if first.Alt <= 1000 {
		groundDeparture = true
	}
	if !groundDeparture {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Track does not start from a ground departure"}
	}

	duration := last.Timestamp - first.Timestamp
	if duration < int64(cfg.MinDurationSeconds) {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Flight too short (%d s) for a circular pattern", duration)}
	}

	closure := geodesy.HaversineNM(first.Lat, first.Lon, last.Lat, last.Lon)
	if closure >= cfg.MaxClosureNM {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Flight ended %.1f NM from its start - not circular", closure)}
	}

	validPoints := 0
	pointsAbove := 0
	maxAlt := 0.0
	for i, p := range points {
		if rc.impossible(i) {
			continue
		}
		validPoints++
		if p.Alt > maxAlt {
			maxAlt = p.Alt
		}
		if p.Alt > cfg.MinAltitudeFt {
			pointsAbove++
		}
	}
	if pointsAbove == 0 {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Flight never exceeded %.0f ft - likely pattern work", cfg.MinAltitudeFt)}
	}

	details := CircularDetails{
		Category:        category,
		DurationSec:     duration,
		DurationMin:     float64(duration) / 60.0,
		ClosureNM:       closure,
		ValidPoints:     validPoints,
		MaxAltFt:        maxAlt,
		PointsAboveMin:  pointsAbove,
		StartLat:        first.Lat,
		StartLon:        first.Lon,
		EndLat:          last.Lat,
		EndLon:          last.Lon,
		GroundDeparture: groundDeparture,
	}
	return Result{
		RuleID:  r.ID(),
		Matched: true,
		Summary: fmt.Sprintf("Circular flight detected: %.0f min aloft, returned within %.1f NM of departure", details.DurationMin, closure),
		Details: details,
	}
}
