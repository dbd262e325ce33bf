package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/yegors/skywatch/internal/geodesy"
)

// DiversionRule compares where the flight ended against its planned
// destination. Ending away from any known airport is itself a match.
type DiversionRule struct{}

func (r *DiversionRule) ID() int      { return 8 }
func (r *DiversionRule) Name() string { return "Diversion" }

// DiversionDetails names the planned and actual airports.
type DiversionDetails struct {
	Planned             string  `json:"planned,omitempty"`
	Actual              string  `json:"actual,omitempty"`
	DistanceNM          float64 `json:"distance_nm,omitempty"`
	DistanceToAirportNM float64 `json:"distance_to_airport_nm,omitempty"`
}

func (r *DiversionRule) Evaluate(_ context.Context, rc *Context) Result {
	if rc.Metadata == nil || rc.Metadata.Destination == "" {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No planned destination provided"}
	}

	planned, ok := rc.Airports.ByCode(strings.ToUpper(rc.Metadata.Destination))
	if !ok {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Planned destination not in airport list"}
	}

	if len(rc.Points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}
	last := rc.Points[len(rc.Points)-1]

	actual, actualDist, found := rc.nearestAirport(last)
	if !found || actualDist > rc.Cfg.Rules.Diversion.NearAirportNM {
		return Result{
			RuleID:  r.ID(),
			Matched: true,
			Summary: "Flight ended away from any known airport",
			Details: DiversionDetails{DistanceToAirportNM: actualDist},
		}
	}

	matched := actual.Code != planned.Code
	summary := "Flight landed at planned destination"
	if matched {
		summary = "Flight diverted to alternate airport"
	}
	return Result{
		RuleID:  r.ID(),
		Matched: matched,
		Summary: summary,
		Details: DiversionDetails{Planned: planned.Code, Actual: actual.Code, DistanceNM: actualDist},
	}
}

// UnplannedLandingRule flags a landing at any airport other than the planned
// destination. Unlike the diversion rule it only fires when the flight
// demonstrably ended at a known airport.
type UnplannedLandingRule struct{}

func (r *UnplannedLandingRule) ID() int      { return 12 }
func (r *UnplannedLandingRule) Name() string { return "Unplanned landing" }

// UnplannedLandingDetails names the planned and actual landing airports.
type UnplannedLandingDetails struct {
	Planned    string  `json:"planned"`
	Actual     string  `json:"actual"`
	DistanceNM float64 `json:"distance_nm"`
	Type       string  `json:"type,omitempty"`
}

func (r *UnplannedLandingRule) Evaluate(_ context.Context, rc *Context) Result {
	if rc.Metadata == nil || rc.Metadata.Destination == "" {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Missing planned destination"}
	}
	planned := strings.ToUpper(rc.Metadata.Destination)

	if len(rc.Points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}
	last := rc.Points[len(rc.Points)-1]

	actual, actualDist, found := rc.nearestAirport(last)
	if !found || actualDist > rc.Cfg.Rules.UnplannedLand.NearAirportNM {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Flight did not land at a known airport"}
	}

	if planned != actual.Code {
		return Result{
			RuleID:  r.ID(),
			Matched: true,
			Summary: fmt.Sprintf("Flight landed at %s instead of planned %s", actual.Code, planned),
			Details: UnplannedLandingDetails{
				Planned:    planned,
				Actual:     actual.Code,
				DistanceNM: actualDist,
				Type:       "wrong_landing_airport",
			},
		}
	}

	return Result{
		RuleID:  r.ID(),
		Matched: false,
		Summary: "Flight landed at planned destination",
		Details: UnplannedLandingDetails{Planned: planned, Actual: actual.Code, DistanceNM: actualDist},
	}
}

// DistanceTrendRule detects diversions by watching the distance to the
// planned destination. Mode A flags a sustained window of increasing distance
// at cruise; mode B is a post-landing backup that flags touchdown far from
// the destination when the flight did not simply return to its origin.
type DistanceTrendRule struct{}

func (r *DistanceTrendRule) ID() int      { return 15 }
func (r *DistanceTrendRule) Name() string { return "Distance trend diversion" }

// DistanceTrendDetails describes which detection mode fired and its samples.
type DistanceTrendDetails struct {
	DestinationCode     string  `json:"destination_code,omitempty"`
	OriginCode          string  `json:"origin_code,omitempty"`
	PassedCruiseAlt     bool    `json:"passed_cruise_alt"`
	TrendDetected       bool    `json:"trend_detected"`
	PostLandingDetected bool    `json:"post_landing_detected"`
	TrendStartTS        int64   `json:"trend_start_ts,omitempty"`
	TrendEndTS          int64   `json:"trend_end_ts,omitempty"`
	IncreasingSamples   int     `json:"increasing_samples,omitempty"`
	TotalSamples        int     `json:"total_samples,omitempty"`
	FinalDistanceNM     float64 `json:"final_distance_nm,omitempty"`
	LandedAtOrigin      bool    `json:"landed_at_origin,omitempty"`
}

func (r *DistanceTrendRule) Evaluate(_ context.Context, rc *Context) Result {
	points := rc.Points
	if len(points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}
	if rc.Metadata == nil {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No metadata available"}
	}

	cfg := rc.Cfg.Rules.DistanceTrend
	origin := rc.Metadata.Origin
	destination := rc.Metadata.Destination

	dest, ok := rc.Airports.ByCode(strings.ToUpper(destination))
	if destination == "" || !ok {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Destination coordinates not available"}
	}

	// Below cruise the aircraft is maneuvering toward a runway; distancing
	// there is expected.
	passedCruise := false
	for _, p := range points {
		if p.Alt >= cfg.MinCruiseAltFt {
			passedCruise = true
			break
		}
	}

	details := DistanceTrendDetails{
		DestinationCode: destination,
		OriginCode:      origin,
		PassedCruiseAlt: passedCruise,
	}

	// Mode A: sliding window of distance samples, flag when nearly all
	// consecutive samples increase.
	if passedCruise {
		for i := range points {
			p := points[i]
			if rc.impossible(i) {
				continue
			}
			if p.Alt < cfg.MinCruiseAltFt {
				continue
			}

			windowEnd := p.Timestamp + int64(cfg.CheckWindowSeconds)
			type sample struct {
				ts   int64
				dist float64
			}
			var samples []sample
			for j := i; j < len(points); j++ {
				if points[j].Timestamp > windowEnd {
					break
				}
				if rc.impossible(j) {
					continue
				}
				if points[j].Alt < cfg.MinCruiseAltFt {
					continue
				}
				if len(samples) == 0 || points[j].Timestamp-samples[len(samples)-1].ts >= int64(cfg.SampleIntervalSeconds) {
					d := geodesy.HaversineNM(points[j].Lat, points[j].Lon, dest.Lat, dest.Lon)
					samples = append(samples, sample{ts: points[j].Timestamp, dist: d})
				}
			}

			if len(samples) >= 3 {
				increasing := 0
				for k := 1; k < len(samples); k++ {
					if samples[k].dist > samples[k-1].dist {
						increasing++
					}
				}
				if float64(increasing)/float64(len(samples)-1) >= cfg.MinIncreasingRatio {
					details.TrendDetected = true
					details.TrendStartTS = samples[0].ts
					details.TrendEndTS = samples[len(samples)-1].ts
					details.IncreasingSamples = increasing
					details.TotalSamples = len(samples) - 1
					break
				}
			}
		}
	}

	// Mode B: landed far from the destination, and not back at the origin.
	last := points[len(points)-1]
	speed := 999.0
	if last.GSpeed != nil {
		speed = *last.GSpeed
	}
	isLanded := speed < 30 || last.Alt < 1000

	if isLanded {
		finalDist := geodesy.HaversineNM(last.Lat, last.Lon, dest.Lat, dest.Lon)
		details.FinalDistanceNM = finalDist

		if origin != "" {
			if originAirport, found := rc.Airports.ByCode(strings.ToUpper(origin)); found {
				distToOrigin := geodesy.HaversineNM(last.Lat, last.Lon, originAirport.Lat, originAirport.Lon)
				if distToOrigin < 10.0 {
					details.LandedAtOrigin = true
				}
			}
		}

		if finalDist > cfg.PostLandingMinDistNM && !details.LandedAtOrigin {
			details.PostLandingDetected = true
		}
	}

	matched := details.TrendDetected || details.PostLandingDetected
	var summary string
	switch {
	case !matched:
		summary = "No diversion detected"
	case details.TrendDetected && details.PostLandingDetected:
		summary = fmt.Sprintf("Diversion detected: consistent distancing trend and landed %.1f NM from destination", details.FinalDistanceNM)
	case details.TrendDetected:
		summary = fmt.Sprintf("Diversion detected: consistent distancing trend (%d/%d samples increasing)", details.IncreasingSamples, details.TotalSamples)
	default:
		summary = fmt.Sprintf("Diversion detected: landed %.1f NM from planned destination", details.FinalDistanceNM)
	}

	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: details}
}
