package rules

import (
	"context"
	"fmt"

	"github.com/yegors/skywatch/internal/geodesy"
)

// ReturnToFieldRule detects a takeoff followed by a prompt landing back at
// the departure airport, after a genuine outbound leg.
type ReturnToFieldRule struct{}

func (r *ReturnToFieldRule) ID() int      { return 7 }
func (r *ReturnToFieldRule) Name() string { return "Takeoff and return" }

// ReturnDetails describes the detected return-to-field.
type ReturnDetails struct {
	Airport             string  `json:"airport,omitempty"`
	TakeoffTS           int64   `json:"takeoff_ts,omitempty"`
	LandingTS           int64   `json:"landing_ts,omitempty"`
	ElapsedSec          int64   `json:"elapsed_s,omitempty"`
	MaxOutboundNM       float64 `json:"max_outbound_nm,omitempty"`
	StartToEndDistNM    float64 `json:"start_to_end_distance_nm,omitempty"`
	FirstPointAltFt     float64 `json:"first_point_alt_ft,omitempty"`
	OriginElevationFt   float64 `json:"origin_elev_ft,omitempty"`
}

func (r *ReturnToFieldRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.ReturnToField
	points := rc.Points
	if len(points) < 4 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Insufficient points"}
	}

	origin, originDist, ok := rc.nearestAirport(points[0])
	if !ok || originDist > cfg.NearAirportNM {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Origin airport unknown"}
	}

	originElev := origin.ElevationFt

	// A flight entering the coverage box at cruise is not a ground departure.
	firstAlt := points[0].Alt
	if firstAlt > originElev+10 {
		return Result{
			RuleID:  r.ID(),
			Matched: false,
			Summary: fmt.Sprintf("First point at %.0f ft - not a ground departure", firstAlt),
			Details: ReturnDetails{FirstPointAltFt: firstAlt, OriginElevationFt: originElev},
		}
	}

	takeoffIdx := -1
	for i, p := range points {
		if p.Alt >= originElev+cfg.TakeoffAltFt {
			takeoffIdx = i
			break
		}
	}
	if takeoffIdx < 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Flight never departed"}
	}
	takeoff := points[takeoffIdx]

	// The aircraft must actually leave before a return counts.
	maxOutboundNM := 0.0
	for _, p := range points {
		if p.Timestamp < takeoff.Timestamp {
			continue
		}
		if d := geodesy.HaversineNM(p.Lat, p.Lon, origin.Lat, origin.Lon); d > maxOutboundNM {
			maxOutboundNM = d
		}
	}
	if maxOutboundNM < cfg.MinOutboundNM {
		return Result{
			RuleID:  r.ID(),
			Matched: false,
			Summary: "No meaningful outbound leg",
			Details: ReturnDetails{MaxOutboundNM: maxOutboundNM},
		}
	}

	first := points[0]
	for i, point := range points {
		if rc.impossible(i) {
			continue
		}
		if point.Timestamp <= takeoff.Timestamp {
			continue
		}
		distHome := geodesy.HaversineNM(point.Lat, point.Lon, origin.Lat, origin.Lon)

		if point.Alt < originElev+cfg.LandingAltFt && distHome <= cfg.NearAirportNM {
			dt := point.Timestamp - takeoff.Timestamp
			if dt <= int64(cfg.TimeLimitSeconds) && dt >= int64(cfg.MinElapsedSeconds) {
				// Ending far from the start means the flight relocated, not
				// returned.
				startToEnd := geodesy.HaversineNM(first.Lat, first.Lon, point.Lat, point.Lon)
				if startToEnd >= 8.0 {
					continue
				}
				return Result{
					RuleID:  r.ID(),
					Matched: true,
					Summary: "Return-to-field detected",
					Details: ReturnDetails{
						Airport:          origin.Code,
						TakeoffTS:        takeoff.Timestamp,
						LandingTS:        point.Timestamp,
						ElapsedSec:       dt,
						MaxOutboundNM:    maxOutboundNM,
						StartToEndDistNM: startToEnd,
					},
				}
			}
		}
	}
	return Result{RuleID: r.ID(), Matched: false, Summary: "No immediate return detected"}
}
