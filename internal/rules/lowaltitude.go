package rules

import (
	"context"

	"github.com/yegors/skywatch/internal/geodesy"
)

// LowAltitudeRule flags flight below the minimum safe altitude outside
// protected airport zones. The bulk of the logic excludes the legitimate
// reasons to be low: climb-out, just-departed, and inbound approach geometry.
type LowAltitudeRule struct{}

func (r *LowAltitudeRule) ID() int      { return 9 }
func (r *LowAltitudeRule) Name() string { return "Low altitude" }

// LowAltitudeEvent is one confirmed low-altitude excursion.
type LowAltitudeEvent struct {
	Timestamp           int64   `json:"timestamp"`
	AltFt               float64 `json:"alt_ft"`
	SpeedKts            float64 `json:"speed_kts"`
	DistanceToAirportNM float64 `json:"distance_to_airport_nm"`
	VSpeedFpm           float64 `json:"vspeed_fpm"`
}

// LowAltitudeDetails lists confirmed excursions.
type LowAltitudeDetails struct {
	Events []LowAltitudeEvent `json:"events"`
}

func (r *LowAltitudeRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.LowAltitude
	points := rc.Points
	var events []LowAltitudeEvent

	var lastAlt float64
	var lastTS int64
	haveLast := false

	for i, p := range points {
		alt := p.Alt
		speed := fvalue(p.GSpeed)
		vs := fvalue(p.VSpeed)

		nearest, dist, hasAirport := rc.nearestAirport(p)

		record := func() {
			lastAlt = alt
			lastTS = p.Timestamp
			haveLast = true
		}

		// Corrupted points never trigger anomalies.
		if rc.impossible(i) {
			record()
			continue
		}

		// Climbing at more than 300 fpm is a normal ascent.
		if vs > 300 {
			record()
			continue
		}
		// Within a minute of being on the ground: still departing.
		if haveLast && lastAlt < 50 && p.Timestamp-lastTS < 60 {
			record()
			continue
		}
		// Climbing within 25 NM of an airport.
		if hasAirport && dist < 25 && vs > 0 {
			record()
			continue
		}

		// Hard sanity: near-zero altitudes far from any runway are data
		// errors, as is low altitude at jet speed.
		if alt < 200 && (!hasAirport || dist > 15) {
			record()
			continue
		}
		if alt < 800 && speed > 200 && (!hasAirport || dist > 10) {
			record()
			continue
		}
		if haveLast {
			dt := p.Timestamp - lastTS
			rate := 0.0
			if dt > 0 {
				rate = (lastAlt - alt) / float64(dt)
			}
			if rate > 100 && (!hasAirport || dist > 10) {
				record()
				continue
			}
		}

		if alt < cfg.ThresholdFt {
			// Single-point flicker with immediate recovery.
			if i+1 < len(points) && points[i+1].Alt >= cfg.ThresholdFt {
				record()
				continue
			}
			if hasAirport && dist <= cfg.AirportRadiusNM {
				record()
				continue
			}

			// Approach pattern: descending roughly toward an airport within
			// 40 NM at plausible approach speed.
			if hasAirport && dist <= 40 && vs < 0 && p.Track != nil {
				bearingToAirport := geodesy.InitialBearing(p.Lat, p.Lon, nearest.Lat, nearest.Lon)
				if geodesy.AngularDiff(bearingToAirport, *p.Track) <= 45 {
					descentConfirmed := false
					if i >= 1 && points[i-1].Alt > alt {
						descentConfirmed = true
					}
					if i > 0 {
						prevDist := geodesy.HaversineNM(points[i-1].Lat, points[i-1].Lon, nearest.Lat, nearest.Lon)
						if dist < prevDist {
							descentConfirmed = true
						}
					}
					if speed >= 90 && speed <= 200 && descentConfirmed {
						record()
						continue
					}
				}
			}

			events = append(events, LowAltitudeEvent{
				Timestamp:           p.Timestamp,
				AltFt:               alt,
				SpeedKts:            speed,
				DistanceToAirportNM: dist,
				VSpeedFpm:           vs,
			})
		}

		record()
	}

	matched := len(events) > 0
	summary := "Altitude remained above minima"
	if matched {
		summary = "Low altitude detected outside protected zones"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: LowAltitudeDetails{Events: events}}
}
