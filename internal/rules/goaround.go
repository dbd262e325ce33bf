package rules

import (
	"context"
	"math"
	"sort"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

// GoAroundRule detects aborted landings: a descent to a low runway-aligned
// point near an airport followed by a climb exceeding the recovery threshold.
type GoAroundRule struct{}

func (r *GoAroundRule) ID() int      { return 6 }
func (r *GoAroundRule) Name() string { return "Go-around" }

// GoAroundEvent is one detected go-around at an airport.
type GoAroundEvent struct {
	Airport           string  `json:"airport"`
	Timestamp         int64   `json:"timestamp"`
	MinAltFt          float64 `json:"min_alt_ft"`
	RecoveredFt       float64 `json:"recovered_ft"`
	DescentIntoLowFt  float64 `json:"descent_into_low_ft"`
	AlignedWithRunway bool    `json:"aligned_with_runway"`
}

// GoAroundDetails lists the go-around events.
type GoAroundDetails struct {
	Events []GoAroundEvent `json:"events"`
}

func (r *GoAroundRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.GoAround
	allPoints := rc.Points
	var events []GoAroundEvent

	// Vertical moves above this are data errors, not flying.
	const maxVerticalFtS = 200.0
	const lowAltBufferFt = 150.0

	for _, airport := range rc.Airports.Curated() {
		var segments []track.Point
		segIdx := make(map[int64]int) // timestamp -> index into allPoints
		for i, p := range allPoints {
			if geodesy.HaversineNM(p.Lat, p.Lon, airport.Lat, airport.Lon) <= cfg.RadiusNM {
				segments = append(segments, p)
				segIdx[p.Timestamp] = i
			}
		}
		if len(segments) < 3 {
			continue
		}

		byTime := append([]track.Point(nil), segments...)
		sort.SliceStable(byTime, func(a, b int) bool { return byTime[a].Timestamp < byTime[b].Timestamp })
		byAlt := append([]track.Point(nil), segments...)
		sort.SliceStable(byAlt, func(a, b int) bool { return byAlt[a].Alt < byAlt[b].Alt })

		elevation := airport.ElevationFt

		// Lowest plausible point with a real descent before it and a real
		// climb after it.
		for _, candidate := range byAlt {
			if fullIdx, ok := segIdx[candidate.Timestamp]; ok && rc.impossible(fullIdx) {
				continue
			}

			idx := sort.Search(len(byTime), func(k int) bool { return byTime[k].Timestamp >= candidate.Timestamp })
			if idx >= len(byTime) || byTime[idx].Timestamp != candidate.Timestamp {
				continue
			}

			isGlitch := false
			if idx > 0 {
				prev := byTime[idx-1]
				dt := candidate.Timestamp - prev.Timestamp
				if dt > 0 && math.Abs(candidate.Alt-prev.Alt)/float64(dt) > maxVerticalFtS {
					isGlitch = true
				}
			}
			if !isGlitch && idx < len(byTime)-1 {
				next := byTime[idx+1]
				dt := next.Timestamp - candidate.Timestamp
				if dt > 0 && math.Abs(next.Alt-candidate.Alt)/float64(dt) > maxVerticalFtS {
					isGlitch = true
				}
			}
			if isGlitch {
				continue
			}

			agl := candidate.Alt - elevation
			if agl < -200 {
				continue // below the field, data error
			}
			if agl > cfg.MinLowAltFt+lowAltBufferFt {
				continue
			}

			// Airports missing from the runway table never block detection.
			if rc.Airports.RunwayHeadings(airport.Code) != nil {
				if candidate.Track == nil ||
					!rc.Airports.IsRunwayAligned(airport.Code, *candidate.Track, 30.0, candidate.Time()) {
					continue
				}
			}

			// Descent into the low point.
			descent := math.Inf(-1)
			hasBefore := false
			for _, p := range segments {
				if p.Timestamp < candidate.Timestamp {
					hasBefore = true
					if p.Alt-candidate.Alt > descent {
						descent = p.Alt - candidate.Alt
					}
				}
			}
			if !hasBefore || descent < 300 {
				continue
			}

			// Climb out of it.
			climb := math.Inf(-1)
			hasAfter := false
			for _, p := range segments {
				if p.Timestamp > candidate.Timestamp {
					hasAfter = true
					if p.Alt-candidate.Alt > climb {
						climb = p.Alt - candidate.Alt
					}
				}
			}
			if !hasAfter || climb < cfg.RecoveryFt {
				continue
			}

			events = append(events, GoAroundEvent{
				Airport:           airport.Code,
				Timestamp:         candidate.Timestamp,
				MinAltFt:          candidate.Alt,
				RecoveredFt:       climb,
				DescentIntoLowFt:  descent,
				AlignedWithRunway: true,
			})
			break // one report per airport
		}
	}

	matched := len(events) > 0
	summary := "No go-around patterns"
	if matched {
		summary = "Go-around detected"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: GoAroundDetails{Events: events}}
}
