package rules

import (
	"context"
	"math"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/physics"
	"github.com/yegors/skywatch/internal/track"
)

// AbruptTurnRule detects abrupt heading changes and holding patterns. Three
// passes: a smoothed single-step scan for one-shot abrupt turns, a signed
// heading accumulation scan for sustained 180/360 patterns, and a geometric
// path-vs-displacement fallback for sparse heading data. Every pass carries
// its own glitch rejection since jammed tracks produce exactly the heading
// chaos this rule looks for.
type AbruptTurnRule struct{}

func (r *AbruptTurnRule) ID() int      { return 3 }
func (r *AbruptTurnRule) Name() string { return "Abrupt turn / holding pattern" }

// Accumulation-scan limits. These encode airframe physics, not tuning:
// no transport aircraft sustains more than ~12 deg/s or accelerates faster
// than 10 kt/s.
const (
	turnMinDurationSec = 45
	turnRateMaxDegS    = 12.0
	turnMinSpeedKts    = 80.0
	turnMinAltFt       = 1500.0
	turnAcc180Deg      = 220.0
	turnAcc360Deg      = 320.0
	turnMaxAccelKtsS   = 10.0
)

// TurnEvent is one abrupt turn or holding pattern occurrence.
type TurnEvent struct {
	Type              string  `json:"type"` // "abrupt_turn" or "holding_pattern"
	Timestamp         int64   `json:"timestamp"`
	StartTS           int64   `json:"start_ts,omitempty"`
	EndTS             int64   `json:"end_ts,omitempty"`
	DurationSec       int64   `json:"duration_s,omitempty"`
	TurnDeg           float64 `json:"turn_deg,omitempty"`
	CumulativeTurnDeg float64 `json:"cumulative_turn_deg,omitempty"`
	Pattern           string  `json:"pattern,omitempty"` // "180_turn", "360_turn", "360_turn_fallback"
	DisplacementNM    float64 `json:"displacement_nm,omitempty"`
	PathNM            float64 `json:"path_nm,omitempty"`
	PathDispRatio     float64 `json:"path_disp_ratio,omitempty"`
}

// TurnDetails lists turn events.
type TurnDetails struct {
	Events []TurnEvent `json:"events"`
}

func (r *AbruptTurnRule) Evaluate(_ context.Context, rc *Context) Result {
	points := rc.Points
	if len(points) < 4 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Not enough datapoints"}
	}

	var events []TurnEvent
	events = append(events, r.scanAbruptSteps(rc)...)
	events = append(events, r.scanHoldingPatterns(rc)...)
	if len(events) == 0 {
		events = r.scanGeometricLoops(rc)
	}

	matched := len(events) > 0
	summary := "Heading profile nominal"
	if matched {
		summary = "Abrupt heading change or holding pattern observed"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: TurnDetails{Events: events}}
}

// scanAbruptSteps finds single-step heading changes above the configured
// threshold, using a 3-point moving average to suppress jitter.
func (r *AbruptTurnRule) scanAbruptSteps(rc *Context) []TurnEvent {
	cfg := rc.Cfg.Rules.AbruptTurn
	points := rc.Points
	var events []TurnEvent

	smoothed := func(i int) (float64, bool) {
		if points[i].Track == nil {
			return 0, false
		}
		if i == 0 || i == len(points)-1 {
			return *points[i].Track, true
		}
		if points[i-1].Track == nil || points[i+1].Track == nil {
			return *points[i].Track, true
		}
		return (*points[i-1].Track + *points[i].Track + *points[i+1].Track) / 3.0, true
	}

	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		curr := points[i]

		if rc.impossible(i) {
			continue
		}
		_, airportDist, hasAirport := rc.nearestAirport(curr)
		if physics.BadSegment(prev, curr, airportDist) {
			continue
		}
		if prev.Track == nil || curr.Track == nil {
			continue
		}

		dt := curr.Timestamp - prev.Timestamp
		if dt <= 0 || dt > int64(cfg.WindowSeconds) {
			continue
		}

		distNM := geodesy.HaversineNM(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
		speed := fvalue(curr.GSpeed)
		if speed == 0 {
			speed = 300
		}
		maxPossibleNM := speed * float64(dt) / 3600.0
		if distNM > maxPossibleNM*3.0 {
			continue
		}

		prevH, ok1 := smoothed(i - 1)
		currH, ok2 := smoothed(i)
		if !ok1 || !ok2 {
			continue
		}

		diff := physics.HeadingDelta(prevH, currH)

		// aerodynamically impossible
		if math.Abs(diff)/float64(dt) > 5.0 {
			continue
		}
		if fvalue(curr.GSpeed) < cfg.MinSpeedKts {
			continue
		}

		if math.Abs(diff) >= cfg.HeadingChangeDeg {
			if rc.Paths.InTurnZone(curr.Lat, curr.Lon) {
				continue
			}
			// Normal maneuvering close to an airport.
			if hasAirport && airportDist < 6.0 {
				continue
			}
			events = append(events, TurnEvent{
				Type:      "abrupt_turn",
				Timestamp: curr.Timestamp,
				TurnDeg:   diff,
			})
		}
	}
	return events
}

// scanHoldingPatterns accumulates signed heading change from each candidate
// start point, requiring a consistent turn direction (opposite blips of up to
// 10 degrees are tolerated), and flags sustained 180 and 360 patterns.
func (r *AbruptTurnRule) scanHoldingPatterns(rc *Context) []TurnEvent {
	cfg := rc.Cfg.Rules.AbruptTurn
	points := rc.Points
	accWindow := int64(cfg.AccWindowSeconds)
	var events []TurnEvent

	for startIdx := 0; startIdx < len(points); startIdx++ {
		start := points[startIdx]
		if start.Track == nil || fvalue(start.GSpeed) < turnMinSpeedKts || start.Alt < turnMinAltFt {
			continue
		}

		// A start point reached through a massive instantaneous jump is a
		// glitch anchor, not a turn anchor.
		if startIdx > 0 {
			prev := points[startIdx-1]
			dtPrev := start.Timestamp - prev.Timestamp
			if dtPrev > 0 && dtPrev < accWindow && prev.Track != nil {
				ratePrev := math.Abs(physics.HeadingDelta(*prev.Track, *start.Track)) / float64(dtPrev)
				accelPrev := math.Abs(fvalue(start.GSpeed)-fvalue(prev.GSpeed)) / float64(dtPrev)
				if ratePrev > turnRateMaxDegS || accelPrev > turnMaxAccelKtsS {
					continue
				}
			}
		}

		cumulative := 0.0
		direction := 0
		prevIdx := startIdx

		for endIdx := startIdx + 1; endIdx < len(points); endIdx++ {
			p0 := points[prevIdx]
			p1 := points[endIdx]

			if rc.impossible(endIdx) {
				continue
			}
			if p1.Timestamp-start.Timestamp > accWindow {
				break
			}
			if p1.Track == nil {
				continue
			}
			if fvalue(p1.GSpeed) < turnMinSpeedKts || p1.Alt < turnMinAltFt {
				continue
			}
			if fvalue(p1.GSpeed) > rc.Glitch.MaxSpeedKts {
				continue
			}

			dt := p1.Timestamp - p0.Timestamp
			if dt <= 0 {
				continue
			}

			// Descending near an airport is approach maneuvering, not a hold.
			_, airportDist, hasAirport := rc.nearestAirport(p1)
			if hasAirport && airportDist < 5.0 && p1.Alt < p0.Alt {
				continue
			}

			// A gap of 10s or more breaks heading continuity; restart the
			// reference at this point.
			if dt >= 10 {
				prevIdx = endIdx
				continue
			}

			accel := math.Abs(fvalue(p1.GSpeed)-fvalue(p0.GSpeed)) / float64(dt)
			if accel > turnMaxAccelKtsS {
				prevIdx = endIdx
				continue
			}

			distNM := geodesy.HaversineNM(p0.Lat, p0.Lon, p1.Lat, p1.Lon)
			maxPossibleNM := max3f(fvalue(p1.GSpeed), fvalue(p0.GSpeed), 300.0) * float64(dt) / 3600.0
			if maxPossibleNM > 0 && distNM > maxPossibleNM*rc.Glitch.TeleportFactor {
				prevIdx = endIdx
				continue
			}

			dh := physics.HeadingDelta(*p0.Track, *p1.Track)
			if math.Abs(dh)/float64(dt) > turnRateMaxDegS {
				continue
			}

			// Reported heading wildly off from the actual movement bearing
			// means the sensor data is garbage.
			if fvalue(p1.GSpeed) > 50 && dt > 2 {
				bearing := geodesy.InitialBearing(p0.Lat, p0.Lon, p1.Lat, p1.Lon)
				if geodesy.AngularDiff(*p1.Track, bearing) > 90 {
					continue
				}
			}

			prevIdx = endIdx

			if dh == 0 {
				continue
			}
			sign := 1
			if dh < 0 {
				sign = -1
			}
			if direction == 0 {
				direction = sign
			} else if sign != direction {
				if math.Abs(dh) <= 10 {
					continue
				}
				break
			}

			cumulative += math.Abs(dh)
			duration := p1.Timestamp - start.Timestamp
			if duration < turnMinDurationSec {
				continue
			}

			if cumulative >= turnAcc360Deg && duration >= 60 {
				if ev, ok := r.confirmOrbit(rc, startIdx, endIdx, start, p1, cumulative, duration); ok {
					events = append(events, ev)
				}
				break
			}

			if cumulative >= turnAcc180Deg && duration >= 70 {
				suppressed := rc.Paths.InPathCorridor(p1.Lat, p1.Lon, rc.Paths.Paths)
				nearAirport := hasAirport && airportDist < 6.0
				onProcedure := rc.Paths.OnKnownProcedure(p1.Lat, p1.Lon)
				if !suppressed && !nearAirport && !onProcedure {
					events = append(events, TurnEvent{
						Type:              "holding_pattern",
						Timestamp:         p1.Timestamp,
						StartTS:           start.Timestamp,
						EndTS:             p1.Timestamp,
						DurationSec:       duration,
						CumulativeTurnDeg: cumulative,
						Pattern:           "180_turn",
					})
					break
				}
				// A suppressed 180 may still accumulate into a 360.
			}
		}
	}
	return events
}

// confirmOrbit validates a 360-degree accumulation as a genuine orbit: low
// displacement, plausible average speed, and not explained by an approach or
// go-around near an airport.
func (r *AbruptTurnRule) confirmOrbit(rc *Context, startIdx, endIdx int, start, end track.Point, cumulative float64, duration int64) (TurnEvent, bool) {
	points := rc.Points
	displacementNM := geodesy.HaversineNM(start.Lat, start.Lon, end.Lat, end.Lon)

	pathNM := 0.0
	for k := startIdx; k < endIdx; k++ {
		pathNM += geodesy.HaversineNM(points[k].Lat, points[k].Lon, points[k+1].Lat, points[k+1].Lon)
	}

	avgSpeedKts := 999.0
	if duration > 0 {
		avgSpeedKts = pathNM / float64(duration) * 3600
	}
	if avgSpeedKts > 650 {
		return TurnEvent{}, false
	}

	// A true orbit loops back near its start; large displacement means a
	// curved route.
	if displacementNM > 10.0 {
		return TurnEvent{}, false
	}
	if displacementNM > 0 && pathNM/displacementNM < 2.0 {
		return TurnEvent{}, false
	}

	_, airportDist, hasAirport := rc.nearestAirport(end)
	nearAirport := hasAirport && airportDist < 6.0

	// Any point in the pattern close to an airport at low AGL makes this an
	// approach or go-around shape, not a suspicious hold.
	goAroundShape := false
	for _, pp := range points[startIdx : endIdx+1] {
		ap, dist, ok := rc.nearestAirport(pp)
		if ok && dist < 5.0 && pp.Alt-ap.ElevationFt < 2000 {
			goAroundShape = true
			break
		}
	}

	if nearAirport || goAroundShape {
		return TurnEvent{}, false
	}

	return TurnEvent{
		Type:              "holding_pattern",
		Timestamp:         end.Timestamp,
		StartTS:           start.Timestamp,
		EndTS:             end.Timestamp,
		DurationSec:       duration,
		CumulativeTurnDeg: cumulative,
		Pattern:           "360_turn",
		DisplacementNM:    displacementNM,
		PathNM:            pathNM,
	}, true
}

// Geometric fallback limits: used only when the stricter heading scan found
// nothing, typically on sparse tracks.
const (
	loopMinSpeedKts     = 80.0
	loopMinAltFt        = 1500.0
	loopMinDurationSec  = 70
	loopMaxDurationSec  = 240
	loopMinHeadingAcc   = 320.0
	loopMinPathDisp     = 1.35
)

// scanGeometricLoops detects orbits from path-length/displacement ratio and
// signed heading accumulation when per-step heading data was too sparse for
// the primary scan.
func (r *AbruptTurnRule) scanGeometricLoops(rc *Context) []TurnEvent {
	points := rc.Points

	headingAccSigned := func(slice []track.Point) float64 {
		acc := 0.0
		for k := 0; k+1 < len(slice); k++ {
			if slice[k].Track == nil || slice[k+1].Track == nil {
				continue
			}
			acc += physics.HeadingDelta(*slice[k].Track, *slice[k+1].Track)
		}
		return acc
	}

	// isCompleteOrbit requires at least 320 degrees of one-direction
	// accumulation and a similar start/end heading (or two full orbits).
	isCompleteOrbit := func(slice []track.Point) (bool, float64) {
		if len(slice) < 3 {
			return false, 0
		}
		signedAcc := headingAccSigned(slice)
		if math.Abs(signedAcc) < loopMinHeadingAcc {
			return false, math.Abs(signedAcc)
		}
		first, last := slice[0].Track, slice[len(slice)-1].Track
		if first == nil || last == nil {
			return false, math.Abs(signedAcc)
		}
		if geodesy.AngularDiff(*first, *last) <= 90 {
			return true, math.Abs(signedAcc)
		}
		if math.Abs(signedAcc) >= 640 {
			return true, math.Abs(signedAcc)
		}
		return false, math.Abs(signedAcc)
	}

	pathLen := func(slice []track.Point) float64 {
		total := 0.0
		for k := 0; k+1 < len(slice); k++ {
			total += geodesy.HaversineNM(slice[k].Lat, slice[k].Lon, slice[k+1].Lat, slice[k+1].Lon)
		}
		return total
	}

	var events []TurnEvent
	for i := 0; i < len(points) && len(events) == 0; i++ {
		start := points[i]
		if fvalue(start.GSpeed) < loopMinSpeedKts || start.Alt < loopMinAltFt {
			continue
		}
		for j := i + 2; j < len(points); j++ {
			end := points[j]
			duration := end.Timestamp - start.Timestamp
			if duration < loopMinDurationSec {
				continue
			}
			if duration > loopMaxDurationSec {
				break
			}
			if fvalue(end.GSpeed) < loopMinSpeedKts || end.Alt < loopMinAltFt {
				continue
			}
			slice := points[i : j+1]

			if physics.HasGPSGlitches(slice, rc.Glitch) {
				continue
			}

			disp := geodesy.HaversineNM(start.Lat, start.Lon, end.Lat, end.Lon)
			path := pathLen(slice)
			if disp <= 0 {
				continue
			}
			ratio := path / disp
			if ratio < loopMinPathDisp {
				continue
			}

			isOrbit, signedAcc := isCompleteOrbit(slice)

			avgSpeedKts := path / float64(duration) * 3600
			if avgSpeedKts > 650 {
				continue
			}
			// Real holds stay within about 10 nm of a point.
			if disp > 10.0 {
				continue
			}
			if !isOrbit {
				continue
			}
			avgTurnRate := signedAcc / float64(duration)
			if avgTurnRate > 6.0 {
				continue
			}
			// Path length bounded by what 300 kt can cover in the duration.
			expectedMaxPath := 300.0 * float64(duration) / 3600.0 * 1.5
			if path > expectedMaxPath {
				continue
			}

			isTrue360 := ratio >= 2.0 && disp >= 3.0

			_, distEnd, okEnd := rc.nearestAirport(end)
			if okEnd && distEnd < 6.0 {
				continue
			}
			// Departure turns routinely carry aircraft beyond 6 nm from the
			// field, so check the start point too.
			_, distStart, okStart := rc.nearestAirport(start)
			if okStart && distStart < 6.0 {
				continue
			}

			if !isTrue360 {
				if rc.Paths.InPathCorridor(end.Lat, end.Lon, rc.Paths.Paths) {
					continue
				}
				if rc.Paths.OnKnownProcedure(end.Lat, end.Lon) {
					continue
				}
			}

			events = append(events, TurnEvent{
				Type:              "holding_pattern",
				Timestamp:         end.Timestamp,
				StartTS:           start.Timestamp,
				EndTS:             end.Timestamp,
				DurationSec:       duration,
				CumulativeTurnDeg: signedAcc,
				Pattern:           "360_turn_fallback",
				PathNM:            path,
				DisplacementNM:    disp,
				PathDispRatio:     ratio,
			})
			break
		}
	}
	return events
}

func max3f(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
