package rules

import (
	"context"
	"fmt"
	"math"
)

// SignalLossRule counts transmission gaps while airborne. Ground-level gaps
// are normal (hangars, taxiways, coverage holes at the surface).
type SignalLossRule struct{}

func (r *SignalLossRule) ID() int      { return 10 }
func (r *SignalLossRule) Name() string { return "Signal loss" }

// SignalGap is one airborne transmission gap.
type SignalGap struct {
	StartTS int64 `json:"start_ts"`
	EndTS   int64 `json:"end_ts"`
	GapSec  int64 `json:"gap_s"`
}

// SignalLossDetails lists the gaps found.
type SignalLossDetails struct {
	Gaps []SignalGap `json:"gaps"`
}

func (r *SignalLossRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.SignalLoss
	points := rc.Points
	if len(points) < 2 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Insufficient points"}
	}

	// AGL relative to the nearest airport when one is close; otherwise the
	// raw altitude stands in.
	agl := func(i int) float64 {
		p := points[i]
		elev := 0.0
		if ap, dist, ok := rc.nearestAirport(p); ok && dist < 10 {
			elev = ap.ElevationFt
		}
		return p.Alt - elev
	}

	var gaps []SignalGap
	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		curr := points[i]
		dt := curr.Timestamp - prev.Timestamp

		if agl(i-1) < 300 || agl(i) < 300 {
			continue
		}
		if dt >= int64(cfg.GapSeconds) {
			gaps = append(gaps, SignalGap{StartTS: prev.Timestamp, EndTS: curr.Timestamp, GapSec: dt})
		}
	}

	matched := len(gaps) >= cfg.RepeatCount
	summary := "Nominal"
	if matched {
		summary = "Signal loss"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: SignalLossDetails{Gaps: gaps}}
}

// SignalDropoutRule detects tactical in-flight signal discontinuity: an
// aircraft that stops transmitting while high, fast, far from any airport,
// and in stable flight right up to the moment it disappears. Stability before
// the dropout is what distinguishes a deliberate shutoff from coverage loss
// during maneuvering.
type SignalDropoutRule struct{}

func (r *SignalDropoutRule) ID() int      { return 20 }
func (r *SignalDropoutRule) Name() string { return "In-flight signal discontinuity" }

// DropoutGap is one suspicious disappearance.
type DropoutGap struct {
	TimestampBefore   int64   `json:"timestamp_before"`
	TimestampAfter    int64   `json:"timestamp_after"`
	GapDurationSec    int64   `json:"gap_duration_sec"`
	AltitudeFt        float64 `json:"altitude_ft"`
	SpeedKts          float64 `json:"speed_kts"`
	NearestAirport    string  `json:"nearest_airport"`
	AirportDistanceNM float64 `json:"airport_distance_nm"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	SpeedDeviation    float64 `json:"speed_deviation"`
	AltitudeDeviation float64 `json:"altitude_deviation"`
}

// DropoutDetails summarizes the suspicious gaps (first five kept).
type DropoutDetails struct {
	GapCount        int          `json:"gap_count"`
	TotalGapSeconds int64        `json:"total_gap_seconds"`
	Gaps            []DropoutGap `json:"gaps"`
}

func (r *SignalDropoutRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.SignalDropout
	points := rc.Points
	if len(points) < 2 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "Insufficient track data"}
	}

	var gaps []DropoutGap
	for i := 1; i < len(points); i++ {
		prev := points[i-1]
		curr := points[i]
		gapDuration := curr.Timestamp - prev.Timestamp
		if gapDuration < int64(cfg.MinGapSeconds) {
			continue
		}

		altitude := prev.Alt
		speed := fvalue(prev.GSpeed)
		if altitude < cfg.MinAltitudeFt || speed < cfg.MinSpeedKts {
			continue
		}

		nearest, airportDist, ok := rc.nearestAirport(prev)
		if ok && airportDist < cfg.MinAirportDistNM {
			continue
		}

		// Stability in the window before disappearance.
		stabilityStart := prev.Timestamp - int64(cfg.StabilityWindowSeconds)
		var speeds, altitudes []float64
		stableCount := 0
		for _, p := range points[:i] {
			if p.Timestamp < stabilityStart {
				continue
			}
			stableCount++
			if p.GSpeed != nil {
				speeds = append(speeds, *p.GSpeed)
			}
			altitudes = append(altitudes, p.Alt)
		}
		if stableCount < 2 || len(speeds) == 0 || len(altitudes) == 0 {
			continue
		}

		avgSpeed := mean(speeds)
		avgAltitude := mean(altitudes)
		speedDev := maxRelDeviation(speeds, avgSpeed)
		altDev := maxRelDeviation(altitudes, avgAltitude)
		if speedDev > cfg.StabilityDeviation || altDev > cfg.StabilityDeviation {
			continue
		}

		airportCode := "Unknown"
		if ok {
			airportCode = nearest.Code
		}
		gaps = append(gaps, DropoutGap{
			TimestampBefore:   prev.Timestamp,
			TimestampAfter:    curr.Timestamp,
			GapDurationSec:    gapDuration,
			AltitudeFt:        altitude,
			SpeedKts:          speed,
			NearestAirport:    airportCode,
			AirportDistanceNM: airportDist,
			Lat:               prev.Lat,
			Lon:               prev.Lon,
			SpeedDeviation:    speedDev,
			AltitudeDeviation: altDev,
		})
	}

	if len(gaps) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No suspicious signal discontinuities detected"}
	}

	var total int64
	for _, g := range gaps {
		total += g.GapDurationSec
	}
	kept := gaps
	if len(kept) > 5 {
		kept = kept[:5]
	}
	return Result{
		RuleID:  r.ID(),
		Matched: true,
		Summary: fmt.Sprintf("Tactical signal dropout detected: %d suspicious gap(s) totaling %d minutes", len(gaps), total/60),
		Details: DropoutDetails{GapCount: len(gaps), TotalGapSeconds: total, Gaps: kept},
	}
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxRelDeviation(vals []float64, avg float64) float64 {
	if avg <= 0 {
		return 0
	}
	maxDev := 0.0
	for _, v := range vals {
		if d := math.Abs(v-avg) / avg; d > maxDev {
			maxDev = d
		}
	}
	return maxDev
}
