package rules

import (
	"context"
	"math"
)

// AltitudeChangeRule flags extreme per-step altitude changes at cruise. Most
// of its logic is noise rejection: ADS-B feeds regularly emit short bursts of
// zero or near-zero altitudes mid-cruise, and a real 35,000 ft descent in one
// step is far less likely than a sensor dropout.
type AltitudeChangeRule struct{}

func (r *AltitudeChangeRule) ID() int      { return 2 }
func (r *AltitudeChangeRule) Name() string { return "Extreme altitude change" }

// AltitudeEvent is one excessive altitude step.
type AltitudeEvent struct {
	Timestamp int64   `json:"timestamp"`
	DeltaFt   float64 `json:"delta_ft"`
	RateFtS   float64 `json:"rate_ft_per_s"`
}

// AltitudeDetails lists the altitude change events.
type AltitudeDetails struct {
	Events []AltitudeEvent `json:"events"`
}

func (r *AltitudeChangeRule) Evaluate(_ context.Context, rc *Context) Result {
	cfg := rc.Cfg.Rules.AltitudeChange
	points := rc.Points
	var events []AltitudeEvent

	// Airport distances are reused by several filters below.
	distances := make([]float64, len(points))
	for i, p := range points {
		_, d, ok := rc.nearestAirport(p)
		if !ok {
			d = math.Inf(1)
		}
		distances[i] = d
	}

	// isNoiseSequence reports whether points[start..end] form a burst of
	// implausibly low altitudes bracketed by similar cruise altitudes. Such
	// bursts are sensor noise when short (<300s) and far (>5nm) from any
	// airport.
	isNoiseSequence := func(start, end int) bool {
		if start < 0 || end >= len(points) || start >= end {
			return false
		}
		anyLow := false
		for _, p := range points[start : end+1] {
			if p.Alt < 500 {
				anyLow = true
				break
			}
		}
		if !anyLow {
			return false
		}
		if start == 0 || end+1 >= len(points) {
			return false
		}
		prevAlt := points[start-1].Alt
		nextAlt := points[end+1].Alt
		if prevAlt < cfg.MinCruiseFt || nextAlt < cfg.MinCruiseFt {
			return false
		}
		if math.Abs(nextAlt-prevAlt) < 5000 {
			duration := points[end].Timestamp - points[start].Timestamp
			minDist := math.Inf(1)
			for k := start; k <= end && k < len(distances); k++ {
				if distances[k] < minDist {
					minDist = distances[k]
				}
			}
			if duration < 300 && minDist > 5 {
				return true
			}
		}
		return false
	}

	i := 0
	for i < len(points)-1 {
		prev := points[i]
		curr := points[i+1]

		if rc.impossible(i + 1) {
			i++
			continue
		}

		dt := curr.Timestamp - prev.Timestamp
		if dt <= 0 || dt > int64(cfg.WindowSeconds) {
			i++
			continue
		}

		if prev.Alt < cfg.MinCruiseFt {
			i++
			continue
		}

		// Multi-point noise burst: cruise altitude collapsing to near zero
		// then recovering.
		if curr.Alt < 500 && prev.Alt >= cfg.MinCruiseFt {
			noiseStart := i + 1
			noiseEnd := noiseStart
			for noiseEnd+1 < len(points) && points[noiseEnd+1].Alt < 500 {
				noiseEnd++
			}
			if noiseEnd > noiseStart ||
				(noiseEnd == noiseStart && noiseEnd+1 < len(points) && points[noiseEnd+1].Alt >= cfg.MinCruiseFt) {
				if isNoiseSequence(noiseStart, noiseEnd) {
					// Skip past the burst, and skip the recovery step too when
					// altitudes on both sides are similar.
					i = noiseEnd + 1
					if i < len(points)-1 && math.Abs(points[noiseEnd+1].Alt-prev.Alt) < 5000 {
						i++
					}
					continue
				}
			}
		}

		// The recovery side of a burst the forward scan missed.
		if prev.Alt < 500 && curr.Alt >= cfg.MinCruiseFt {
			noiseEnd := i
			noiseStart := i
			for noiseStart > 0 && points[noiseStart-1].Alt < 500 {
				noiseStart--
			}
			if noiseStart <= noiseEnd && noiseStart > 0 {
				beforeAlt := points[noiseStart-1].Alt
				if beforeAlt >= cfg.MinCruiseFt && math.Abs(curr.Alt-beforeAlt) < 5000 {
					if noiseStart < noiseEnd {
						duration := points[noiseEnd].Timestamp - points[noiseStart].Timestamp
						minDist := math.Inf(1)
						for k := noiseStart; k <= noiseEnd && k < len(distances); k++ {
							if distances[k] < minDist {
								minDist = distances[k]
							}
						}
						if duration < 300 && minDist > 5 {
							i++
							continue
						}
					} else if distances[i] > 5 {
						i++
						continue
					}
				}
			}
		}

		// A sudden zero from cruise is always fake.
		if curr.Alt <= 0 && prev.Alt > 500 {
			i++
			continue
		}

		// Collapse to 0 ft far from airports with immediate recovery
		// (35000 -> 0 -> 35000 signature).
		if curr.Alt == 0 && distances[i+1] > 7 {
			if i+2 < len(points) && math.Abs(points[i+2].Alt-prev.Alt) < 3000 {
				i++
				continue
			}
		}

		// Impossible physics: near-zero altitude at high speed away from any
		// runway.
		if curr.Alt < 200 && fvalue(curr.GSpeed) > 200 && distances[i+1] > 3 {
			i++
			continue
		}

		delta := curr.Alt - prev.Alt
		if math.Abs(delta) >= cfg.DeltaFt {
			events = append(events, AltitudeEvent{
				Timestamp: curr.Timestamp,
				DeltaFt:   delta,
				RateFtS:   delta / float64(dt),
			})
		}

		i++
	}

	matched := len(events) > 0
	summary := "Altitude profile nominal"
	if matched {
		summary = "Detected rapid altitude changes"
	}
	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: AltitudeDetails{Events: events}}
}
