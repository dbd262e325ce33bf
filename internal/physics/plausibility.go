package physics

import (
	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

// Limits holds the kinematic thresholds used to reject physically impossible
// track points. Values come from configuration.
type Limits struct {
	SpeedBuffer        float64 // multiplier on reported speed for accel/decel slack
	MinAssumedSpeedKts float64 // floor used when ground speed is missing or low
	MaxTurnRateDegS    float64 // instantaneous turn rate ceiling
	MaxVerticalFtS     float64 // altitude change rate ceiling
}

// DefaultLimits returns the tuned defaults: 50% speed slack, 300 kt floor,
// 8 deg/s turn rate, 200 ft/s vertical rate.
func DefaultLimits() Limits {
	return Limits{
		SpeedBuffer:        1.5,
		MinAssumedSpeedKts: 300.0,
		MaxTurnRateDegS:    8.0,
		MaxVerticalFtS:     200.0,
	}
}

// GlitchLimits holds thresholds for the segment-level GPS glitch scan used by
// turn-shape rules to suppress jamming and spoofing artifacts.
type GlitchLimits struct {
	MaxSpeedKts          float64 // above this the sample is a glitch outright
	MinAssumedSpeedKts   float64
	TeleportFactor       float64 // distance vs possible-distance ratio
	MaxTurnRateDegS      float64
	GlitchRatio          float64 // fraction of glitchy segments that condemns the slice
	ReversalRatio        float64 // fraction of heading reversals that condemns the slice
	CombinedReversalRatio float64 // reversal fraction that condemns when any glitch present
}

// DefaultGlitchLimits returns the tuned glitch-scan defaults.
func DefaultGlitchLimits() GlitchLimits {
	return GlitchLimits{
		MaxSpeedKts:           600.0,
		MinAssumedSpeedKts:    300.0,
		TeleportFactor:        2.5,
		MaxTurnRateDegS:       8.0,
		GlitchRatio:           0.05,
		ReversalRatio:         0.08,
		CombinedReversalRatio: 0.05,
	}
}

func gspeed(p track.Point) float64 {
	if p.GSpeed == nil {
		return 0
	}
	return *p.GSpeed
}

// ImpossiblePoint reports whether the point at idx is physically impossible
// given its neighbors. First and last points are never impossible (both
// neighbors are needed). Three checks: horizontal distance vs achievable
// distance at reported speed (with slack), instantaneous turn rate between
// reported tracks, and vertical rate. A segment with non-positive dt skips
// its checks.
func ImpossiblePoint(points []track.Point, idx int, lim Limits) bool {
	if idx <= 0 || idx >= len(points)-1 {
		return false
	}

	prev := points[idx-1]
	curr := points[idx]
	next := points[idx+1]

	dtPrev := curr.Timestamp - prev.Timestamp
	if dtPrev > 0 {
		dist := geodesy.HaversineNM(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
		speed := max3(gspeed(prev), gspeed(curr), lim.MinAssumedSpeedKts)
		if dist > (speed*float64(dtPrev)/3600.0)*lim.SpeedBuffer {
			return true
		}
	}

	dtNext := next.Timestamp - curr.Timestamp
	if dtNext > 0 {
		dist := geodesy.HaversineNM(curr.Lat, curr.Lon, next.Lat, next.Lon)
		speed := max3(gspeed(curr), gspeed(next), lim.MinAssumedSpeedKts)
		if dist > (speed*float64(dtNext)/3600.0)*lim.SpeedBuffer {
			return true
		}
	}

	if prev.Track != nil && curr.Track != nil && dtPrev > 0 {
		change := absHeadingDelta(*prev.Track, *curr.Track)
		if change/float64(dtPrev) > lim.MaxTurnRateDegS {
			return true
		}
	}
	if curr.Track != nil && next.Track != nil && dtNext > 0 {
		change := absHeadingDelta(*curr.Track, *next.Track)
		if change/float64(dtNext) > lim.MaxTurnRateDegS {
			return true
		}
	}

	if dtPrev > 0 {
		rate := abs(curr.Alt-prev.Alt) / float64(dtPrev)
		if rate > lim.MaxVerticalFtS {
			return true
		}
	}
	if dtNext > 0 {
		rate := abs(next.Alt-curr.Alt) / float64(dtNext)
		if rate > lim.MaxVerticalFtS {
			return true
		}
	}

	return false
}

// BadSegment reports whether the segment from prev to curr looks like a feed
// artifact rather than real movement: non-increasing time, a teleport jump,
// an implausible heading jump, a cruise-altitude point far from any airport
// (ocean coverage gap), or a zero-altitude sample at high speed.
// nearestAirportNM is the distance from curr to the closest known airport;
// pass a large value when unknown.
func BadSegment(prev, curr track.Point, nearestAirportNM float64) bool {
	dt := curr.Timestamp - prev.Timestamp
	if dt <= 0 {
		return true
	}

	speed := gspeed(curr)
	if speed == 0 {
		speed = gspeed(prev)
	}
	if speed == 0 {
		speed = 350.0
	}
	maxNM := speed * float64(dt) / 3600.0
	distNM := geodesy.HaversineNM(prev.Lat, prev.Lon, curr.Lat, curr.Lon)
	if distNM > maxNM*3 {
		return true
	}

	if prev.Track != nil && curr.Track != nil {
		if absHeadingDelta(*prev.Track, *curr.Track) > 80 {
			return true
		}
	}

	// Coverage gap artifact: cruise altitude far from land
	if curr.Alt > 15000 && nearestAirportNM > 60 {
		return true
	}

	// Zero-altitude glitch at high speed
	if curr.Alt < 200 && gspeed(curr) > 200 {
		return true
	}

	return false
}

// HasGPSGlitches reports whether a point slice contains jamming or spoofing
// artifacts: impossible speeds, teleportation, impossible turn rates, heading
// oscillation, or reported track far off the actual movement bearing.
func HasGPSGlitches(points []track.Point, lim GlitchLimits) bool {
	if len(points) < 2 {
		return false
	}

	glitchCount := 0
	headingReversals := 0
	prevHeadingChange := 0.0

	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		dt := b.Timestamp - a.Timestamp
		if dt <= 0 {
			continue
		}

		if gspeed(b) > lim.MaxSpeedKts || gspeed(a) > lim.MaxSpeedKts {
			glitchCount++
			continue
		}

		distNM := geodesy.HaversineNM(a.Lat, a.Lon, b.Lat, b.Lon)
		maxPossibleNM := max3(gspeed(b), gspeed(a), lim.MinAssumedSpeedKts) * float64(dt) / 3600.0
		if maxPossibleNM > 0 && distNM > maxPossibleNM*lim.TeleportFactor {
			glitchCount++
			continue
		}

		if a.Track != nil && b.Track != nil {
			dh := absHeadingDelta(*a.Track, *b.Track)
			if dh/float64(dt) > lim.MaxTurnRateDegS {
				glitchCount++
			}

			signedDh := HeadingDelta(*a.Track, *b.Track)
			if prevHeadingChange != 0 {
				if (prevHeadingChange > 20 && signedDh < -20) ||
					(prevHeadingChange < -20 && signedDh > 20) {
					headingReversals++
				}
			}
			prevHeadingChange = signedDh
		}

		if b.Track != nil && distNM > 0.1 {
			actualBearing := geodesy.InitialBearing(a.Lat, a.Lon, b.Lat, b.Lon)
			if absHeadingDelta(*b.Track, actualBearing) > 120 {
				glitchCount++
			}
		}
	}

	numSegments := len(points) - 1
	if numSegments > 0 {
		glitchRatio := float64(glitchCount) / float64(numSegments)
		reversalRatio := float64(headingReversals) / float64(numSegments)

		if glitchRatio > lim.GlitchRatio || reversalRatio > lim.ReversalRatio {
			return true
		}
		// Combined indicators are strong evidence even below either threshold
		if glitchCount > 0 && reversalRatio > lim.CombinedReversalRatio {
			return true
		}
	}

	return false
}

func absHeadingDelta(a, b float64) float64 {
	return abs(HeadingDelta(a, b))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
