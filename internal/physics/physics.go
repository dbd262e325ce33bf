// Package physics provides kinematic plausibility checks for track data and
// small pieces of navigation physics shared by the rule evaluators.
package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

const (
	FtPerM    = 3.28084  // feet per metre
	KnotsToMs = 0.514444 // knots to m/s
	MsToKnots = 1.94384  // m/s to knots
)

// HeadingDelta returns the signed heading change from a to b in degrees,
// normalized to (-180, 180]. Positive is a right turn; an exact reversal
// reports +180.
func HeadingDelta(a, b float64) float64 {
	d := math.Mod(b-a+540.0, 360.0)
	if d < 0 {
		d += 360.0
	}
	d -= 180.0
	if d == -180.0 {
		d = 180.0
	}
	return d
}

// CalculateMagneticVariation calculates the magnetic declination for a given
// position and time. Returns declination in degrees (+East, -West).
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt / FtPerM

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Return 0 for safety if calculation fails
		return 0.0
	}

	return mag.D()
}
