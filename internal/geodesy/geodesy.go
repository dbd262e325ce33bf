// Package geodesy provides great-circle math on a spherical earth model.
// All angles are degrees, all distances nautical miles unless noted.
package geodesy

import "math"

const (
	// EarthRadiusKM is the mean earth radius of the spherical model.
	EarthRadiusKM = 6371.0
	// NMPerKM converts kilometres to nautical miles.
	NMPerKM = 0.539957
)

// Point is a geographic position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineKM returns the great-circle distance between two positions in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	lat1R, lon1R := radians(lat1), radians(lon1)
	lat2R, lon2R := radians(lat2), radians(lon2)

	dlat := lat2R - lat1R
	dlon := lon2R - lon1R

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1R)*math.Cos(lat2R)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}

// HaversineNM returns the great-circle distance between two positions in NM.
func HaversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKM(lat1, lon1, lat2, lon2) * NMPerKM
}

// DistanceNM returns the great-circle distance between two points in NM.
func DistanceNM(a, b Point) float64 {
	return HaversineNM(a.Lat, a.Lon, b.Lat, b.Lon)
}

// InitialBearing returns the initial great-circle bearing from the first
// position to the second, in degrees [0, 360).
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	y := math.Sin(radians(lon2-lon1)) * math.Cos(radians(lat2))
	x := math.Cos(radians(lat1))*math.Sin(radians(lat2)) -
		math.Sin(radians(lat1))*math.Cos(radians(lat2))*math.Cos(radians(lon2-lon1))
	bearing := degrees(math.Atan2(y, x))
	return math.Mod(bearing+360.0, 360.0)
}

// AngularDiff returns the smallest absolute difference between two headings,
// in degrees [0, 180].
func AngularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360.0)
	if d > 180.0 {
		d = 360.0 - d
	}
	return d
}

// CrossTrackNM returns the unsigned cross-track distance of a point from the
// great-circle path connecting origin and destination. Spherical earth
// approximation, accurate enough for route-deviation heuristics.
func CrossTrackNM(origin, destination, point Point) float64 {
	lat1, lon1 := radians(origin.Lat), radians(origin.Lon)
	lat2, lon2 := radians(destination.Lat), radians(destination.Lon)
	lat3, lon3 := radians(point.Lat), radians(point.Lon)

	dist13 := angularDistance(lat1, lon1, lat3, lon3)
	if dist13 == 0.0 {
		return 0.0
	}

	bearing13 := bearingRad(lat1, lon1, lat3, lon3)
	bearing12 := bearingRad(lat1, lon1, lat2, lon2)

	sinXT := math.Sin(dist13) * math.Sin(bearing13-bearing12)
	xtKM := math.Asin(clamp(sinXT, -1.0, 1.0)) * EarthRadiusKM
	return math.Abs(xtKM * NMPerKM)
}

// Destination returns the position reached by travelling distNM from the
// given position along the given initial bearing.
func Destination(lat, lon, bearingDeg, distNM float64) (float64, float64) {
	d := distNM / NMPerKM // km

	lat1 := radians(lat)
	lon1 := radians(lon)
	brng := radians(bearingDeg)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d/EarthRadiusKM) +
		math.Cos(lat1)*math.Sin(d/EarthRadiusKM)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d/EarthRadiusKM)*math.Cos(lat1),
		math.Cos(d/EarthRadiusKM)-math.Sin(lat1)*math.Sin(lat2))

	return degrees(lat2), degrees(lon2)
}

// FrechetNM returns the discrete Frechet distance between two polylines in NM.
// Computed iteratively with dynamic programming.
func FrechetNM(a, b []Point) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return 0.0
	}

	ca := make([][]float64, n)
	for i := range ca {
		ca[i] = make([]float64, m)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			dist := DistanceNM(a[i], b[j])
			switch {
			case i == 0 && j == 0:
				ca[i][j] = dist
			case i > 0 && j == 0:
				ca[i][j] = math.Max(ca[i-1][0], dist)
			case i == 0 && j > 0:
				ca[i][j] = math.Max(ca[0][j-1], dist)
			default:
				ca[i][j] = math.Max(min3(ca[i-1][j], ca[i-1][j-1], ca[i][j-1]), dist)
			}
		}
	}

	return ca[n-1][m-1]
}

func angularDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := lat2 - lat1
	dlon := lon2 - lon1
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func bearingRad(lat1, lon1, lat2, lon2 float64) float64 {
	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	return math.Atan2(y, x)
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}
