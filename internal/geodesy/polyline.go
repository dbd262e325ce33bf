package geodesy

import "math"

// CorridorPolygon builds a closed polygon buffer around a polyline by
// offsetting each vertex radiusNM to the left and right of the local segment
// bearing. Returns the left boundary followed by the reversed right boundary,
// closed back to the first left vertex. Paths shorter than two points yield
// nil.
func CorridorPolygon(path []Point, radiusNM float64) []Point {
	if len(path) < 2 {
		return nil
	}

	left := make([]Point, 0, len(path))
	right := make([]Point, 0, len(path))

	for i := range path {
		var bearing float64
		if i < len(path)-1 {
			bearing = InitialBearing(path[i].Lat, path[i].Lon, path[i+1].Lat, path[i+1].Lon)
		} else {
			// Last vertex reuses the inbound bearing.
			bearing = InitialBearing(path[i-1].Lat, path[i-1].Lon, path[i].Lat, path[i].Lon)
		}

		llat, llon := Destination(path[i].Lat, path[i].Lon, bearing-90, radiusNM)
		rlat, rlon := Destination(path[i].Lat, path[i].Lon, bearing+90, radiusNM)

		left = append(left, Point{Lat: llat, Lon: llon})
		right = append(right, Point{Lat: rlat, Lon: rlon})
	}

	poly := make([]Point, 0, 2*len(path)+1)
	poly = append(poly, left...)
	for i := len(right) - 1; i >= 0; i-- {
		poly = append(poly, right[i])
	}
	poly = append(poly, left[0])
	return poly
}

// PointInPolygon reports whether the point lies inside the polygon using the
// ray casting algorithm. Coordinates are treated as planar (lat as x, lon as
// y), which matches how corridor polygons are constructed.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	x, y := p.Lat, p.Lon
	n := len(polygon)
	inside := false

	p1 := polygon[0]
	for i := 1; i <= n; i++ {
		p2 := polygon[i%n]
		if y > math.Min(p1.Lon, p2.Lon) && y <= math.Max(p1.Lon, p2.Lon) && x <= math.Max(p1.Lat, p2.Lat) {
			if p1.Lon != p2.Lon {
				xinters := (y-p1.Lon)*(p2.Lat-p1.Lat)/(p2.Lon-p1.Lon) + p1.Lat
				if p1.Lat == p2.Lat || x <= xinters {
					inside = !inside
				}
			}
		}
		p1 = p2
	}

	return inside
}

// SmoothPolyline smooths a polyline with a centered moving average. The
// window shrinks at the ends. Inputs shorter than the window are returned
// unchanged.
func SmoothPolyline(points []Point, window int) []Point {
	if len(points) < window || window < 2 {
		return points
	}

	smoothed := make([]Point, len(points))
	halfWin := window / 2

	for i := range points {
		start := i - halfWin
		if start < 0 {
			start = 0
		}
		end := i + halfWin + 1
		if end > len(points) {
			end = len(points)
		}

		var sumLat, sumLon float64
		for _, p := range points[start:end] {
			sumLat += p.Lat
			sumLon += p.Lon
		}
		n := float64(end - start)
		smoothed[i] = Point{Lat: sumLat / n, Lon: sumLon / n}
	}

	return smoothed
}

// PointToPolylineNM returns the minimum lateral distance from a point to a
// polyline in NM, and the 0-1 fraction along the polyline where the closest
// approach lies. Uses an equirectangular projection around the polyline's
// first vertex (1 degree of latitude = 60 NM). Polylines shorter than two
// points yield +Inf distance.
func PointToPolylineNM(p Point, polyline []Point) (float64, float64) {
	if len(polyline) < 2 {
		return math.Inf(1), 0.0
	}

	refLat := polyline[0].Lat
	cosLat := math.Cos(radians(refLat))

	project := func(pt Point) (float64, float64) {
		return pt.Lat * 60.0, pt.Lon * 60.0 * cosLat
	}

	px, py := project(p)

	minDist := math.Inf(1)
	minIdx := 0
	minT := 0.0

	segLengths := make([]float64, len(polyline)-1)
	totalLength := 0.0

	for i := 0; i < len(polyline)-1; i++ {
		sx, sy := project(polyline[i])
		ex, ey := project(polyline[i+1])

		vx, vy := ex-sx, ey-sy
		wx, wy := px-sx, py-sy

		segLenSq := vx*vx + vy*vy
		segLengths[i] = math.Sqrt(segLenSq)
		totalLength += segLengths[i]

		t := 0.0
		if segLenSq > 0 {
			t = clamp((wx*vx+wy*vy)/segLenSq, 0.0, 1.0)
		}

		cx, cy := sx+t*vx, sy+t*vy
		dist := math.Hypot(px-cx, py-cy)

		if dist < minDist {
			minDist = dist
			minIdx = i
			minT = t
		}
	}

	if totalLength == 0 {
		totalLength = 1.0
	}
	cum := 0.0
	for i := 0; i < minIdx; i++ {
		cum += segLengths[i]
	}
	cum += minT * segLengths[minIdx]

	return minDist, cum / totalLength
}
