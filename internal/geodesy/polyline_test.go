package geodesy

import (
	"math"
	"testing"
)

func TestCorridorPolygon(t *testing.T) {
	path := []Point{{Lat: 32.0, Lon: 34.0}, {Lat: 32.0, Lon: 34.5}, {Lat: 32.0, Lon: 35.0}}
	poly := CorridorPolygon(path, 5.0)

	if len(poly) != 2*len(path)+1 {
		t.Fatalf("polygon has %d vertices, want %d", len(poly), 2*len(path)+1)
	}
	if poly[0] != poly[len(poly)-1] {
		t.Error("polygon is not closed")
	}

	// A point on the centerline is inside; one far off is not.
	if !PointInPolygon(Point{Lat: 32.0, Lon: 34.5}, poly) {
		t.Error("centerline point not inside corridor")
	}
	if PointInPolygon(Point{Lat: 33.0, Lon: 34.5}, poly) {
		t.Error("point 60 NM off centerline reported inside corridor")
	}

	if CorridorPolygon(path[:1], 5.0) != nil {
		t.Error("single-point path should yield nil polygon")
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: 0},
	}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{Lat: 5, Lon: 5}, true},
		{"outside north", Point{Lat: 15, Lon: 5}, false},
		{"outside west", Point{Lat: 5, Lon: -5}, false},
		{"near corner inside", Point{Lat: 1, Lon: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, square); got != tt.want {
				t.Errorf("PointInPolygon(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if PointInPolygon(Point{Lat: 5, Lon: 5}, square[:2]) {
		t.Error("two-vertex polygon should contain nothing")
	}
}

func TestSmoothPolyline(t *testing.T) {
	// A single spike gets averaged down.
	points := []Point{
		{Lat: 32.0, Lon: 34.0},
		{Lat: 32.0, Lon: 34.1},
		{Lat: 33.0, Lon: 34.2}, // spike
		{Lat: 32.0, Lon: 34.3},
		{Lat: 32.0, Lon: 34.4},
	}
	smoothed := SmoothPolyline(points, 3)
	if len(smoothed) != len(points) {
		t.Fatalf("smoothed length %d, want %d", len(smoothed), len(points))
	}
	if smoothed[2].Lat >= points[2].Lat {
		t.Errorf("spike not reduced: %.4f >= %.4f", smoothed[2].Lat, points[2].Lat)
	}

	// Shorter than the window: unchanged.
	short := points[:2]
	if got := SmoothPolyline(short, 3); got[0] != short[0] || got[1] != short[1] {
		t.Error("short input should be returned unchanged")
	}
}

func TestPointToPolylineNM(t *testing.T) {
	line := []Point{{Lat: 32.0, Lon: 34.0}, {Lat: 32.0, Lon: 35.0}}

	// On the line.
	d, frac := PointToPolylineNM(Point{Lat: 32.0, Lon: 34.5}, line)
	if d > 0.01 {
		t.Errorf("on-line distance = %.4f, want ~0", d)
	}
	if math.Abs(frac-0.5) > 0.01 {
		t.Errorf("fraction = %.4f, want ~0.5", frac)
	}

	// One degree north of the line: about 60 NM.
	d, _ = PointToPolylineNM(Point{Lat: 33.0, Lon: 34.5}, line)
	if math.Abs(d-60.0) > 1.0 {
		t.Errorf("off-line distance = %.3f, want ~60", d)
	}

	// Beyond the end: distance to the last vertex, fraction clamps to 1.
	d, frac = PointToPolylineNM(Point{Lat: 32.0, Lon: 35.5}, line)
	if d < 20 {
		t.Errorf("past-the-end distance = %.3f, want ~25", d)
	}
	if frac != 1.0 {
		t.Errorf("past-the-end fraction = %.4f, want 1", frac)
	}

	// Degenerate polyline.
	d, _ = PointToPolylineNM(Point{Lat: 32.0, Lon: 34.0}, line[:1])
	if !math.IsInf(d, 1) {
		t.Errorf("single-vertex polyline distance = %v, want +Inf", d)
	}
}
