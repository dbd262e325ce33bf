package geodesy

import (
	"math"
	"testing"
)

func TestHaversineNM(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		wantNM     float64
		tolNM      float64
	}{
		{"zero distance", 32.0, 34.9, 32.0, 34.9, 0.0, 0.001},
		{"one degree latitude", 32.0, 34.9, 33.0, 34.9, 60.0, 0.2},
		{"tel aviv to beirut area", 32.0114, 34.8867, 33.8209, 35.4884, 111.8, 2.0},
		{"across the antimeridian", 0.0, 179.5, 0.0, -179.5, 60.0, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineNM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantNM) > tt.tolNM {
				t.Errorf("HaversineNM = %.3f, want %.3f ± %.3f", got, tt.wantNM, tt.tolNM)
			}
		})
	}
}

func TestHaversineSymmetry(t *testing.T) {
	a := HaversineNM(31.5, 34.2, 33.1, 36.0)
	b := HaversineNM(33.1, 36.0, 31.5, 34.2)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %.9f vs %.9f", a, b)
	}
}

func TestInitialBearing(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tol        float64
	}{
		{"due north", 32.0, 34.9, 33.0, 34.9, 0.0, 0.1},
		{"due south", 33.0, 34.9, 32.0, 34.9, 180.0, 0.1},
		{"due east at equator", 0.0, 34.0, 0.0, 35.0, 90.0, 0.1},
		{"due west at equator", 0.0, 35.0, 0.0, 34.0, 270.0, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialBearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if AngularDiff(got, tt.want) > tt.tol {
				t.Errorf("InitialBearing = %.3f, want %.3f", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("bearing %.3f outside [0, 360)", got)
			}
		})
	}
}

func TestAngularDiff(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{0, 180, 180},
		{90, 270, 180},
		{45, 50, 5},
		{359, 1, 2},
	}
	for _, tt := range tests {
		if got := AngularDiff(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngularDiff(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	lat, lon := 32.0, 34.9
	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		for _, dist := range []float64{1, 10, 50} {
			dLat, dLon := Destination(lat, lon, bearing, dist)
			back := HaversineNM(lat, lon, dLat, dLon)
			if math.Abs(back-dist) > 0.05 {
				t.Errorf("Destination(%v, %v NM): round-trip distance %.4f", bearing, dist, back)
			}
			if AngularDiff(InitialBearing(lat, lon, dLat, dLon), bearing) > 0.5 {
				t.Errorf("Destination(%v, %v NM): bearing mismatch", bearing, dist)
			}
		}
	}
}

func TestCrossTrackNM(t *testing.T) {
	origin := Point{Lat: 32.0, Lon: 34.0}
	dest := Point{Lat: 32.0, Lon: 36.0}

	// A point on the path has zero cross-track error.
	on := Point{Lat: 32.0, Lon: 35.0}
	if d := CrossTrackNM(origin, dest, on); d > 0.5 {
		t.Errorf("on-path cross-track = %.3f, want ~0", d)
	}

	// One degree of latitude off the path is about 60 NM off.
	off := Point{Lat: 33.0, Lon: 35.0}
	if d := CrossTrackNM(origin, dest, off); math.Abs(d-60.0) > 1.5 {
		t.Errorf("off-path cross-track = %.3f, want ~60", d)
	}

	// Degenerate: point at the origin.
	if d := CrossTrackNM(origin, dest, origin); d != 0 {
		t.Errorf("origin cross-track = %.3f, want 0", d)
	}
}

func TestFrechetNM(t *testing.T) {
	a := []Point{{32.0, 34.0}, {32.0, 34.5}, {32.0, 35.0}}

	if d := FrechetNM(a, a); d > 1e-9 {
		t.Errorf("Frechet distance to self = %v, want 0", d)
	}

	// Parallel line one degree north stays ~60 NM away everywhere.
	b := []Point{{33.0, 34.0}, {33.0, 34.5}, {33.0, 35.0}}
	if d := FrechetNM(a, b); math.Abs(d-60.0) > 1.0 {
		t.Errorf("Frechet distance = %.3f, want ~60", d)
	}

	if d := FrechetNM(nil, a); d != 0 {
		t.Errorf("Frechet with empty input = %v, want 0", d)
	}
}
