// Package track defines the flight track data model shared by the rule
// engine, the path library, and the storage backends.
package track

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/yegors/skywatch/internal/geodesy"
)

// ErrFlightNotFound is returned by repositories when no points exist for the
// requested flight ID.
var ErrFlightNotFound = errors.New("flight not found")

// Point is a single time-stamped trajectory sample. Optional fields are
// pointers: a nil value means the feed did not report it, which is distinct
// from zero.
type Point struct {
	FlightID  string   `json:"flight_id"`
	Timestamp int64    `json:"timestamp"` // unix seconds, UTC
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Alt       float64  `json:"alt"` // feet
	GSpeed    *float64 `json:"gspeed,omitempty"` // knots
	VSpeed    *float64 `json:"vspeed,omitempty"` // feet per minute
	Track     *float64 `json:"track,omitempty"`  // degrees true
	Squawk    *string  `json:"squawk,omitempty"`
	Callsign  *string  `json:"callsign,omitempty"`
	Source    *string  `json:"source,omitempty"`
}

// Position returns the point's geographic position.
func (p Point) Position() geodesy.Point {
	return geodesy.Point{Lat: p.Lat, Lon: p.Lon}
}

// Time returns the point's timestamp as a time.Time in UTC.
func (p Point) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}

// FlightTrack is an unordered collection of points for one flight.
type FlightTrack struct {
	FlightID string  `json:"flight_id"`
	Points   []Point `json:"points"`
}

// SortedPoints returns a copy of the track's points ordered by ascending
// timestamp. The receiver is never mutated.
func (t *FlightTrack) SortedPoints() []Point {
	out := make([]Point, len(t.Points))
	copy(out, t.Points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Duration returns the time span covered by the track in seconds.
func (t *FlightTrack) Duration() int64 {
	if len(t.Points) < 2 {
		return 0
	}
	pts := t.SortedPoints()
	return pts[len(pts)-1].Timestamp - pts[0].Timestamp
}

// FlightMetadata carries flight-plan and airframe attributes when available.
// Empty strings mean unknown. Rules that need metadata return non-matched
// results with a reason rather than failing.
type FlightMetadata struct {
	Callsign     string          `json:"callsign,omitempty"`
	Origin       string          `json:"origin,omitempty"`      // airport code
	Destination  string          `json:"destination,omitempty"` // planned destination code
	AircraftType string          `json:"aircraft_type,omitempty"`
	Registration string          `json:"registration,omitempty"`
	Category     string          `json:"category,omitempty"`
	Operator     string          `json:"operator,omitempty"`
	PlannedRoute []geodesy.Point `json:"planned_route,omitempty"`
}

// Repository is the read capability that cross-flight rules need. Both the
// SQLite store and the in-memory store implement it.
type Repository interface {
	// FetchFlight returns the full track for a flight, or ErrFlightNotFound.
	FetchFlight(ctx context.Context, flightID string) (*FlightTrack, error)
	// FetchPointsBetween returns all points from all flights within the
	// inclusive timestamp range.
	FetchPointsBetween(ctx context.Context, minTS, maxTS int64) ([]Point, error)
	// FetchFlightIDsInBox returns IDs of flights with at least one point
	// inside the bounding box.
	FetchFlightIDsInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]string, error)
	// FetchRecentFlights returns flights with points newer than the cutoff.
	FetchRecentFlights(ctx context.Context, cutoff time.Time) ([]*FlightTrack, error)
}

// Sanitize drops malformed points (NaN coordinates, latitude outside ±90,
// longitude outside ±180) and returns the surviving points plus the number
// dropped. The input slice is not modified.
func Sanitize(points []Point) ([]Point, int) {
	out := make([]Point, 0, len(points))
	dropped := 0
	for _, p := range points {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsNaN(p.Alt) ||
			p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			dropped++
			continue
		}
		out = append(out, p)
	}
	return out, dropped
}
