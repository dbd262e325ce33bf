package track

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository serves flight data from an in-memory map. It backs
// realtime proximity checks when no database is configured, and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	flights map[string]*FlightTrack
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{flights: make(map[string]*FlightTrack)}
}

// Put replaces the stored track for a flight with a copy of the given one.
func (r *MemoryRepository) Put(t *FlightTrack) {
	pts := make([]Point, len(t.Points))
	copy(pts, t.Points)

	r.mu.Lock()
	r.flights[t.FlightID] = &FlightTrack{FlightID: t.FlightID, Points: pts}
	r.mu.Unlock()
}

// AppendPoints adds points to a flight, creating it if needed.
func (r *MemoryRepository) AppendPoints(flightID string, points ...Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.flights[flightID]
	if !ok {
		t = &FlightTrack{FlightID: flightID}
		r.flights[flightID] = t
	}
	t.Points = append(t.Points, points...)
}

// FetchFlight implements Repository.
func (r *MemoryRepository) FetchFlight(_ context.Context, flightID string) (*FlightTrack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.flights[flightID]
	if !ok {
		return nil, ErrFlightNotFound
	}
	pts := make([]Point, len(t.Points))
	copy(pts, t.Points)
	return &FlightTrack{FlightID: t.FlightID, Points: pts}, nil
}

// FetchPointsBetween implements Repository. Linear scan over all flights,
// acceptable for the small windows realtime checks use.
func (r *MemoryRepository) FetchPointsBetween(_ context.Context, minTS, maxTS int64) ([]Point, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Point
	for _, t := range r.flights {
		for _, p := range t.Points {
			if p.Timestamp >= minTS && p.Timestamp <= maxTS {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// FetchFlightIDsInBox implements Repository.
func (r *MemoryRepository) FetchFlightIDsInBox(_ context.Context, minLat, maxLat, minLon, maxLon float64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, t := range r.flights {
		for _, p := range t.Points {
			if p.Lat >= minLat && p.Lat <= maxLat && p.Lon >= minLon && p.Lon <= maxLon {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

// FetchRecentFlights implements Repository.
func (r *MemoryRepository) FetchRecentFlights(_ context.Context, cutoff time.Time) ([]*FlightTrack, error) {
	cutoffTS := cutoff.Unix()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*FlightTrack
	for _, t := range r.flights {
		for _, p := range t.Points {
			if p.Timestamp >= cutoffTS {
				pts := make([]Point, len(t.Points))
				copy(pts, t.Points)
				out = append(out, &FlightTrack{FlightID: t.FlightID, Points: pts})
				break
			}
		}
	}
	return out, nil
}
