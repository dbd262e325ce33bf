package paths

import (
	"fmt"
	"math"
	"time"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/pkg/logger"
)

// HeadingSignature compresses a point sequence into a compact tuple for
// emerging-path bucketing: points are grouped into fixed-duration time
// buckets, and each bucket's mean heading is quantized into binSizeDeg
// sectors. Reported track is preferred; the movement bearing is the fallback.
func HeadingSignature(points []track.Point, binSeconds, binSizeDeg int) []int {
	if len(points) == 0 || binSeconds <= 0 || binSizeDeg <= 0 {
		return nil
	}

	ordered := (&track.FlightTrack{Points: points}).SortedPoints()
	nextBucketTS := ordered[0].Timestamp + int64(binSeconds)

	var bucketHeadings []float64
	var signature []int
	prev := ordered[0]

	for _, p := range ordered[1:] {
		var heading float64
		if p.Track != nil {
			heading = *p.Track
		} else {
			heading = geodesy.InitialBearing(prev.Lat, prev.Lon, p.Lat, p.Lon)
		}

		bucketHeadings = append(bucketHeadings, math.Mod(heading, 360.0))

		if p.Timestamp >= nextBucketTS {
			signature = append(signature, quantizeMean(bucketHeadings, binSizeDeg))
			bucketHeadings = nil
			nextBucketTS += int64(binSeconds)
		}

		prev = p
	}

	if len(bucketHeadings) > 0 {
		signature = append(signature, quantizeMean(bucketHeadings, binSizeDeg))
	}

	return signature
}

func quantizeMean(headings []float64, binSizeDeg int) int {
	sum := 0.0
	for _, h := range headings {
		sum += h
	}
	mean := sum / float64(len(headings))
	return int(mean) / binSizeDeg
}

// Resample interpolates a point sequence to a fixed-length centerline,
// uniform in cumulative great-circle distance. Duplicate timestamps are
// collapsed. Returns nil when the track is too short or has zero length.
func Resample(points []track.Point, numSamples int) []geodesy.Point {
	if len(points) < 2 || numSamples < 2 {
		return nil
	}

	ordered := (&track.FlightTrack{Points: points}).SortedPoints()

	uniq := ordered[:0:0]
	seen := make(map[int64]bool, len(ordered))
	for _, p := range ordered {
		if seen[p.Timestamp] {
			continue
		}
		seen[p.Timestamp] = true
		uniq = append(uniq, p)
	}
	if len(uniq) < 2 {
		return nil
	}

	cum := make([]float64, len(uniq))
	for i := 1; i < len(uniq); i++ {
		d := geodesy.HaversineNM(uniq[i-1].Lat, uniq[i-1].Lon, uniq[i].Lat, uniq[i].Lon)
		cum[i] = cum[i-1] + d
	}
	total := cum[len(cum)-1]
	if total == 0.0 {
		return nil
	}

	out := make([]geodesy.Point, numSamples)
	seg := 0
	for i := 0; i < numSamples; i++ {
		target := total * float64(i) / float64(numSamples-1)
		for seg < len(cum)-2 && cum[seg+1] < target {
			seg++
		}

		span := cum[seg+1] - cum[seg]
		t := 0.0
		if span > 0 {
			t = (target - cum[seg]) / span
		}
		out[i] = geodesy.Point{
			Lat: uniq[seg].Lat + t*(uniq[seg+1].Lat-uniq[seg].Lat),
			Lon: uniq[seg].Lon + t*(uniq[seg+1].Lon-uniq[seg].Lon),
		}
	}
	return out
}

// RecordOffPath appends a flight to the emerging-path bucket matching its
// off-path heading signature, and promotes a new centerline path once the
// bucket reaches the configured size. Returns the promoted path, or nil when
// the flight only accumulated. The library file is rewritten and a new
// snapshot published on every call.
func (s *Store) RecordOffPath(t *track.FlightTrack, offPoints []track.Point) (*Path, error) {
	if len(offPoints) == 0 {
		return nil, nil
	}

	signature := HeadingSignature(offPoints, s.cfg.EmergingBinSeconds, s.cfg.EmergingSimilarityDeg)
	if len(signature) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var bucket *Bucket
	for i := range s.doc.EmergingBuckets {
		if equalSignature(s.doc.EmergingBuckets[i].Signature, signature) {
			bucket = &s.doc.EmergingBuckets[i]
			break
		}
	}
	if bucket == nil {
		s.doc.EmergingBuckets = append(s.doc.EmergingBuckets, Bucket{Signature: signature})
		bucket = &s.doc.EmergingBuckets[len(s.doc.EmergingBuckets)-1]
	}

	bucket.Count++
	bucket.FlightIDs = append(bucket.FlightIDs, t.FlightID)
	bucket.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	var promoted *Path
	if bucket.Count >= s.cfg.EmergingBucketSize {
		if centerline := Resample(t.Points, s.cfg.NumSamples); centerline != nil {
			width := s.promotedWidth(t.Points, centerline)

			path := Path{
				ID:         fmt.Sprintf("emerging_%d", len(s.doc.EmergingPaths)+1),
				Type:       PathTypeEmerging,
				WidthNM:    width,
				Centerline: centerline,
				NumFlights: bucket.Count,
				Signature:  signature,
			}
			s.doc.EmergingPaths = append(s.doc.EmergingPaths, path)
			s.removeBucket(signature)
			promoted = &path

			s.logger.Info("Promoted emerging path",
				logger.String("path_id", path.ID),
				logger.Float64("width_nm", width),
				logger.Int("num_flights", path.NumFlights),
			)
		}
	}

	if err := s.save(); err != nil {
		return nil, err
	}
	return promoted, nil
}

// promotedWidth derives a new path's width from the spread of the member
// flight's perpendicular distances to the centerline, floored at the
// configured minimum.
func (s *Store) promotedWidth(points []track.Point, centerline []geodesy.Point) float64 {
	dists := make([]float64, 0, len(points))
	for _, p := range points {
		d, _ := geodesy.PointToPolylineNM(p.Position(), centerline)
		if !math.IsInf(d, 1) {
			dists = append(dists, d)
		}
	}
	if len(dists) == 0 {
		return s.cfg.DefaultWidthNM
	}

	mean := 0.0
	for _, d := range dists {
		mean += d
	}
	mean /= float64(len(dists))

	variance := 0.0
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(dists))

	return math.Max(math.Sqrt(variance), s.cfg.MinWidthNM)
}

func (s *Store) removeBucket(signature []int) {
	for i := range s.doc.EmergingBuckets {
		if equalSignature(s.doc.EmergingBuckets[i].Signature, signature) {
			s.doc.EmergingBuckets = append(s.doc.EmergingBuckets[:i], s.doc.EmergingBuckets[i+1:]...)
			return
		}
	}
}

func equalSignature(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
