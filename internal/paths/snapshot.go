package paths

import (
	"math"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/track"
)

// Snapshot is an immutable view of the learned geometry. All methods are safe
// for concurrent use; evaluations pin one snapshot for their whole run so
// results stay deterministic even if a promotion lands mid-evaluation.
type Snapshot struct {
	cfg       Config
	Paths     []Path
	Tubes     []Tube
	TurnZones []TurnZone
	SIDs      []Procedure
	STARs     []Procedure
	Heatmap   *Heatmap
}

// PathsForOD filters paths to those a flight with the given origin and
// destination could belong to. Priority: exact O/D match, then one-sided
// matches with the other end unknown. A flight with no O/D at all, or with
// no matching paths, falls back to all paths. The second return reports
// whether O/D filtering was actually applied.
func (s *Snapshot) PathsForOD(origin, destination string) ([]Path, bool) {
	origin = NormalizeCode(origin)
	destination = NormalizeCode(destination)

	if origin == "" && destination == "" {
		return s.Paths, false
	}

	var matching []Path
	for _, p := range s.Paths {
		pOrigin := NormalizeCode(p.Origin)
		pDest := NormalizeCode(p.Destination)

		switch {
		case origin != "" && destination != "":
			exact := pOrigin == origin && pDest == destination
			originOnly := pOrigin == origin && pDest == ""
			destOnly := pOrigin == "" && pDest == destination
			if exact || originOnly || destOnly {
				matching = append(matching, p)
			}
		case origin != "":
			if pOrigin == origin {
				matching = append(matching, p)
			}
		default:
			if pDest == destination {
				matching = append(matching, p)
			}
		}
	}

	if len(matching) > 0 {
		return matching, true
	}
	return s.Paths, false
}

// TubesForOD filters tubes to those matching BOTH origin and destination
// exactly. Tube matching is stricter than path matching: with either end
// unknown, or no exact match, no tubes are eligible.
func (s *Snapshot) TubesForOD(origin, destination string) ([]Tube, bool) {
	origin = NormalizeCode(origin)
	destination = NormalizeCode(destination)

	if origin == "" || destination == "" {
		return nil, false
	}

	var matching []Tube
	for _, t := range s.Tubes {
		tOrigin := NormalizeCode(t.Origin)
		tDest := NormalizeCode(t.Destination)
		if tOrigin != "" && tDest != "" && tOrigin == origin && tDest == destination {
			matching = append(matching, t)
		}
	}

	if len(matching) > 0 {
		return matching, true
	}
	return nil, false
}

// PointInTubes returns the ID of the first tube containing the point, testing
// the altitude band first, then strict polygon containment, then the lateral
// tolerance around the polygon boundary. Empty string when no tube matches.
func (s *Snapshot) PointInTubes(p track.Point, tubes []Tube) (string, bool) {
	for _, tube := range tubes {
		minAlt := tube.MinAltFt
		maxAlt := tube.MaxAltFt
		if maxAlt == 0 {
			maxAlt = 50000.0
		}
		if p.Alt < minAlt-s.cfg.TubeAltToleranceFt || p.Alt > maxAlt+s.cfg.TubeAltToleranceFt {
			continue
		}

		if len(tube.Geometry) < 3 {
			continue
		}

		if geodesy.PointInPolygon(p.Position(), tube.Geometry) {
			return tube.ID, true
		}

		minDist := math.Inf(1)
		for i := range tube.Geometry {
			a := tube.Geometry[i]
			b := tube.Geometry[(i+1)%len(tube.Geometry)]
			d := segmentDistanceNM(p.Lat, p.Lon, a, b)
			if d < minDist {
				minDist = d
			}
		}
		if minDist <= s.cfg.TubeLateralToleranceNM {
			return tube.ID, true
		}
	}
	return "", false
}

// DistanceToPath returns the minimum lateral distance from a point to a
// path's centerline in NM and the normalized position along it.
func (s *Snapshot) DistanceToPath(lat, lon float64, p Path) (float64, float64) {
	if len(p.Centerline) < 2 {
		return math.Inf(1), 0.0
	}
	return geodesy.PointToPolylineNM(geodesy.Point{Lat: lat, Lon: lon}, p.Centerline)
}

// InTurnZone reports whether a position lies within any learned turn zone
// (zone radius plus the configured tolerance).
func (s *Snapshot) InTurnZone(lat, lon float64) bool {
	for _, z := range s.TurnZones {
		radius := z.RadiusNM
		if radius <= 0 {
			radius = 2.0
		}
		if geodesy.HaversineNM(lat, lon, z.Lat, z.Lon) <= radius+s.cfg.TurnZoneToleranceNM {
			return true
		}
	}
	return false
}

// OnSIDOrSTAR reports whether a position lies on any learned SID or STAR
// centerline within the procedure width plus tolerance.
func (s *Snapshot) OnSIDOrSTAR(lat, lon float64) bool {
	return s.onProcedure(lat, lon, s.SIDs) || s.onProcedure(lat, lon, s.STARs)
}

func (s *Snapshot) onProcedure(lat, lon float64, procs []Procedure) bool {
	p := geodesy.Point{Lat: lat, Lon: lon}
	for _, proc := range procs {
		if len(proc.Centerline) < 2 {
			continue
		}
		width := proc.WidthNM
		if width <= 0 {
			width = s.cfg.SIDSTARDefaultWidthNM
		}
		dist, _ := geodesy.PointToPolylineNM(p, proc.Centerline)
		if dist <= width+s.cfg.SIDSTARToleranceNM {
			return true
		}
	}
	return false
}

// OnKnownProcedure reports whether a position lies in a turn zone or on a
// SID/STAR. Used to suppress turn-rule false positives.
func (s *Snapshot) OnKnownProcedure(lat, lon float64) bool {
	return s.InTurnZone(lat, lon) || s.OnSIDOrSTAR(lat, lon)
}

// InPathCorridor reports whether a position lies inside the corridor polygon
// of any eligible path.
func (s *Snapshot) InPathCorridor(lat, lon float64, paths []Path) bool {
	p := geodesy.Point{Lat: lat, Lon: lon}
	for _, path := range paths {
		if len(path.Centerline) < 2 {
			continue
		}
		poly := geodesy.CorridorPolygon(path.Centerline, path.WidthNM)
		if len(poly) >= 3 && geodesy.PointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

// Flightable reports whether the position is in a historically-trafficked
// heatmap cell. With no heatmap loaded, everywhere is flightable.
func (s *Snapshot) Flightable(lat, lon float64) bool {
	return s.Heatmap.Flightable(lat, lon)
}

// segmentDistanceNM approximates the minimum great-circle distance from a
// point to a segment by checking both endpoints and 10 interior samples.
// Accurate enough at corridor scales.
func segmentDistanceNM(lat, lon float64, a, b geodesy.Point) float64 {
	if math.Abs(a.Lat-b.Lat) < 1e-7 && math.Abs(a.Lon-b.Lon) < 1e-7 {
		return geodesy.HaversineNM(lat, lon, a.Lat, a.Lon)
	}

	minDist := math.Min(
		geodesy.HaversineNM(lat, lon, a.Lat, a.Lon),
		geodesy.HaversineNM(lat, lon, b.Lat, b.Lon),
	)
	for i := 1; i < 10; i++ {
		t := float64(i) / 10.0
		sampleLat := a.Lat + t*(b.Lat-a.Lat)
		sampleLon := a.Lon + t*(b.Lon-a.Lon)
		if d := geodesy.HaversineNM(lat, lon, sampleLat, sampleLon); d < minDist {
			minDist = d
		}
	}
	return minDist
}
