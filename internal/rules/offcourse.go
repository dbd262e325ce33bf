package rules

import (
	"context"
	"fmt"

	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/physics"
	"github.com/yegors/skywatch/internal/track"
)

// OffCourseRule checks path adherence against learned tube corridors matched
// by the flight's origin/destination pair. Points outside every tube count as
// off-path; points in low-activity heatmap cells count as wrong-region. Far
// points feed the emerging-path detector so repeated new routes become
// learned paths instead of repeated alerts.
type OffCourseRule struct{}

func (r *OffCourseRule) ID() int      { return 11 }
func (r *OffCourseRule) Name() string { return "Off-course" }

// PathSample is one classified track point.
type PathSample struct {
	Timestamp  int64   `json:"timestamp"`
	PathID     string  `json:"path_id,omitempty"`
	DistanceNM float64 `json:"distance_nm"`
	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
}

// OffCourseDetails summarizes the adherence scan.
type OffCourseDetails struct {
	OnPathPoints      int            `json:"on_path_points"`
	OffPathPoints     int            `json:"off_path_points"`
	WrongRegionPoints int            `json:"wrong_region_points"`
	Assignments       map[string]int `json:"assignments,omitempty"`
	OnPathSamples     []PathSample   `json:"on_path_samples,omitempty"`
	OffPathSamples    []PathSample   `json:"off_path_samples,omitempty"`
	WrongRegion       []PathSample   `json:"wrong_region_samples,omitempty"`
	EmergingPromoted  string         `json:"emerging_promoted,omitempty"`
	ThresholdPoints   int            `json:"threshold_points"`
	Origin            string         `json:"detected_origin,omitempty"`
	Destination       string         `json:"detected_destination,omitempty"`
	UsedODFilter      bool           `json:"used_od_filter"`
	TubesChecked      int            `json:"tubes_checked"`
}

func (r *OffCourseRule) Evaluate(_ context.Context, rc *Context) Result {
	points := rc.Points
	if len(points) == 0 {
		return Result{RuleID: r.ID(), Matched: false, Summary: "No track data"}
	}

	var origin, destination string
	if rc.Metadata != nil {
		origin = paths.NormalizeCode(rc.Metadata.Origin)
		destination = paths.NormalizeCode(rc.Metadata.Destination)
	}

	// Without both endpoints the corridor set is undefined; guessing one
	// produces false deviations.
	if origin == "" || destination == "" {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Missing origin or destination (origin=%q, destination=%q) - cannot check deviation", origin, destination)}
	}
	if origin == destination {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("Origin and destination are the same (%s) - cannot check deviation", origin)}
	}

	tubes, usedODFilter := rc.Paths.TubesForOD(origin, destination)
	if len(tubes) == 0 {
		return Result{RuleID: r.ID(), Matched: false,
			Summary: fmt.Sprintf("No tubes found for route %s -> %s - cannot check deviation", origin, destination)}
	}

	cfg := rc.Cfg.Rules.OffCourse
	var onPath, offPath, wrongRegion []PathSample
	var farPoints []track.Point
	assignments := make(map[string]int)

	for idx, p := range points {
		if rc.impossible(idx) {
			continue
		}
		if idx > 0 {
			_, airportDist, _ := rc.nearestAirport(p)
			if physics.BadSegment(points[idx-1], p, airportDist) {
				continue
			}
		}
		if p.Alt <= cfg.MinAltitudeFt {
			continue
		}

		if tubeID, inside := rc.Paths.PointInTubes(p, tubes); inside {
			assignments[tubeID]++
			onPath = append(onPath, PathSample{Timestamp: p.Timestamp, PathID: tubeID, DistanceNM: 0.0})
			continue
		}

		offRecord := PathSample{Timestamp: p.Timestamp, DistanceNM: 999.0, Lat: p.Lat, Lon: p.Lon}
		offPath = append(offPath, offRecord)
		farPoints = append(farPoints, p)
		if !rc.Paths.Flightable(p.Lat, p.Lon) {
			wrongRegion = append(wrongRegion, offRecord)
		}
	}

	var promotedID string
	if len(farPoints) > 0 && rc.Library != nil {
		if promoted, err := rc.Library.RecordOffPath(rc.Track, farPoints); err == nil && promoted != nil {
			promotedID = promoted.ID
		}
	}

	matched := len(offPath) >= cfg.MinOffCoursePoints || len(wrongRegion) > 0
	summary := "Flight stayed within known corridors"
	if matched {
		summary = "Flight deviated from known paths"
	}
	if len(wrongRegion) > 0 {
		summary = "Entered low-activity region"
	}

	details := OffCourseDetails{
		OnPathPoints:      len(onPath),
		OffPathPoints:     len(offPath),
		WrongRegionPoints: len(wrongRegion),
		Assignments:       assignments,
		OnPathSamples:     capSamples(onPath),
		OffPathSamples:    capSamples(offPath),
		WrongRegion:       capSamples(wrongRegion),
		EmergingPromoted:  promotedID,
		ThresholdPoints:   cfg.MinOffCoursePoints,
		Origin:            origin,
		Destination:       destination,
		UsedODFilter:      usedODFilter,
		TubesChecked:      len(tubes),
	}

	return Result{RuleID: r.ID(), Matched: matched, Summary: summary, Details: details}
}

func capSamples(s []PathSample) []PathSample {
	if len(s) > 50 {
		return s[:50]
	}
	return s
}
