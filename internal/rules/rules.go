// Package rules implements the anomaly rule evaluators: independent
// detectors that each scan an ordered track and report whether the flight's
// behavior matched their condition. Evaluators are pure with respect to their
// inputs; all thresholds arrive through the configuration, never as
// package-level state.
package rules

import (
	"context"

	"github.com/yegors/skywatch/internal/airports"
	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/physics"
	"github.com/yegors/skywatch/internal/track"
)

// Context carries everything an evaluator may need for one flight. The point
// slice is sorted once by the engine and shared read-only by all evaluators.
type Context struct {
	Track    *track.FlightTrack
	Points   []track.Point // sorted by timestamp
	Metadata *track.FlightMetadata

	Repo     track.Repository // nil when cross-flight rules should skip
	Airports *airports.Store
	Paths    *paths.Snapshot
	Library  *paths.Store // nil disables emerging-path recording

	Cfg    *config.Config
	Limits physics.Limits
	Glitch physics.GlitchLimits
}

// Result is one evaluator's verdict for one flight. Details holds a
// rule-specific struct (see the *Details types) so downstream consumers get a
// stable shape instead of a free-form map.
type Result struct {
	RuleID  int    `json:"rule_id"`
	Matched bool   `json:"matched"`
	Summary string `json:"summary"`
	Details any    `json:"details,omitempty"`
}

// Evaluator is a single anomaly detector. Evaluate must not panic on
// degenerate tracks (empty, single point, missing optional fields) and must
// not mutate the context.
type Evaluator interface {
	ID() int
	Name() string
	Evaluate(ctx context.Context, rc *Context) Result
}

// NotImplemented is the result returned for rule ids with no registered
// evaluator. It is a skip, not an anomaly.
func NotImplemented(ruleID int) Result {
	return Result{RuleID: ruleID, Matched: false, Summary: "Rule not implemented"}
}

// Registry maps rule ids to evaluators.
type Registry struct {
	evaluators map[int]Evaluator
}

// NewRegistry returns a registry with every built-in evaluator registered.
func NewRegistry() *Registry {
	r := &Registry{evaluators: make(map[int]Evaluator)}
	for _, e := range []Evaluator{
		&EmergencySquawkRule{},
		&AltitudeChangeRule{},
		&AbruptTurnRule{},
		&ProximityRule{},
		&GoAroundRule{},
		&ReturnToFieldRule{},
		&DiversionRule{},
		&LowAltitudeRule{},
		&SignalLossRule{},
		&OffCourseRule{},
		&UnplannedLandingRule{},
		&MilitaryRule{},
		&CircularFlightRule{},
		&DistanceTrendRule{},
		&SignalDropoutRule{},
	} {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the evaluator for its rule id.
func (r *Registry) Register(e Evaluator) {
	r.evaluators[e.ID()] = e
}

// Lookup returns the evaluator for a rule id.
func (r *Registry) Lookup(ruleID int) (Evaluator, bool) {
	e, ok := r.evaluators[ruleID]
	return e, ok
}

// Evaluate runs the evaluator for ruleID, or returns a NotImplemented result.
func (r *Registry) Evaluate(ctx context.Context, rc *Context, ruleID int) Result {
	e, ok := r.evaluators[ruleID]
	if !ok {
		return NotImplemented(ruleID)
	}
	return e.Evaluate(ctx, rc)
}

// nearestAirport is the shared airport lookup used across evaluators.
func (rc *Context) nearestAirport(p track.Point) (airports.Airport, float64, bool) {
	return rc.Airports.Nearest(p.Lat, p.Lon)
}

// impossible reports whether the point at idx fails the plausibility filter.
func (rc *Context) impossible(idx int) bool {
	return physics.ImpossiblePoint(rc.Points, idx, rc.Limits)
}

func fvalue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func svalue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
