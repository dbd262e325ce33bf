package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/yegors/skywatch/internal/airports"
	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/paths"
	"github.com/yegors/skywatch/internal/physics"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/pkg/logger"
)

// RuleInfo is one catalog entry: the operator-facing description of a rule.
// The catalog drives which rules run and in what order; ids without a
// registered evaluator produce a "Rule not implemented" evaluation.
type RuleInfo struct {
	ID                      int    `json:"id"`
	Name                    string `json:"name"`
	Definition              string `json:"definition"`
	OperationalSignificance string `json:"operational_significance"`
	Severity                string `json:"severity"`
	Category                string `json:"category"`
}

// Evaluation is one rule's entry in a flight report: the catalog description
// joined with the evaluator's verdict.
type Evaluation struct {
	ID                      int    `json:"id"`
	Name                    string `json:"name"`
	Definition              string `json:"definition"`
	OperationalSignificance string `json:"operational_significance"`
	Severity                string `json:"severity"`
	Category                string `json:"category"`
	Matched                 bool   `json:"matched"`
	Summary                 string `json:"summary"`
	Details                 any    `json:"details,omitempty"`
}

// Report is the full rule-evaluation output for one flight.
type Report struct {
	FlightID     string       `json:"flight_id"`
	GeneratedAt  time.Time    `json:"generated_at"`
	TotalRules   int          `json:"total_rules"`
	MatchedRules int          `json:"matched_rules"`
	Filtered     bool         `json:"filtered,omitempty"`
	FilterReason string       `json:"filter_reason,omitempty"`
	Evaluations  []Evaluation `json:"evaluations"`
}

// Engine evaluates the full rule catalog against flight tracks. It owns the
// shared read-only inputs (airport store, learned path snapshot source) and
// builds a fresh evaluation context per flight.
type Engine struct {
	cfg      *config.Config
	catalog  []RuleInfo
	registry *Registry
	airports *airports.Store
	library  *paths.Store
	repo     track.Repository
	limits   physics.Limits
	glitch   physics.GlitchLimits
	log      *logger.Logger
}

// NewEngine loads the rule catalog and wires the shared stores.
func NewEngine(cfg *config.Config, airportStore *airports.Store, library *paths.Store, repo track.Repository, log *logger.Logger) (*Engine, error) {
	catalog, err := LoadCatalog(cfg.Rules.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("loading rule catalog: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		catalog:  catalog,
		registry: NewRegistry(),
		airports: airportStore,
		library:  library,
		repo:     repo,
		limits:   cfg.Physics.Limits(),
		glitch:   cfg.Physics.GlitchLimits(),
		log:      log.Named("rules"),
	}, nil
}

// LoadCatalog reads the rule catalog JSON and returns entries sorted by id.
func LoadCatalog(path string) ([]RuleInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var catalog []RuleInfo
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].ID < catalog[j].ID })
	return catalog, nil
}

// Catalog returns the loaded rule descriptions.
func (e *Engine) Catalog() []RuleInfo {
	return e.catalog
}

// hasPointsAboveAltitude reports whether more than minAbove points exceed the
// altitude threshold. Flights that never climb past the floor are local
// traffic the ruleset is not tuned for.
func hasPointsAboveAltitude(points []track.Point, thresholdFt float64, minAbove int) bool {
	count := 0
	for _, p := range points {
		if p.Alt > thresholdFt {
			count++
			if count > minAbove-1 {
				return true
			}
		}
	}
	return false
}

// excludedCallsign returns the first callsign on the track matching an
// excluded prefix, or "" when none match.
func excludedCallsign(points []track.Point, prefixes []string) string {
	for _, p := range points {
		cs := strings.ToUpper(strings.TrimSpace(svalue(p.Callsign)))
		if cs == "" {
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(cs, prefix) {
				return cs
			}
		}
	}
	return ""
}

// gatewayCheck applies the pre-evaluation filters. It returns a non-empty
// reason when the flight should not be evaluated at all.
func (e *Engine) gatewayCheck(points []track.Point) string {
	gw := e.cfg.Gateway
	if !hasPointsAboveAltitude(points, gw.MinAltitudeFt, gw.MinPointsAbove) {
		return fmt.Sprintf("never sustained altitude above %.0f ft", gw.MinAltitudeFt)
	}
	if cs := excludedCallsign(points, gw.ExcludedPrefixes); cs != "" {
		return fmt.Sprintf("excluded callsign prefix (%s)", cs)
	}
	return ""
}

// EvaluateTrack runs the entire catalog against one flight and assembles the
// report. Filtered flights get a report with no evaluations rather than an
// error, so callers can persist the filter decision.
func (e *Engine) EvaluateTrack(ctx context.Context, ft *track.FlightTrack, meta *track.FlightMetadata) (*Report, error) {
	if ft == nil || len(ft.Points) == 0 {
		return nil, fmt.Errorf("flight %s: no track points", flightID(ft))
	}

	points := ft.SortedPoints()
	report := &Report{
		FlightID:    ft.FlightID,
		GeneratedAt: time.Now().UTC(),
		TotalRules:  len(e.catalog),
	}

	if reason := e.gatewayCheck(points); reason != "" {
		report.Filtered = true
		report.FilterReason = reason
		e.log.Debug("flight filtered before evaluation",
			logger.String("flight_id", ft.FlightID),
			logger.String("reason", reason))
		return report, nil
	}

	rc := &Context{
		Track:    ft,
		Points:   points,
		Metadata: meta,
		Repo:     e.repo,
		Airports: e.airports,
		Paths:    e.library.Snapshot(),
		Library:  e.library,
		Cfg:      e.cfg,
		Limits:   e.limits,
		Glitch:   e.glitch,
	}

	for _, info := range e.catalog {
		result := e.evaluateOne(ctx, rc, info)
		if result.Matched {
			report.MatchedRules++
		}
		report.Evaluations = append(report.Evaluations, Evaluation{
			ID:                      info.ID,
			Name:                    info.Name,
			Definition:              info.Definition,
			OperationalSignificance: info.OperationalSignificance,
			Severity:                info.Severity,
			Category:                info.Category,
			Matched:                 result.Matched,
			Summary:                 result.Summary,
			Details:                 result.Details,
		})
	}

	e.log.Info("flight evaluated",
		logger.String("flight_id", ft.FlightID),
		logger.Int("total_rules", report.TotalRules),
		logger.Int("matched_rules", report.MatchedRules))
	return report, nil
}

// evaluateOne runs a single rule with panic isolation. A misbehaving
// evaluator must not take down the whole report.
func (e *Engine) evaluateOne(ctx context.Context, rc *Context, info RuleInfo) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("rule evaluator panicked",
				logger.Int("rule_id", info.ID),
				logger.String("flight_id", rc.Track.FlightID),
				logger.Any("panic", r))
			result = Result{RuleID: info.ID, Matched: false,
				Summary: "Rule evaluation failed"}
		}
	}()

	start := time.Now()
	result = e.registry.Evaluate(ctx, rc, info.ID)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		e.log.Warn("slow rule evaluation",
			logger.Int("rule_id", info.ID),
			logger.String("flight_id", rc.Track.FlightID),
			logger.Duration("elapsed", elapsed))
	}
	return result
}

func flightID(ft *track.FlightTrack) string {
	if ft == nil {
		return "?"
	}
	return ft.FlightID
}
