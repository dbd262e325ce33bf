// Package monitor drives batch rule evaluation: it pulls flights from
// storage, fans them out to the rule engine under a concurrency limit, and
// publishes the resulting reports to storage and the WebSocket stream.
package monitor

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/skywatch/internal/config"
	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/internal/websocket"
	"github.com/yegors/skywatch/pkg/logger"
)

// TrackSource is what the monitor needs from track storage.
type TrackSource interface {
	track.Repository
	FetchMetadata(ctx context.Context, flightID string) (*track.FlightMetadata, error)
}

// ReportSink persists finished reports.
type ReportSink interface {
	Save(ctx context.Context, report *rules.Report) error
	Get(ctx context.Context, flightID string) (*rules.Report, error)
}

// Monitor coordinates evaluation runs. Reports are cached by flight ID so
// repeated API reads of the same flight skip re-evaluation.
type Monitor struct {
	cfg     *config.Config
	engine  *rules.Engine
	source  TrackSource
	reports ReportSink
	ws      *websocket.Server
	cache   *lru.Cache[string, *rules.Report]
	log     *logger.Logger
}

// New creates a monitor. The WebSocket server may be nil for offline batch
// runs.
func New(cfg *config.Config, engine *rules.Engine, source TrackSource, reports ReportSink, ws *websocket.Server, log *logger.Logger) (*Monitor, error) {
	cache, err := lru.New[string, *rules.Report](cfg.Monitor.ReportCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating report cache: %w", err)
	}
	return &Monitor{
		cfg:     cfg,
		engine:  engine,
		source:  source,
		reports: reports,
		ws:      ws,
		cache:   cache,
		log:     log.Named("monitor"),
	}, nil
}

// EvaluateFlight evaluates one stored flight, serving from the cache when the
// report was already computed this session.
func (m *Monitor) EvaluateFlight(ctx context.Context, flightID string) (*rules.Report, error) {
	if report, ok := m.cache.Get(flightID); ok {
		return report, nil
	}

	ft, err := m.source.FetchFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	meta, err := m.source.FetchMetadata(ctx, flightID)
	if err != nil {
		m.log.Warn("failed to fetch flight metadata",
			logger.String("flight_id", flightID),
			logger.Error(err))
	}

	return m.evaluate(ctx, ft, meta)
}

// EvaluateSubmitted evaluates an ad-hoc track that may not be in storage.
func (m *Monitor) EvaluateSubmitted(ctx context.Context, ft *track.FlightTrack, meta *track.FlightMetadata) (*rules.Report, error) {
	return m.evaluate(ctx, ft, meta)
}

// CachedReport returns the report for a flight, from cache or storage,
// without triggering evaluation. The bool reports whether one was found.
func (m *Monitor) CachedReport(ctx context.Context, flightID string) (*rules.Report, bool, error) {
	if report, ok := m.cache.Get(flightID); ok {
		return report, true, nil
	}
	report, err := m.reports.Get(ctx, flightID)
	if err != nil {
		return nil, false, err
	}
	if report == nil {
		return nil, false, nil
	}
	m.cache.Add(flightID, report)
	return report, true, nil
}

// EvaluateRecent evaluates every flight with points newer than the cutoff,
// bounded by the configured concurrency. It returns how many flights were
// evaluated; individual evaluation failures are logged, not fatal.
func (m *Monitor) EvaluateRecent(ctx context.Context, cutoff time.Time) (int, error) {
	flights, err := m.source.FetchRecentFlights(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fetching recent flights: %w", err)
	}
	if len(flights) == 0 {
		return 0, nil
	}

	m.log.Info("starting batch evaluation",
		logger.Int("flights", len(flights)),
		logger.Int("concurrency", m.cfg.Monitor.MaxConcurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Monitor.MaxConcurrency)

	for _, ft := range flights {
		ft := ft
		g.Go(func() error {
			meta, err := m.source.FetchMetadata(gctx, ft.FlightID)
			if err != nil {
				m.log.Warn("failed to fetch flight metadata",
					logger.String("flight_id", ft.FlightID),
					logger.Error(err))
			}
			if _, err := m.evaluate(gctx, ft, meta); err != nil {
				m.log.Error("flight evaluation failed",
					logger.String("flight_id", ft.FlightID),
					logger.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(flights), nil
}

// Run evaluates recent flights on a fixed interval until the context is
// canceled. Each sweep covers twice the interval so boundary flights are
// never missed.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * interval)
			if _, err := m.EvaluateRecent(ctx, cutoff); err != nil {
				m.log.Error("batch evaluation sweep failed", logger.Error(err))
			}
		}
	}
}

func (m *Monitor) evaluate(ctx context.Context, ft *track.FlightTrack, meta *track.FlightMetadata) (*rules.Report, error) {
	report, err := m.engine.EvaluateTrack(ctx, ft, meta)
	if err != nil {
		return nil, err
	}

	if m.reports != nil {
		if err := m.reports.Save(ctx, report); err != nil {
			m.log.Error("failed to persist report",
				logger.String("flight_id", report.FlightID),
				logger.Error(err))
		}
	}
	m.cache.Add(report.FlightID, report)
	m.publish(report)
	return report, nil
}

// publish pushes the evaluation outcome onto the WebSocket stream.
func (m *Monitor) publish(report *rules.Report) {
	if m.ws == nil {
		return
	}

	msgType := websocket.MessageTypeReportCompleted
	switch {
	case report.Filtered:
		msgType = websocket.MessageTypeFlightFiltered
	case report.MatchedRules > 0:
		msgType = websocket.MessageTypeAnomalyAlert
	}

	m.ws.Broadcast(&websocket.Message{
		Type: msgType,
		Data: map[string]any{
			"flight_id":     report.FlightID,
			"total_rules":   report.TotalRules,
			"matched_rules": report.MatchedRules,
			"max_severity":  maxSeverity(report),
			"filter_reason": report.FilterReason,
			"generated_at":  report.GeneratedAt,
		},
	})
}

// severityRank orders severities for the alert stream's max_severity field.
var severityRank = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

func maxSeverity(report *rules.Report) string {
	best := ""
	bestRank := 0
	for _, ev := range report.Evaluations {
		if !ev.Matched {
			continue
		}
		if rank := severityRank[ev.Severity]; rank > bestRank {
			bestRank = rank
			best = ev.Severity
		}
	}
	return best
}
