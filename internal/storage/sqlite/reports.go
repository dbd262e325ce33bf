package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yegors/skywatch/internal/rules"
	"github.com/yegors/skywatch/pkg/logger"
)

// ReportStorage persists rule evaluation reports. Reports are stored whole as
// JSON; the summary columns exist so listings never deserialize full reports.
type ReportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// ReportSummary is one row of a report listing.
type ReportSummary struct {
	FlightID     string    `json:"flight_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	TotalRules   int       `json:"total_rules"`
	MatchedRules int       `json:"matched_rules"`
	Filtered     bool      `json:"filtered"`
	FilterReason string    `json:"filter_reason,omitempty"`
}

// NewReportStorage creates a report storage sharing the track storage's
// database connection.
func NewReportStorage(db *sql.DB, log *logger.Logger) *ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: log.Named("reports"),
	}
}

// Save inserts or replaces the report for a flight.
func (s *ReportStorage) Save(ctx context.Context, report *rules.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// A flights row may not exist when the report was built from an ad-hoc
	// submission rather than stored points.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO flights (flight_id) VALUES (?)
		ON CONFLICT(flight_id) DO NOTHING
	`, report.FlightID); err != nil {
		return fmt.Errorf("failed to ensure flight row: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (
			flight_id, generated_at, total_rules, matched_rules,
			filtered, filter_reason, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flight_id) DO UPDATE SET
			generated_at = excluded.generated_at,
			total_rules = excluded.total_rules,
			matched_rules = excluded.matched_rules,
			filtered = excluded.filtered,
			filter_reason = excluded.filter_reason,
			report_json = excluded.report_json
	`,
		report.FlightID, report.GeneratedAt.UTC().Format(time.RFC3339),
		report.TotalRules, report.MatchedRules,
		boolToInt(report.Filtered), report.FilterReason, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug("Saved report",
		logger.String("flight_id", report.FlightID),
		logger.Int("matched_rules", report.MatchedRules))
	return nil
}

// Get returns the stored report for a flight, or nil when none exists.
func (s *ReportStorage) Get(ctx context.Context, flightID string) (*rules.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT report_json FROM reports WHERE flight_id = ?
	`, flightID)

	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan report row: %w", err)
	}

	var report rules.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ListRecent returns summaries of the most recently generated reports.
func (s *ReportStorage) ListRecent(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flight_id, generated_at, total_rules, matched_rules, filtered, filter_reason
		FROM reports
		ORDER BY generated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query report summaries: %w", err)
	}
	defer rows.Close()

	var summaries []ReportSummary
	for rows.Next() {
		var s ReportSummary
		var generatedAt string
		var filtered int
		var reason sql.NullString

		if err := rows.Scan(&s.FlightID, &generatedAt, &s.TotalRules,
			&s.MatchedRules, &filtered, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan report summary row: %w", err)
		}

		t, err := time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse generated_at timestamp: %w", err)
		}
		s.GeneratedAt = t
		s.Filtered = filtered != 0
		if reason.Valid {
			s.FilterReason = reason.String
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report summary rows: %w", err)
	}
	return summaries, nil
}

// CountMatched returns how many stored reports matched at least one rule.
func (s *ReportStorage) CountMatched(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reports WHERE matched_rules > 0
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matched reports: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
