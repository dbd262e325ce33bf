package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yegors/skywatch/internal/track"
	"github.com/yegors/skywatch/pkg/logger"
	_ "modernc.org/sqlite"
)

// TrackStorage is a SQLite-based storage for flight tracks and metadata. It
// implements track.Repository for the cross-flight rules.
type TrackStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTrackStorage opens (or creates) the database at dbPath and initializes
// the schema.
func NewTrackStorage(dbPath string, log *logger.Logger) (*TrackStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA cache_size=10000"); err != nil {
		return nil, fmt.Errorf("failed to set cache size: %w", err)
	}

	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &TrackStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection.
func (s *TrackStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection, shared with the report storage.
func (s *TrackStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			flight_id TEXT PRIMARY KEY,
			callsign TEXT,
			origin TEXT,
			destination TEXT,
			aircraft_type TEXT,
			registration TEXT,
			category TEXT,
			operator TEXT,
			planned_route TEXT,       -- JSON array of {lat, lon}
			first_seen TIMESTAMP,
			last_seen TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS track_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id TEXT NOT NULL,
			ts INTEGER NOT NULL,      -- unix seconds, UTC
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			alt REAL NOT NULL,
			gspeed REAL,
			vspeed REAL,
			track REAL,
			squawk TEXT,
			callsign TEXT,
			source TEXT,
			FOREIGN KEY (flight_id) REFERENCES flights(flight_id) ON DELETE CASCADE,
			UNIQUE(flight_id, ts, lat, lon, alt)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create track_points table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_track_points_flight_ts ON track_points(flight_id, ts)`)
	if err != nil {
		return fmt.Errorf("failed to create index on track_points.flight_id_ts: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_track_points_ts ON track_points(ts)`)
	if err != nil {
		return fmt.Errorf("failed to create index on track_points.ts: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_track_points_lat_lon ON track_points(lat, lon)`)
	if err != nil {
		return fmt.Errorf("failed to create index on track_points.lat_lon: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			flight_id TEXT PRIMARY KEY,
			generated_at TIMESTAMP NOT NULL,
			total_rules INTEGER NOT NULL,
			matched_rules INTEGER NOT NULL,
			filtered INTEGER DEFAULT 0,
			filter_reason TEXT,
			report_json TEXT NOT NULL,
			FOREIGN KEY (flight_id) REFERENCES flights(flight_id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_generated_at ON reports(generated_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index on reports.generated_at: %w", err)
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// UpsertMetadata inserts or updates the flight-plan metadata for a flight.
func (s *TrackStorage) UpsertMetadata(ctx context.Context, flightID string, meta *track.FlightMetadata) error {
	if meta == nil {
		meta = &track.FlightMetadata{}
	}

	route := ""
	if len(meta.PlannedRoute) > 0 {
		data, err := json.Marshal(meta.PlannedRoute)
		if err != nil {
			return fmt.Errorf("failed to marshal planned route: %w", err)
		}
		route = string(data)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flights (
			flight_id, callsign, origin, destination, aircraft_type,
			registration, category, operator, planned_route, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flight_id) DO UPDATE SET
			callsign = excluded.callsign,
			origin = excluded.origin,
			destination = excluded.destination,
			aircraft_type = excluded.aircraft_type,
			registration = excluded.registration,
			category = excluded.category,
			operator = excluded.operator,
			planned_route = excluded.planned_route,
			updated_at = excluded.updated_at
	`,
		flightID, meta.Callsign, meta.Origin, meta.Destination, meta.AircraftType,
		meta.Registration, meta.Category, meta.Operator, route, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight metadata: %w", err)
	}
	return nil
}

// FetchMetadata returns the stored metadata for a flight, or nil when the
// flight has no metadata row.
func (s *TrackStorage) FetchMetadata(ctx context.Context, flightID string) (*track.FlightMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT callsign, origin, destination, aircraft_type,
		       registration, category, operator, planned_route
		FROM flights
		WHERE flight_id = ?
	`, flightID)

	var meta track.FlightMetadata
	var route string
	if err := row.Scan(
		&meta.Callsign, &meta.Origin, &meta.Destination, &meta.AircraftType,
		&meta.Registration, &meta.Category, &meta.Operator, &route,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan flight metadata: %w", err)
	}

	if route != "" {
		if err := json.Unmarshal([]byte(route), &meta.PlannedRoute); err != nil {
			s.logger.Error("Failed to unmarshal planned route",
				logger.Error(err), logger.String("flight_id", flightID))
		}
	}
	return &meta, nil
}

// InsertPoints stores a batch of track points for a flight in one
// transaction. Duplicate positions (same flight, timestamp, and coordinates)
// are ignored, matching the feed's occasional re-delivery.
func (s *TrackStorage) InsertPoints(ctx context.Context, flightID string, points []track.Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Ensure a flights row exists so foreign keys and report joins hold.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO flights (flight_id) VALUES (?)
		ON CONFLICT(flight_id) DO NOTHING
	`, flightID); err != nil {
		return fmt.Errorf("failed to ensure flight row: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO track_points (
			flight_id, ts, lat, lon, alt, gspeed, vspeed, track, squawk, callsign, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare point insert statement: %w", err)
	}
	defer stmt.Close()

	var firstTS, lastTS int64
	for i, p := range points {
		if _, err := stmt.ExecContext(ctx,
			flightID, p.Timestamp, p.Lat, p.Lon, p.Alt,
			p.GSpeed, p.VSpeed, p.Track, p.Squawk, p.Callsign, p.Source,
		); err != nil {
			return fmt.Errorf("failed to insert track point for %s: %w", flightID, err)
		}
		if i == 0 || p.Timestamp < firstTS {
			firstTS = p.Timestamp
		}
		if p.Timestamp > lastTS {
			lastTS = p.Timestamp
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE flights SET
			first_seen = COALESCE(MIN(first_seen, ?), ?),
			last_seen = COALESCE(MAX(last_seen, ?), ?),
			updated_at = ?
		WHERE flight_id = ?
	`,
		formatUnix(firstTS), formatUnix(firstTS),
		formatUnix(lastTS), formatUnix(lastTS),
		time.Now().UTC().Format(time.RFC3339), flightID,
	); err != nil {
		return fmt.Errorf("failed to update flight seen range: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track points: %w", err)
	}

	s.logger.Debug("Inserted track points",
		logger.String("flight_id", flightID),
		logger.Int("count", len(points)))
	return nil
}

// FetchFlight returns the full track for a flight, ordered by timestamp.
func (s *TrackStorage) FetchFlight(ctx context.Context, flightID string) (*track.FlightTrack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, lat, lon, alt, gspeed, vspeed, track, squawk, callsign, source
		FROM track_points
		WHERE flight_id = ?
		ORDER BY ts ASC
	`, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	ft := &track.FlightTrack{FlightID: flightID}
	for rows.Next() {
		p, err := scanPoint(rows, flightID)
		if err != nil {
			return nil, err
		}
		ft.Points = append(ft.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track point rows: %w", err)
	}

	if len(ft.Points) == 0 {
		return nil, track.ErrFlightNotFound
	}
	return ft, nil
}

// FetchPointsBetween returns all points from all flights inside the inclusive
// timestamp range. This backs the proximity rule's cross-flight scan.
func (s *TrackStorage) FetchPointsBetween(ctx context.Context, minTS, maxTS int64) ([]track.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flight_id, ts, lat, lon, alt, gspeed, vspeed, track, squawk, callsign, source
		FROM track_points
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, minTS, maxTS)
	if err != nil {
		return nil, fmt.Errorf("failed to query points in range: %w", err)
	}
	defer rows.Close()

	var points []track.Point
	for rows.Next() {
		var p track.Point
		var gspeed, vspeed, trk sql.NullFloat64
		var squawk, callsign, source sql.NullString

		if err := rows.Scan(&p.FlightID, &p.Timestamp, &p.Lat, &p.Lon, &p.Alt,
			&gspeed, &vspeed, &trk, &squawk, &callsign, &source); err != nil {
			return nil, fmt.Errorf("failed to scan track point row: %w", err)
		}
		assignOptionals(&p, gspeed, vspeed, trk, squawk, callsign, source)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track point rows: %w", err)
	}
	return points, nil
}

// FetchFlightIDsInBox returns the IDs of flights with at least one point
// inside the bounding box.
func (s *TrackStorage) FetchFlightIDsInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT flight_id
		FROM track_points
		WHERE lat >= ? AND lat <= ? AND lon >= ? AND lon <= ?
	`, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights in box: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flight ID row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flight ID rows: %w", err)
	}
	return ids, nil
}

// FetchRecentFlights returns the tracks of every flight with points newer
// than the cutoff.
func (s *TrackStorage) FetchRecentFlights(ctx context.Context, cutoff time.Time) ([]*track.FlightTrack, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flight_id, ts, lat, lon, alt, gspeed, vspeed, track, squawk, callsign, source
		FROM track_points
		WHERE flight_id IN (
			SELECT DISTINCT flight_id FROM track_points WHERE ts >= ?
		)
		ORDER BY flight_id, ts ASC
	`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query recent flights: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*track.FlightTrack)
	var order []string
	for rows.Next() {
		var p track.Point
		var gspeed, vspeed, trk sql.NullFloat64
		var squawk, callsign, source sql.NullString

		if err := rows.Scan(&p.FlightID, &p.Timestamp, &p.Lat, &p.Lon, &p.Alt,
			&gspeed, &vspeed, &trk, &squawk, &callsign, &source); err != nil {
			return nil, fmt.Errorf("failed to scan track point row: %w", err)
		}
		assignOptionals(&p, gspeed, vspeed, trk, squawk, callsign, source)

		ft, ok := byID[p.FlightID]
		if !ok {
			ft = &track.FlightTrack{FlightID: p.FlightID}
			byID[p.FlightID] = ft
			order = append(order, p.FlightID)
		}
		ft.Points = append(ft.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track point rows: %w", err)
	}

	flights := make([]*track.FlightTrack, 0, len(order))
	for _, id := range order {
		flights = append(flights, byID[id])
	}
	return flights, nil
}

// FlightCount returns the number of flights with stored points.
func (s *TrackStorage) FlightCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flights`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count flights: %w", err)
	}
	return count, nil
}

// PruneOlderThan deletes track points older than the cutoff and flights left
// with no points at all.
func (s *TrackStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM track_points WHERE ts < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune track points: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM flights
		WHERE flight_id NOT IN (SELECT DISTINCT flight_id FROM track_points)
	`); err != nil {
		return deleted, fmt.Errorf("failed to prune empty flights: %w", err)
	}

	s.logger.Info("Pruned old track points",
		logger.Int64("deleted", deleted),
		logger.Time("cutoff", cutoff))
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoint(rows rowScanner, flightID string) (track.Point, error) {
	var p track.Point
	var gspeed, vspeed, trk sql.NullFloat64
	var squawk, callsign, source sql.NullString

	if err := rows.Scan(&p.Timestamp, &p.Lat, &p.Lon, &p.Alt,
		&gspeed, &vspeed, &trk, &squawk, &callsign, &source); err != nil {
		return p, fmt.Errorf("failed to scan track point row: %w", err)
	}
	p.FlightID = flightID
	assignOptionals(&p, gspeed, vspeed, trk, squawk, callsign, source)
	return p, nil
}

func assignOptionals(p *track.Point, gspeed, vspeed, trk sql.NullFloat64, squawk, callsign, source sql.NullString) {
	if gspeed.Valid {
		v := gspeed.Float64
		p.GSpeed = &v
	}
	if vspeed.Valid {
		v := vspeed.Float64
		p.VSpeed = &v
	}
	if trk.Valid {
		v := trk.Float64
		p.Track = &v
	}
	if squawk.Valid && strings.TrimSpace(squawk.String) != "" {
		v := squawk.String
		p.Squawk = &v
	}
	if callsign.Valid && strings.TrimSpace(callsign.String) != "" {
		v := callsign.String
		p.Callsign = &v
	}
	if source.Valid && source.String != "" {
		v := source.String
		p.Source = &v
	}
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
