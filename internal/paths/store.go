package paths

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/yegors/skywatch/pkg/logger"
)

// Config holds the path library file locations and matching thresholds.
type Config struct {
	PathsFile string
	TubesFile string
	TurnsFile string
	SIDFile   string
	STARFile  string

	NumSamples             int     // centerline samples for promoted paths
	DefaultWidthNM         float64 // width when a path record carries none
	MinWidthNM             float64 // floor for promoted path widths
	MinTubeMembers         int     // O/D pair member count required for tube matching
	TubeLateralToleranceNM float64
	TubeAltToleranceFt     float64
	TurnZoneToleranceNM    float64
	SIDSTARToleranceNM     float64
	SIDSTARDefaultWidthNM  float64

	EmergingBucketSize    int // flights with the same signature before promotion
	EmergingSimilarityDeg int // heading quantization bin
	EmergingBinSeconds    int // signature time bucket
}

// Store owns the learned geometry. Readers take immutable snapshots and never
// block the writer; promotion runs under a single writer lock and publishes a
// new snapshot atomically after persisting.
type Store struct {
	cfg    Config
	logger *logger.Logger

	mu       sync.Mutex // guards doc and disk writes
	doc      library
	tubes    []Tube
	turns    []TurnZone
	sids     []Procedure
	stars    []Procedure
	snapshot atomic.Pointer[Snapshot]
}

// NewStore loads all geometry documents and builds the initial snapshot.
// Missing files yield empty collections; malformed files are fatal.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	s := &Store{cfg: cfg, logger: log.Named("path-library")}

	if err := loadJSON(cfg.PathsFile, &s.doc); err != nil {
		return nil, fmt.Errorf("loading path library: %w", err)
	}

	var tubesDoc tubesDocument
	if err := loadJSON(cfg.TubesFile, &tubesDoc); err != nil {
		return nil, fmt.Errorf("loading tubes: %w", err)
	}
	s.tubes = tubesDoc.Tubes

	var turnsDoc turnsDocument
	if err := loadJSON(cfg.TurnsFile, &turnsDoc); err != nil {
		return nil, fmt.Errorf("loading turn zones: %w", err)
	}
	s.turns = turnsDoc.Zones

	var sidDoc, starDoc proceduresDocument
	if err := loadJSON(cfg.SIDFile, &sidDoc); err != nil {
		return nil, fmt.Errorf("loading SID procedures: %w", err)
	}
	if err := loadJSON(cfg.STARFile, &starDoc); err != nil {
		return nil, fmt.Errorf("loading STAR procedures: %w", err)
	}
	s.sids = sidDoc.Procedures
	s.stars = starDoc.Procedures

	s.snapshot.Store(s.buildSnapshot())

	snap := s.Snapshot()
	s.logger.Info("Path library loaded",
		logger.Int("paths", len(snap.Paths)),
		logger.Int("tubes", len(snap.Tubes)),
		logger.Int("turn_zones", len(snap.TurnZones)),
		logger.Int("sids", len(snap.SIDs)),
		logger.Int("stars", len(snap.STARs)),
	)
	return s, nil
}

// Snapshot returns the current immutable geometry snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// buildSnapshot derives a read-only snapshot from the writer-owned state.
// Caller must hold mu (or be in NewStore before the store is shared).
func (s *Store) buildSnapshot() *Snapshot {
	paths := make([]Path, 0, len(s.doc.Paths)+len(s.doc.EmergingPaths))
	for _, p := range s.doc.Paths {
		if p.WidthNM <= 0 {
			p.WidthNM = s.cfg.DefaultWidthNM
		}
		paths = append(paths, p)
	}
	for _, p := range s.doc.EmergingPaths {
		if p.Type == "" {
			p.Type = PathTypeEmerging
		}
		if p.WidthNM <= 0 {
			p.WidthNM = s.cfg.DefaultWidthNM
		}
		paths = append(paths, p)
	}

	// Tubes qualify only when their O/D pair carries enough member flights
	// in total.
	pairCounts := make(map[[2]string]int)
	for _, t := range s.tubes {
		key := [2]string{NormalizeCode(t.Origin), NormalizeCode(t.Destination)}
		pairCounts[key] += t.MemberCount
	}
	tubes := make([]Tube, 0, len(s.tubes))
	for _, t := range s.tubes {
		key := [2]string{NormalizeCode(t.Origin), NormalizeCode(t.Destination)}
		if pairCounts[key] > s.cfg.MinTubeMembers {
			tubes = append(tubes, t)
		}
	}

	return &Snapshot{
		cfg:       s.cfg,
		Paths:     paths,
		Tubes:     tubes,
		TurnZones: append([]TurnZone(nil), s.turns...),
		SIDs:      append([]Procedure(nil), s.sids...),
		STARs:     append([]Procedure(nil), s.stars...),
		Heatmap:   s.doc.Heatmap,
	}
}

// save persists the library document and publishes a fresh snapshot. Caller
// must hold mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.PathsFile), 0755); err != nil {
		return fmt.Errorf("creating path library directory: %w", err)
	}
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding path library: %w", err)
	}
	if err := os.WriteFile(s.cfg.PathsFile, data, 0644); err != nil {
		return fmt.Errorf("writing path library: %w", err)
	}

	s.snapshot.Store(s.buildSnapshot())
	return nil
}

// loadJSON decodes a document, treating a missing file (or empty path) as an
// empty document.
func loadJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadODPaths reads an O/D-clustered paths document and converts it to
// regular paths. Used when a separate clustering job maintains its own file.
func LoadODPaths(path string, defaultWidthNM float64) ([]Path, error) {
	var doc odPathsDocument
	if err := loadJSON(path, &doc); err != nil {
		return nil, err
	}
	out := make([]Path, 0, len(doc.Paths))
	for _, p := range doc.Paths {
		width := p.WidthNM
		if width <= 0 {
			width = defaultWidthNM
		}
		out = append(out, Path{
			ID:          p.ID,
			Type:        PathTypeODLearned,
			Origin:      p.Origin,
			Destination: p.Destination,
			Centerline:  p.Centerline,
			WidthNM:     width,
			NumFlights:  p.MemberCount,
		})
	}
	return out, nil
}

// AddODPaths merges externally clustered paths into the library in memory
// (not persisted; the clustering job owns its file).
func (s *Store) AddODPaths(paths []Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Paths = append(s.doc.Paths, paths...)
	s.snapshot.Store(s.buildSnapshot())
}
