// Package airports provides airport lookups for the rule evaluators: a small
// curated set near the monitored region, a comprehensive OurAirports-format
// CSV fallback, and per-airport runway headings.
package airports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yegors/skywatch/internal/geodesy"
	"github.com/yegors/skywatch/internal/physics"
	"github.com/yegors/skywatch/pkg/logger"
)

// Airport is a known aerodrome.
type Airport struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ElevationFt float64 `json:"elevation_ft"`
}

// Store resolves airport codes and nearest-airport queries. Curated airports
// are searched first; the CSV set is consulted only when the curated result
// is farther than the fallback radius. Safe for concurrent use.
type Store struct {
	curated          []Airport
	byCode           map[string]Airport
	runwayHeadings   map[string][]float64 // magnetic headings per airport code
	csvPath          string
	fallbackRadiusNM float64

	csvOnce sync.Once
	csvList []Airport
	csvByCode map[string]Airport

	nearestCache *lru.Cache[string, string] // cell key -> airport code
	logger       *logger.Logger
}

const nearestCacheSize = 4096

// NewStore creates an airport store. csvPath may be empty to disable the
// comprehensive fallback. runwaysPath may be empty to disable runway heading
// checks (alignment checks then pass by default).
func NewStore(curated []Airport, csvPath, runwaysPath string, fallbackRadiusNM float64, log *logger.Logger) (*Store, error) {
	cache, err := lru.New[string, string](nearestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating nearest-airport cache: %w", err)
	}

	s := &Store{
		curated:          curated,
		byCode:           make(map[string]Airport, len(curated)),
		runwayHeadings:   make(map[string][]float64),
		csvPath:          csvPath,
		fallbackRadiusNM: fallbackRadiusNM,
		nearestCache:     cache,
		logger:           log.Named("airports"),
	}
	for _, a := range curated {
		s.byCode[strings.ToUpper(a.Code)] = a
	}

	if runwaysPath != "" {
		if err := s.loadRunways(runwaysPath); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) loadRunways(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading runway headings: %w", err)
	}
	if err := json.Unmarshal(data, &s.runwayHeadings); err != nil {
		return fmt.Errorf("parsing runway headings: %w", err)
	}
	s.logger.Info("Loaded runway headings", logger.Int("airports", len(s.runwayHeadings)))
	return nil
}

// Curated returns the curated airport list.
func (s *Store) Curated() []Airport {
	return s.curated
}

// ByCode resolves an airport code against the curated set first, then the
// CSV set. Codes are matched case-insensitively.
func (s *Store) ByCode(code string) (Airport, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Airport{}, false
	}
	if a, ok := s.byCode[code]; ok {
		return a, true
	}
	s.loadCSV()
	a, ok := s.csvByCode[code]
	return a, ok
}

// Nearest returns the closest known airport to the position and its distance
// in NM. The CSV set is consulted when the closest curated airport is farther
// than the fallback radius. Returns ok=false only when no airports are known
// at all.
func (s *Store) Nearest(lat, lon float64) (Airport, float64, bool) {
	key := cellKey(lat, lon)
	if code, ok := s.nearestCache.Get(key); ok {
		if a, found := s.lookupAny(code); found {
			return a, geodesy.HaversineNM(lat, lon, a.Lat, a.Lon), true
		}
	}

	best, bestDist, found := nearestIn(s.curated, lat, lon)
	if !found || bestDist > s.fallbackRadiusNM {
		s.loadCSV()
		if csvBest, csvDist, csvFound := nearestIn(s.csvList, lat, lon); csvFound && csvDist < bestDist {
			best, bestDist, found = csvBest, csvDist, true
		}
	}
	if !found {
		return Airport{}, math.Inf(1), false
	}

	s.nearestCache.Add(key, strings.ToUpper(best.Code))
	return best, bestDist, true
}

func (s *Store) lookupAny(code string) (Airport, bool) {
	if a, ok := s.byCode[code]; ok {
		return a, true
	}
	if s.csvByCode != nil {
		if a, ok := s.csvByCode[code]; ok {
			return a, true
		}
	}
	return Airport{}, false
}

func nearestIn(list []Airport, lat, lon float64) (Airport, float64, bool) {
	best := Airport{}
	bestDist := math.Inf(1)
	found := false
	for _, a := range list {
		d := geodesy.HaversineNM(lat, lon, a.Lat, a.Lon)
		if d < bestDist {
			bestDist = d
			best = a
			found = true
		}
	}
	return best, bestDist, found
}

// Nearest results are cached per ~0.01 degree cell; distances are always
// recomputed against the cached airport.
func cellKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

// RunwayHeadings returns the magnetic runway headings for an airport, or nil
// when the airport is not in the table.
func (s *Store) RunwayHeadings(code string) []float64 {
	return s.runwayHeadings[strings.ToUpper(code)]
}

// TrueRunwayHeadings returns the runway headings for an airport corrected
// from magnetic to true using the WMM declination at the airport for the
// given date. Nil when the airport is not in the table.
func (s *Store) TrueRunwayHeadings(code string, at time.Time) []float64 {
	headings := s.RunwayHeadings(code)
	if headings == nil {
		return nil
	}
	a, ok := s.ByCode(code)
	if !ok {
		return headings
	}

	decl := physics.CalculateMagneticVariation(a.Lat, a.Lon, a.ElevationFt, at)
	out := make([]float64, len(headings))
	for i, h := range headings {
		out[i] = math.Mod(h+decl+360.0, 360.0)
	}
	return out
}

// IsRunwayAligned reports whether a true track is within tolerance of any
// runway heading at the airport. Airports without a runway table never block
// detection: the check passes.
func (s *Store) IsRunwayAligned(code string, trackDeg, toleranceDeg float64, at time.Time) bool {
	headings := s.TrueRunwayHeadings(code, at)
	if headings == nil {
		return true
	}
	for _, h := range headings {
		if geodesy.AngularDiff(trackDeg, h) <= toleranceDeg {
			return true
		}
	}
	return false
}

// loadCSV lazily parses the OurAirports-format CSV. Rows without usable
// coordinates are skipped. Missing file is not an error: the fallback is
// simply empty.
func (s *Store) loadCSV() {
	s.csvOnce.Do(func() {
		s.csvByCode = make(map[string]Airport)
		if s.csvPath == "" {
			return
		}

		f, err := os.Open(s.csvPath)
		if err != nil {
			s.logger.Warn("Airport CSV not available", logger.String("path", s.csvPath), logger.Error(err))
			return
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err != nil {
			s.logger.Warn("Failed to read airport CSV header", logger.Error(err))
			return
		}
		col := make(map[string]int, len(header))
		for i, name := range header {
			col[strings.TrimSpace(name)] = i
		}

		get := func(row []string, name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		count := 0
		for {
			row, err := reader.Read()
			if err != nil {
				break
			}

			lat, errLat := strconv.ParseFloat(get(row, "latitude_deg"), 64)
			lon, errLon := strconv.ParseFloat(get(row, "longitude_deg"), 64)
			if errLat != nil || errLon != nil {
				continue
			}

			elev, _ := strconv.ParseFloat(get(row, "elevation_ft"), 64)
			name := get(row, "name")

			a := Airport{Lat: lat, Lon: lon, ElevationFt: elev, Name: name}

			added := false
			for _, key := range []string{get(row, "ident"), get(row, "icao_code"), get(row, "iata_code")} {
				key = strings.ToUpper(key)
				if key == "" {
					continue
				}
				if a.Code == "" {
					a.Code = key
				}
				if _, exists := s.csvByCode[key]; !exists {
					entry := a
					entry.Code = key
					s.csvByCode[key] = entry
				}
				added = true
			}
			if added {
				s.csvList = append(s.csvList, a)
				count++
			}
		}

		s.logger.Info("Loaded airport CSV", logger.String("path", s.csvPath), logger.Int("airports", count))
	})
}
