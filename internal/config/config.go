package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/yegors/skywatch/internal/physics"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server       ServerConfig       `toml:"server"`        // HTTP server settings
	Logging      LoggingConfig      `toml:"logging"`       // Application logging settings
	Storage      StorageConfig      `toml:"storage"`       // Data persistence settings
	Airports     AirportsConfig     `toml:"airports"`      // Airport reference data settings
	Physics      PhysicsConfig      `toml:"physics"`       // Plausibility filter limits
	Gateway      GatewayConfig      `toml:"gateway"`       // Pre-evaluation flight filters
	Rules        RulesConfig        `toml:"rules"`         // Per-rule numeric thresholds
	PathLearning PathLearningConfig `toml:"path_learning"` // Learned path library settings
	Monitor      MonitorConfig      `toml:"monitor"`       // Batch evaluation settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type       string `toml:"type"`        // Storage backend type (currently only "sqlite" is supported)
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// CuratedAirport is a single airport entry from the curated list. Curated
// airports are authoritative for rule evaluation; the OurAirports CSV is
// only a fallback for positions far from all of them.
type CuratedAirport struct {
	Code        string  `toml:"code"`
	Name        string  `toml:"name"`
	Lat         float64 `toml:"lat"`
	Lon         float64 `toml:"lon"`
	ElevationFt float64 `toml:"elevation_ft"`
}

// AirportsConfig contains airport reference data configuration
type AirportsConfig struct {
	CSVPath          string           `toml:"csv_path"`           // Path to airports.csv (OurAirports format), optional
	RunwaysPath      string           `toml:"runways_path"`       // Path to runway headings JSON file
	FallbackRadiusNM float64          `toml:"fallback_radius_nm"` // Consult the CSV when the nearest curated airport is farther than this
	Curated          []CuratedAirport `toml:"curated"`            // Curated airport list used by all rules
}

// PhysicsConfig contains the plausibility filter limits applied before rule
// evaluation. These reject GPS glitches and jamming artifacts.
type PhysicsConfig struct {
	SpeedBuffer        float64 `toml:"speed_buffer"`            // Multiplier over max possible distance per segment
	MinAssumedSpeedKts float64 `toml:"min_assumed_speed_kts"`   // Assumed speed when none is reported
	MaxTurnRateDegS    float64 `toml:"max_turn_rate_deg_s"`     // Instantaneous turn rate ceiling
	MaxVerticalFtS     float64 `toml:"max_vertical_rate_ft_s"`  // Vertical rate ceiling
	MaxSpeedKts        float64 `toml:"max_speed_kts"`           // Absolute speed ceiling for glitch scans
	TeleportFactor     float64 `toml:"teleport_factor"`         // Distance vs possible distance ratio for glitch scans
	GlitchRatio        float64 `toml:"glitch_ratio"`            // Fraction of glitchy segments that invalidates a window
	ReversalRatio      float64 `toml:"reversal_ratio"`          // Fraction of heading reversals that invalidates a window
	CombinedRatio      float64 `toml:"combined_reversal_ratio"` // Reversal fraction that invalidates when any glitch is present
}

// Limits converts the configured values into the per-point plausibility
// limits used by the evaluators.
func (p PhysicsConfig) Limits() physics.Limits {
	return physics.Limits{
		SpeedBuffer:        p.SpeedBuffer,
		MinAssumedSpeedKts: p.MinAssumedSpeedKts,
		MaxTurnRateDegS:    p.MaxTurnRateDegS,
		MaxVerticalFtS:     p.MaxVerticalFtS,
	}
}

// GlitchLimits converts the configured values into the slice-level GPS
// glitch-scan limits.
func (p PhysicsConfig) GlitchLimits() physics.GlitchLimits {
	return physics.GlitchLimits{
		MaxSpeedKts:           p.MaxSpeedKts,
		MinAssumedSpeedKts:    p.MinAssumedSpeedKts,
		TeleportFactor:        p.TeleportFactor,
		MaxTurnRateDegS:       p.MaxTurnRateDegS,
		GlitchRatio:           p.GlitchRatio,
		ReversalRatio:         p.ReversalRatio,
		CombinedReversalRatio: p.CombinedRatio,
	}
}

// GatewayConfig contains the pre-evaluation filters that exempt whole flights
// from rule processing.
type GatewayConfig struct {
	MinAltitudeFt    float64  `toml:"min_altitude_ft"`   // Track must have points above this altitude
	MinPointsAbove   int      `toml:"min_points_above"`  // How many points must exceed min_altitude_ft
	ExcludedPrefixes []string `toml:"excluded_prefixes"` // Callsign prefixes exempt from all rules
}

// RulesConfig groups every rule's numeric thresholds. Thresholds live here,
// not in evaluator code, so tuning never requires recompilation.
type RulesConfig struct {
	CatalogPath     string                `toml:"catalog_path"`             // Path to the rule catalog JSON (ids, names, severities)
	EmergencySquawk EmergencySquawkConfig `toml:"emergency_squawk"`         // Rule 1
	AltitudeChange  AltitudeChangeConfig  `toml:"altitude_change"`          // Rule 2
	AbruptTurn      AbruptTurnConfig      `toml:"abrupt_turn"`              // Rule 3
	Proximity       ProximityConfig       `toml:"proximity"`                // Rule 4
	GoAround        GoAroundConfig        `toml:"go_around"`                // Rule 6
	ReturnToField   ReturnToFieldConfig   `toml:"return_to_field"`          // Rule 7
	Diversion       DiversionConfig       `toml:"diversion"`                // Rule 8
	LowAltitude     LowAltitudeConfig     `toml:"low_altitude"`             // Rule 9
	SignalLoss      SignalLossConfig      `toml:"signal_loss"`              // Rule 10
	OffCourse       OffCourseConfig       `toml:"off_course"`               // Rule 11
	UnplannedLand   UnplannedLandConfig   `toml:"unplanned_landing"`        // Rule 12
	Circular        CircularConfig        `toml:"circular_flight"`          // Rule 14
	DistanceTrend   DistanceTrendConfig   `toml:"distance_trend_diversion"` // Rule 15
	SignalDropout   SignalDropoutConfig   `toml:"signal_discontinuity"`     // Rule 20
}

// EmergencySquawkConfig lists the transponder codes treated as emergencies.
type EmergencySquawkConfig struct {
	Codes []string `toml:"codes"`
}

// AltitudeChangeConfig contains extreme altitude change thresholds
type AltitudeChangeConfig struct {
	DeltaFt       float64 `toml:"delta_ft"`       // Per-step altitude change that triggers an event
	WindowSeconds int     `toml:"window_seconds"` // Maximum step duration considered
	MinCruiseFt   float64 `toml:"min_cruise_ft"`  // Only evaluate from at least this altitude
}

// AbruptTurnConfig contains abrupt turn and holding pattern thresholds
type AbruptTurnConfig struct {
	HeadingChangeDeg   float64 `toml:"heading_change_deg"`          // Single-step smoothed heading change threshold
	WindowSeconds      int     `toml:"window_seconds"`              // Maximum step duration considered
	MinSpeedKts        float64 `toml:"min_speed_kts"`               // Ignore slow traffic
	AccumulatedTurnDeg float64 `toml:"accumulated_turn_deg"`        // Sustained accumulation threshold
	AccWindowSeconds   int     `toml:"accumulation_window_seconds"` // Accumulation scan horizon
}

// ProximityConfig contains dangerous proximity thresholds
type ProximityConfig struct {
	DistanceNM         float64 `toml:"distance_nm"`          // Lateral separation threshold
	AltitudeFt         float64 `toml:"altitude_ft"`          // Vertical separation threshold
	TimeWindowSeconds  int     `toml:"time_window_seconds"`  // Repository query padding around the track
	AirportExclusionNM float64 `toml:"airport_exclusion_nm"` // Skip points within this radius of an airport
}

// GoAroundConfig contains go-around detection thresholds
type GoAroundConfig struct {
	RadiusNM    float64 `toml:"radius_nm"`      // Airport proximity radius for candidate points
	MinLowAltFt float64 `toml:"min_low_alt_ft"` // AGL ceiling for the low point
	RecoveryFt  float64 `toml:"recovery_ft"`    // Required climb after the low point
}

// ReturnToFieldConfig contains takeoff-and-return thresholds
type ReturnToFieldConfig struct {
	TimeLimitSeconds  int     `toml:"time_limit_seconds"`  // Maximum takeoff-to-landing elapsed time
	NearAirportNM     float64 `toml:"near_airport_nm"`     // Origin/landing proximity radius
	TakeoffAltFt      float64 `toml:"takeoff_alt_ft"`      // AGL threshold marking departure
	LandingAltFt      float64 `toml:"landing_alt_ft"`      // AGL threshold marking landing
	MinOutboundNM     float64 `toml:"min_outbound_nm"`     // Required outbound excursion before a return counts
	MinElapsedSeconds int     `toml:"min_elapsed_seconds"` // Minimum elapsed time between takeoff and landing
}

// DiversionConfig contains diversion detection thresholds
type DiversionConfig struct {
	NearAirportNM float64 `toml:"near_airport_nm"` // Landing proximity radius
}

// LowAltitudeConfig contains low altitude detection thresholds
type LowAltitudeConfig struct {
	ThresholdFt     float64 `toml:"threshold_ft"`      // Altitude floor outside airport zones
	AirportRadiusNM float64 `toml:"airport_radius_nm"` // Protected radius around airports
}

// SignalLossConfig contains signal loss detection thresholds
type SignalLossConfig struct {
	GapSeconds  int `toml:"gap_seconds"`  // Minimum gap between consecutive points
	RepeatCount int `toml:"repeat_count"` // How many gaps constitute an anomaly
}

// OffCourseConfig contains path adherence thresholds
type OffCourseConfig struct {
	MinOffCoursePoints int     `toml:"min_off_course_points"` // Off-path points needed to flag
	MinAltitudeFt      float64 `toml:"min_altitude_ft"`       // Only evaluate above this altitude
}

// UnplannedLandConfig contains unplanned landing thresholds
type UnplannedLandConfig struct {
	NearAirportNM float64 `toml:"near_airport_nm"` // Landing proximity radius
}

// CircularConfig contains circular flight detection thresholds
type CircularConfig struct {
	MinDurationSeconds int     `toml:"min_duration_seconds"`  // Shorter flights are ignored
	MaxClosureNM       float64 `toml:"max_circle_closure_nm"` // Takeoff-to-landing distance ceiling
	MinAltitudeFt      float64 `toml:"min_altitude_ft"`       // At least one point must exceed this
}

// DistanceTrendConfig contains distance trend diversion thresholds
type DistanceTrendConfig struct {
	CheckWindowSeconds    int     `toml:"check_window_seconds"`         // Trend window length
	SampleIntervalSeconds int     `toml:"sample_interval_seconds"`      // Spacing between trend samples
	MinIncreasingRatio    float64 `toml:"min_increasing_ratio"`         // Fraction of increasing samples that flags a trend
	MinCruiseAltFt        float64 `toml:"min_cruise_altitude_ft"`       // Only evaluate above this altitude
	PostLandingMinDistNM  float64 `toml:"post_landing_min_distance_nm"` // Landing distance from destination that flags
}

// SignalDropoutConfig contains in-flight signal discontinuity thresholds
type SignalDropoutConfig struct {
	MinGapSeconds          int     `toml:"min_gap_seconds"`           // Gap length that qualifies
	MinAltitudeFt          float64 `toml:"min_altitude_ft"`           // Last-point altitude floor
	MinSpeedKts            float64 `toml:"min_speed_kts"`             // Last-point speed floor
	MinAirportDistNM       float64 `toml:"min_airport_distance_nm"`   // Last point must be far from airports
	StabilityWindowSeconds int     `toml:"stability_window_seconds"`  // Pre-gap stability window
	StabilityDeviation     float64 `toml:"stability_deviation_ratio"` // Allowed speed/altitude deviation in the window
}

// PathLearningConfig contains the learned path library configuration
type PathLearningConfig struct {
	PathsFile string `toml:"paths_file"` // Main path library JSON document
	TubesFile string `toml:"tubes_file"` // Learned tube corridors JSON
	TurnsFile string `toml:"turns_file"` // Learned turn zones JSON
	SIDFile   string `toml:"sid_file"`   // Learned SID procedures JSON
	STARFile  string `toml:"star_file"`  // Learned STAR procedures JSON

	NumSamples             int     `toml:"num_samples"`               // Centerline samples for promoted paths
	DefaultWidthNM         float64 `toml:"default_width_nm"`          // Width for path records carrying none
	MinWidthNM             float64 `toml:"min_width_nm"`              // Floor for promoted path widths
	MinTubeMembers         int     `toml:"min_tube_members"`          // O/D pair member count required for tube matching
	TubeLateralToleranceNM float64 `toml:"tube_lateral_tolerance_nm"` // Lateral slack around tube boundaries
	TubeAltToleranceFt     float64 `toml:"tube_altitude_tolerance_ft"`
	TurnZoneToleranceNM    float64 `toml:"turn_zone_tolerance_nm"`
	SIDSTARToleranceNM     float64 `toml:"sid_star_tolerance_nm"`
	SIDSTARDefaultWidthNM  float64 `toml:"sid_star_default_width_nm"`

	EmergingBucketSize    int `toml:"emerging_bucket_size"`    // Flights with the same signature before promotion
	EmergingSimilarityDeg int `toml:"emerging_similarity_deg"` // Heading quantization bin
	EmergingBinSeconds    int `toml:"emerging_bin_seconds"`    // Signature time bucket
}

// MonitorConfig contains batch evaluation settings
type MonitorConfig struct {
	MaxConcurrency       int `toml:"max_concurrency"`        // Parallel flight evaluations per batch
	ReportCacheSize      int `toml:"report_cache_size"`      // Recent reports kept in memory
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"` // How often to evaluate recently active flights
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadWithFallback tries the preferred path first, then common locations
// relative to the working directory and the executable.
func LoadWithFallback(preferredPath string) (*Config, error) {
	paths := []string{preferredPath}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		paths = append(paths,
			filepath.Join(exeDir, "configs", "config.toml"),
			filepath.Join(exeDir, "config.toml"),
		)
	}
	paths = append(paths, "configs/config.toml", "config.toml")

	var lastErr error
	seen := make(map[string]bool)
	for _, path := range paths {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %w", lastErr)
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Validate storage config
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path is required when storage type is sqlite")
	}

	if err := c.ValidateAirports(); err != nil {
		return err
	}
	if err := c.ValidatePhysics(); err != nil {
		return err
	}
	if err := c.ValidateGateway(); err != nil {
		return err
	}
	if err := c.ValidateRules(); err != nil {
		return err
	}
	if err := c.ValidatePathLearning(); err != nil {
		return err
	}

	if c.Monitor.MaxConcurrency <= 0 {
		c.Monitor.MaxConcurrency = 4
	}
	if c.Monitor.ReportCacheSize <= 0 {
		c.Monitor.ReportCacheSize = 256
	}
	if c.Monitor.SweepIntervalSeconds <= 0 {
		c.Monitor.SweepIntervalSeconds = 60
	}

	return nil
}

// ValidateAirports validates the airport reference data configuration
func (c *Config) ValidateAirports() error {
	if len(c.Airports.Curated) == 0 {
		return fmt.Errorf("at least one curated airport is required")
	}
	for i, a := range c.Airports.Curated {
		if a.Code == "" {
			return fmt.Errorf("curated airport %d is missing a code", i)
		}
		if a.Lat < -90 || a.Lat > 90 || a.Lon < -180 || a.Lon > 180 {
			return fmt.Errorf("curated airport %s has invalid coordinates (%.4f, %.4f)", a.Code, a.Lat, a.Lon)
		}
	}
	if c.Airports.FallbackRadiusNM <= 0 {
		c.Airports.FallbackRadiusNM = 30.0
	}
	return nil
}

// ValidatePhysics validates the plausibility filter limits
func (c *Config) ValidatePhysics() error {
	p := &c.Physics
	if p.SpeedBuffer <= 0 {
		p.SpeedBuffer = 1.5
	}
	if p.MinAssumedSpeedKts <= 0 {
		p.MinAssumedSpeedKts = 300.0
	}
	if p.MaxTurnRateDegS <= 0 {
		p.MaxTurnRateDegS = 8.0
	}
	if p.MaxVerticalFtS <= 0 {
		p.MaxVerticalFtS = 200.0
	}
	if p.MaxSpeedKts <= 0 {
		p.MaxSpeedKts = 600.0
	}
	if p.TeleportFactor <= 0 {
		p.TeleportFactor = 2.5
	}
	if p.GlitchRatio <= 0 {
		p.GlitchRatio = 0.05
	}
	if p.ReversalRatio <= 0 {
		p.ReversalRatio = 0.08
	}
	if p.CombinedRatio <= 0 {
		p.CombinedRatio = 0.05
	}
	return nil
}

// ValidateGateway validates the pre-evaluation filter configuration
func (c *Config) ValidateGateway() error {
	if c.Gateway.MinAltitudeFt <= 0 {
		c.Gateway.MinAltitudeFt = 5600.0
	}
	if c.Gateway.MinPointsAbove <= 0 {
		c.Gateway.MinPointsAbove = 5
	}
	return nil
}

// ValidateRules validates that every rule threshold section is present and
// sane. Missing required thresholds are fatal: running with undefined
// thresholds silently changes what "anomalous" means.
func (c *Config) ValidateRules() error {
	r := &c.Rules

	if r.CatalogPath == "" {
		return fmt.Errorf("rules.catalog_path is required")
	}
	if len(r.EmergencySquawk.Codes) == 0 {
		r.EmergencySquawk.Codes = []string{"7500", "7600", "7700"}
	}

	if r.AltitudeChange.DeltaFt <= 0 {
		return fmt.Errorf("rules.altitude_change.delta_ft is required")
	}
	if r.AltitudeChange.WindowSeconds <= 0 {
		return fmt.Errorf("rules.altitude_change.window_seconds is required")
	}
	if r.AltitudeChange.MinCruiseFt <= 0 {
		return fmt.Errorf("rules.altitude_change.min_cruise_ft is required")
	}

	if r.AbruptTurn.HeadingChangeDeg <= 0 {
		return fmt.Errorf("rules.abrupt_turn.heading_change_deg is required")
	}
	if r.AbruptTurn.WindowSeconds <= 0 {
		return fmt.Errorf("rules.abrupt_turn.window_seconds is required")
	}
	if r.AbruptTurn.MinSpeedKts <= 0 {
		return fmt.Errorf("rules.abrupt_turn.min_speed_kts is required")
	}
	if r.AbruptTurn.AccumulatedTurnDeg <= 0 {
		r.AbruptTurn.AccumulatedTurnDeg = 270.0
	}
	if r.AbruptTurn.AccWindowSeconds <= 0 {
		r.AbruptTurn.AccWindowSeconds = 300
	}

	if r.Proximity.DistanceNM <= 0 {
		return fmt.Errorf("rules.proximity.distance_nm is required")
	}
	if r.Proximity.AltitudeFt <= 0 {
		return fmt.Errorf("rules.proximity.altitude_ft is required")
	}
	if r.Proximity.TimeWindowSeconds <= 0 {
		return fmt.Errorf("rules.proximity.time_window_seconds is required")
	}

	if r.GoAround.RadiusNM <= 0 {
		return fmt.Errorf("rules.go_around.radius_nm is required")
	}
	if r.GoAround.MinLowAltFt <= 0 {
		return fmt.Errorf("rules.go_around.min_low_alt_ft is required")
	}
	if r.GoAround.RecoveryFt <= 0 {
		return fmt.Errorf("rules.go_around.recovery_ft is required")
	}

	if r.ReturnToField.TimeLimitSeconds <= 0 {
		return fmt.Errorf("rules.return_to_field.time_limit_seconds is required")
	}
	if r.ReturnToField.NearAirportNM <= 0 {
		return fmt.Errorf("rules.return_to_field.near_airport_nm is required")
	}
	if r.ReturnToField.TakeoffAltFt <= 0 {
		return fmt.Errorf("rules.return_to_field.takeoff_alt_ft is required")
	}
	if r.ReturnToField.LandingAltFt <= 0 {
		return fmt.Errorf("rules.return_to_field.landing_alt_ft is required")
	}

	if r.Diversion.NearAirportNM <= 0 {
		return fmt.Errorf("rules.diversion.near_airport_nm is required")
	}

	if r.LowAltitude.ThresholdFt <= 0 {
		return fmt.Errorf("rules.low_altitude.threshold_ft is required")
	}
	if r.LowAltitude.AirportRadiusNM <= 0 {
		return fmt.Errorf("rules.low_altitude.airport_radius_nm is required")
	}

	if r.SignalLoss.GapSeconds <= 0 {
		return fmt.Errorf("rules.signal_loss.gap_seconds is required")
	}
	if r.SignalLoss.RepeatCount <= 0 {
		return fmt.Errorf("rules.signal_loss.repeat_count is required")
	}

	if r.OffCourse.MinOffCoursePoints <= 0 {
		r.OffCourse.MinOffCoursePoints = 15
	}
	if r.OffCourse.MinAltitudeFt <= 0 {
		r.OffCourse.MinAltitudeFt = 9000.0
	}

	if r.UnplannedLand.NearAirportNM <= 0 {
		return fmt.Errorf("rules.unplanned_landing.near_airport_nm is required")
	}

	if r.Circular.MinDurationSeconds <= 0 {
		return fmt.Errorf("rules.circular_flight.min_duration_seconds is required")
	}
	if r.Circular.MaxClosureNM <= 0 {
		return fmt.Errorf("rules.circular_flight.max_circle_closure_nm is required")
	}
	if r.Circular.MinAltitudeFt <= 0 {
		r.Circular.MinAltitudeFt = 5000.0
	}

	if r.DistanceTrend.CheckWindowSeconds <= 0 {
		return fmt.Errorf("rules.distance_trend_diversion.check_window_seconds is required")
	}
	if r.DistanceTrend.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("rules.distance_trend_diversion.sample_interval_seconds is required")
	}
	if r.DistanceTrend.MinIncreasingRatio <= 0 {
		return fmt.Errorf("rules.distance_trend_diversion.min_increasing_ratio is required")
	}
	if r.DistanceTrend.MinCruiseAltFt <= 0 {
		return fmt.Errorf("rules.distance_trend_diversion.min_cruise_altitude_ft is required")
	}
	if r.DistanceTrend.PostLandingMinDistNM <= 0 {
		return fmt.Errorf("rules.distance_trend_diversion.post_landing_min_distance_nm is required")
	}

	if r.SignalDropout.MinGapSeconds <= 0 {
		r.SignalDropout.MinGapSeconds = 180
	}
	if r.SignalDropout.MinAltitudeFt <= 0 {
		r.SignalDropout.MinAltitudeFt = 3000.0
	}
	if r.SignalDropout.MinSpeedKts <= 0 {
		r.SignalDropout.MinSpeedKts = 120.0
	}
	if r.SignalDropout.MinAirportDistNM <= 0 {
		r.SignalDropout.MinAirportDistNM = 15.0
	}
	if r.SignalDropout.StabilityWindowSeconds <= 0 {
		r.SignalDropout.StabilityWindowSeconds = 180
	}
	if r.SignalDropout.StabilityDeviation <= 0 {
		r.SignalDropout.StabilityDeviation = 0.05
	}

	return nil
}

// ValidatePathLearning validates the learned path library configuration
func (c *Config) ValidatePathLearning() error {
	p := &c.PathLearning
	if p.PathsFile == "" {
		return fmt.Errorf("path_learning.paths_file is required")
	}
	if p.NumSamples <= 0 {
		p.NumSamples = 120
	}
	if p.DefaultWidthNM <= 0 {
		p.DefaultWidthNM = 8.0
	}
	if p.MinWidthNM <= 0 {
		p.MinWidthNM = 2.0
	}
	if p.MinTubeMembers <= 0 {
		p.MinTubeMembers = 80
	}
	if p.TubeLateralToleranceNM <= 0 {
		p.TubeLateralToleranceNM = 6.0
	}
	if p.TubeAltToleranceFt <= 0 {
		p.TubeAltToleranceFt = 2000.0
	}
	if p.TurnZoneToleranceNM <= 0 {
		p.TurnZoneToleranceNM = 3.0
	}
	if p.SIDSTARToleranceNM <= 0 {
		p.SIDSTARToleranceNM = 5.0
	}
	if p.SIDSTARDefaultWidthNM <= 0 {
		p.SIDSTARDefaultWidthNM = 6.0
	}
	if p.EmergingBucketSize <= 0 {
		p.EmergingBucketSize = 5
	}
	if p.EmergingSimilarityDeg <= 0 {
		p.EmergingSimilarityDeg = 30
	}
	if p.EmergingBinSeconds <= 0 {
		p.EmergingBinSeconds = 10
	}
	return nil
}
