// Package config loads the skygrid tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/skygrid/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/skygrid.defaults.json"

// HomeID is the registry id reserved for the seeded home marker. Static
// points may not use it.
const HomeID = "home"

// Smoothing strategies.
const (
	SmoothingMovingAverage = "moving_average"
	SmoothingKalman        = "kalman"
)

// StaticPoint is a fixed reference location drawn as a dim marker.
type StaticPoint struct {
	ID   string  `json:"id" yaml:"id" validate:"required"`
	Lat  float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Long float64 `json:"long" yaml:"long" validate:"gte=-180,lte=180"`
}

// Config is the root configuration. Every field is optional; the Get*
// methods supply defaults for anything left out.
type Config struct {
	// Feed
	FeedURL       *string  `json:"feed_url,omitempty" yaml:"feed_url,omitempty" validate:"omitempty,url"`
	HomeLat       *float64 `json:"home_lat,omitempty" yaml:"home_lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	HomeLong      *float64 `json:"home_long,omitempty" yaml:"home_long,omitempty" validate:"omitempty,gte=-180,lte=180"`
	RadiusKM      *float64 `json:"radius_km,omitempty" yaml:"radius_km,omitempty" validate:"omitempty,gt=0"`
	PollInterval  *string  `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`   // duration string like "4s"
	RetryInterval *string  `json:"retry_interval,omitempty" yaml:"retry_interval,omitempty"` // duration string like "2s"

	// Tracks
	StaleAfter          *string  `json:"stale_after,omitempty" yaml:"stale_after,omitempty"` // duration string like "45s"
	ReportedCapacity    *int     `json:"reported_capacity,omitempty" yaml:"reported_capacity,omitempty" validate:"omitempty,gte=1,lte=64"`
	HistoryCapacity     *int     `json:"history_capacity,omitempty" yaml:"history_capacity,omitempty" validate:"omitempty,gte=1,lte=16"`
	Smoothing           *string  `json:"smoothing,omitempty" yaml:"smoothing,omitempty" validate:"omitempty,oneof=moving_average kalman"`
	ProcessVariance     *float64 `json:"process_variance,omitempty" yaml:"process_variance,omitempty" validate:"omitempty,gte=0"`
	MeasurementVariance *float64 `json:"measurement_variance,omitempty" yaml:"measurement_variance,omitempty" validate:"omitempty,gt=0"`

	// Grid
	LatMin       *float64 `json:"lat_min,omitempty" yaml:"lat_min,omitempty" validate:"omitempty,gte=-90,lte=90"`
	LatMax       *float64 `json:"lat_max,omitempty" yaml:"lat_max,omitempty" validate:"omitempty,gte=-90,lte=90"`
	LongMin      *float64 `json:"long_min,omitempty" yaml:"long_min,omitempty" validate:"omitempty,gte=-180,lte=180"`
	LongMax      *float64 `json:"long_max,omitempty" yaml:"long_max,omitempty" validate:"omitempty,gte=-180,lte=180"`
	GridSize     *int     `json:"grid_size,omitempty" yaml:"grid_size,omitempty" validate:"omitempty,gte=1,lte=64"`
	MinAltitude  *float64 `json:"min_altitude,omitempty" yaml:"min_altitude,omitempty"`
	RenderPolicy *string  `json:"render_policy,omitempty" yaml:"render_policy,omitempty" validate:"omitempty,oneof=rebuild decay"`

	StaticPoints []StaticPoint `json:"static_points,omitempty" yaml:"static_points,omitempty" validate:"dive"`

	// Sinks
	LogPath       *string `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	LogTimezone   *string `json:"log_timezone,omitempty" yaml:"log_timezone,omitempty"` // tz name; empty means local time
	DBPath        *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	PNGPath       *string `json:"png_path,omitempty" yaml:"png_path,omitempty"`
	AltitudeUnits *string `json:"altitude_units,omitempty" yaml:"altitude_units,omitempty"`
	Listen        *string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated with its default.
func DefaultConfig() *Config {
	c := EmptyConfig()
	return &Config{
		FeedURL:             ptrString(c.GetFeedURL()),
		HomeLat:             ptrFloat64(c.GetHomeLat()),
		HomeLong:            ptrFloat64(c.GetHomeLong()),
		RadiusKM:            ptrFloat64(c.GetRadiusKM()),
		PollInterval:        ptrString(c.GetPollInterval().String()),
		RetryInterval:       ptrString(c.GetRetryInterval().String()),
		StaleAfter:          ptrString(c.GetStaleAfter().String()),
		ReportedCapacity:    ptrInt(c.GetReportedCapacity()),
		HistoryCapacity:     ptrInt(c.GetHistoryCapacity()),
		Smoothing:           ptrString(c.GetSmoothing()),
		ProcessVariance:     ptrFloat64(c.GetProcessVariance()),
		MeasurementVariance: ptrFloat64(c.GetMeasurementVariance()),
		LatMin:              ptrFloat64(c.GetLatMin()),
		LatMax:              ptrFloat64(c.GetLatMax()),
		LongMin:             ptrFloat64(c.GetLongMin()),
		LongMax:             ptrFloat64(c.GetLongMax()),
		GridSize:            ptrInt(c.GetGridSize()),
		MinAltitude:         ptrFloat64(c.GetMinAltitude()),
		RenderPolicy:        ptrString(c.GetRenderPolicy()),
		AltitudeUnits:       ptrString(c.GetAltitudeUnits()),
	}
}

// LoadConfig loads a Config from a .json, .yaml or .yml file.
// Fields omitted from the file fall back to their defaults, so partial
// configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

var validate = validator.New()

// Validate checks field ranges, duration strings and bounding box ordering.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	durations := map[string]*string{
		"poll_interval":  c.PollInterval,
		"retry_interval": c.RetryInterval,
		"stale_after":    c.StaleAfter,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.GetLatMin() >= c.GetLatMax() {
		return fmt.Errorf("lat_min (%v) must be below lat_max (%v)", c.GetLatMin(), c.GetLatMax())
	}
	if c.GetLongMin() >= c.GetLongMax() {
		return fmt.Errorf("long_min (%v) must be below long_max (%v)", c.GetLongMin(), c.GetLongMax())
	}

	if c.AltitudeUnits != nil && !units.IsValid(*c.AltitudeUnits) {
		return fmt.Errorf("altitude_units must be one of: %s, got %q", units.GetValidUnitsString(), *c.AltitudeUnits)
	}
	if tz := c.GetLogTimezone(); tz != "" && !units.IsTimezoneValid(tz) {
		return fmt.Errorf("log_timezone %q is not a known timezone", tz)
	}

	// Ids are compared trimmed, the same way the registry keys them.
	seen := make(map[string]bool)
	for _, p := range c.StaticPoints {
		id := strings.TrimSpace(p.ID)
		switch {
		case id == "":
			return fmt.Errorf("static point id %q is blank", p.ID)
		case id == HomeID:
			return fmt.Errorf("static point id %q is reserved for the home marker", p.ID)
		case seen[id]:
			return fmt.Errorf("duplicate static point id %q", p.ID)
		}
		seen[id] = true
	}

	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetFeedURL returns the feed_url value or the default.
func (c *Config) GetFeedURL() string {
	if c.FeedURL == nil {
		return "http://public-api.adsbexchange.com/VirtualRadar/AircraftList.json"
	}
	return *c.FeedURL
}

// GetHomeLat returns the home_lat value or the default.
func (c *Config) GetHomeLat() float64 {
	if c.HomeLat == nil {
		return 51.47
	}
	return *c.HomeLat
}

// GetHomeLong returns the home_long value or the default.
func (c *Config) GetHomeLong() float64 {
	if c.HomeLong == nil {
		return -0.45
	}
	return *c.HomeLong
}

// GetRadiusKM returns the radius_km value or the default.
func (c *Config) GetRadiusKM() float64 {
	if c.RadiusKM == nil {
		return 22
	}
	return *c.RadiusKM
}

// GetPollInterval parses and returns poll_interval.
func (c *Config) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, 4*time.Second)
}

// GetRetryInterval parses and returns retry_interval.
func (c *Config) GetRetryInterval() time.Duration {
	return durationOr(c.RetryInterval, 2*time.Second)
}

// GetStaleAfter parses and returns stale_after.
func (c *Config) GetStaleAfter() time.Duration {
	return durationOr(c.StaleAfter, 45*time.Second)
}

// GetReportedCapacity returns the reported_capacity value or the default.
func (c *Config) GetReportedCapacity() int {
	if c.ReportedCapacity == nil {
		return 3
	}
	return *c.ReportedCapacity
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *Config) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 3
	}
	return *c.HistoryCapacity
}

// GetSmoothing returns the smoothing value or the default.
func (c *Config) GetSmoothing() string {
	if c.Smoothing == nil {
		return SmoothingMovingAverage
	}
	return *c.Smoothing
}

// GetProcessVariance returns the process_variance value or the default.
func (c *Config) GetProcessVariance() float64 {
	if c.ProcessVariance == nil {
		return 1e-4
	}
	return *c.ProcessVariance
}

// GetMeasurementVariance returns the measurement_variance value or the default.
// The default corresponds to a measured 0.04 degree standard deviation.
func (c *Config) GetMeasurementVariance() float64 {
	if c.MeasurementVariance == nil {
		return 0.04 * 0.04
	}
	return *c.MeasurementVariance
}

// GetLatMin returns the lat_min value or the default.
func (c *Config) GetLatMin() float64 {
	if c.LatMin == nil {
		return 51.41
	}
	return *c.LatMin
}

// GetLatMax returns the lat_max value or the default.
func (c *Config) GetLatMax() float64 {
	if c.LatMax == nil {
		return 51.53
	}
	return *c.LatMax
}

// GetLongMin returns the long_min value or the default.
func (c *Config) GetLongMin() float64 {
	if c.LongMin == nil {
		return -0.70
	}
	return *c.LongMin
}

// GetLongMax returns the long_max value or the default.
func (c *Config) GetLongMax() float64 {
	if c.LongMax == nil {
		return -0.24
	}
	return *c.LongMax
}

// GetGridSize returns the grid_size value or the default.
func (c *Config) GetGridSize() int {
	if c.GridSize == nil {
		return 16
	}
	return *c.GridSize
}

// GetMinAltitude returns the min_altitude value or the default.
func (c *Config) GetMinAltitude() float64 {
	if c.MinAltitude == nil {
		return 50
	}
	return *c.MinAltitude
}

// GetRenderPolicy returns the render_policy value or the default.
func (c *Config) GetRenderPolicy() string {
	if c.RenderPolicy == nil {
		return "rebuild"
	}
	return *c.RenderPolicy
}

// GetLogPath returns log_path, empty when text logging is off.
func (c *Config) GetLogPath() string {
	if c.LogPath == nil {
		return ""
	}
	return *c.LogPath
}

// GetLogTimezone returns log_timezone, empty for local time.
func (c *Config) GetLogTimezone() string {
	if c.LogTimezone == nil {
		return ""
	}
	return *c.LogTimezone
}

// GetAltitudeUnits returns altitude_units, feet by default.
func (c *Config) GetAltitudeUnits() string {
	if c.AltitudeUnits == nil {
		return units.Feet
	}
	return *c.AltitudeUnits
}

// GetDBPath returns db_path, empty when the SQLite track log is off.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPNGPath returns png_path, empty when PNG frames are off.
func (c *Config) GetPNGPath() string {
	if c.PNGPath == nil {
		return ""
	}
	return *c.PNGPath
}

// GetListen returns the debug HTTP listen address, empty when off.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return ""
	}
	return *c.Listen
}
