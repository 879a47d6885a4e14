package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyConfig_Defaults(t *testing.T) {
	cfg := EmptyConfig()

	assert.Equal(t, 51.47, cfg.GetHomeLat())
	assert.Equal(t, -0.45, cfg.GetHomeLong())
	assert.Equal(t, 22.0, cfg.GetRadiusKM())
	assert.Equal(t, 4*time.Second, cfg.GetPollInterval())
	assert.Equal(t, 2*time.Second, cfg.GetRetryInterval())
	assert.Equal(t, 45*time.Second, cfg.GetStaleAfter())
	assert.Equal(t, 3, cfg.GetReportedCapacity())
	assert.Equal(t, 3, cfg.GetHistoryCapacity())
	assert.Equal(t, SmoothingMovingAverage, cfg.GetSmoothing())
	assert.Equal(t, 16, cfg.GetGridSize())
	assert.Equal(t, 50.0, cfg.GetMinAltitude())
	assert.Equal(t, "rebuild", cfg.GetRenderPolicy())
	assert.Empty(t, cfg.GetLogPath())
	assert.Empty(t, cfg.GetDBPath())
	assert.Empty(t, cfg.GetPNGPath())
	assert.Empty(t, cfg.GetListen())
	assert.Empty(t, cfg.GetLogTimezone())
	assert.Equal(t, "ft", cfg.GetAltitudeUnits())
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_MatchesGetters(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.StaleAfter)
	assert.Equal(t, "45s", *cfg.StaleAfter)
	require.NotNil(t, cfg.LatMin)
	assert.Equal(t, 51.41, *cfg.LatMin)
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	defaults := DefaultConfig()

	assert.Equal(t, defaults.GetFeedURL(), cfg.GetFeedURL())
	assert.Equal(t, defaults.GetStaleAfter(), cfg.GetStaleAfter())
	assert.Equal(t, defaults.GetMeasurementVariance(), cfg.GetMeasurementVariance())
	assert.Equal(t, defaults.GetLongMax(), cfg.GetLongMax())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "skygrid.json", `{
  "home_lat": 53.4,
  "home_long": -2.2,
  "lat_min": 53.28,
  "lat_max": 53.54,
  "long_min": -2.45,
  "long_max": -2.06,
  "stale_after": "60s",
  "smoothing": "kalman",
  "static_points": [{"id": "egcc", "lat": 53.35, "long": -2.27}]
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 53.4, cfg.GetHomeLat())
	assert.Equal(t, 60*time.Second, cfg.GetStaleAfter())
	assert.Equal(t, SmoothingKalman, cfg.GetSmoothing())
	require.Len(t, cfg.StaticPoints, 1)
	assert.Equal(t, "egcc", cfg.StaticPoints[0].ID)
	// untouched fields keep their defaults
	assert.Equal(t, 16, cfg.GetGridSize())
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "skygrid.yaml", `
grid_size: 8
render_policy: decay
altitude_units: m
log_timezone: Europe/London
poll_interval: 10s
static_points:
  - id: tower
    lat: 51.48
    long: -0.46
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.GetGridSize())
	assert.Equal(t, "decay", cfg.GetRenderPolicy())
	assert.Equal(t, "m", cfg.GetAltitudeUnits())
	assert.Equal(t, "Europe/London", cfg.GetLogTimezone())
	assert.Equal(t, 10*time.Second, cfg.GetPollInterval())
	require.Len(t, cfg.StaticPoints, 1)
	assert.Equal(t, -0.46, cfg.StaticPoints[0].Long)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "skygrid.toml", `x = 1`, "extension"},
		{"bad json", "skygrid.json", `{"grid_size": "big"`, "parse config JSON"},
		{"bad yaml", "skygrid.yml", "grid_size: [1, 2", "parse config YAML"},
		{"inverted lat", "skygrid.json", `{"lat_min": 52, "lat_max": 51}`, "lat_min"},
		{"equal long", "skygrid.json", `{"long_min": -0.5, "long_max": -0.5}`, "long_min"},
		{"bad duration", "skygrid.json", `{"stale_after": "soon"}`, "stale_after"},
		{"negative duration", "skygrid.json", `{"poll_interval": "-4s"}`, "poll_interval"},
		{"grid too large", "skygrid.json", `{"grid_size": 1000}`, "GridSize"},
		{"unknown smoothing", "skygrid.json", `{"smoothing": "median"}`, "Smoothing"},
		{"bad feed url", "skygrid.json", `{"feed_url": "not a url"}`, "FeedURL"},
		{"static point without id", "skygrid.json", `{"static_points": [{"lat": 1, "long": 1}]}`, "ID"},
		{"duplicate static id", "skygrid.json", `{"static_points": [{"id": "a", "lat": 1, "long": 1}, {"id": "a", "lat": 2, "long": 2}]}`, "duplicate"},
		{"bad altitude units", "skygrid.json", `{"altitude_units": "furlongs"}`, "altitude_units"},
		{"bad log timezone", "skygrid.json", `{"log_timezone": "Mars/Olympus_Mons"}`, "log_timezone"},
		{"static id clashes with home", "skygrid.json", `{"static_points": [{"id": "home", "lat": 1, "long": 1}]}`, "reserved for the home marker"},
		{"padded home id", "skygrid.json", `{"static_points": [{"id": " home ", "lat": 1, "long": 1}]}`, "reserved for the home marker"},
		{"padded duplicate", "skygrid.json", `{"static_points": [{"id": "mast", "lat": 1, "long": 1}, {"id": "mast ", "lat": 2, "long": 2}]}`, "duplicate"},
		{"blank static id", "skygrid.json", `{"static_points": [{"id": "   ", "lat": 1, "long": 1}]}`, "blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/to/skygrid.json")
	assert.Error(t, err)
}

func TestLoadConfig_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.json")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*1024*1024), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestDurationGetters_FallBackOnGarbage(t *testing.T) {
	bad := "later"
	cfg := &Config{StaleAfter: &bad}
	assert.Equal(t, 45*time.Second, cfg.GetStaleAfter())
}
