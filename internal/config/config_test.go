package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 1000.0, cfg.Grid.DX, 1e-9)
	assert.InDelta(t, 1000.0, cfg.Grid.DY, 1e-9)
	assert.InDelta(t, 37.0, cfg.Grid.OriginLat, 1e-9)
	assert.InDelta(t, -122.54, cfg.Grid.OriginLon, 1e-9)
	assert.False(t, cfg.Grid.Strict)
	assert.True(t, cfg.Filter.Bounds.Enabled)
	require.NotNil(t, cfg.Filter.Bounds.MinLat)
	assert.InDelta(t, 37.0, *cfg.Filter.Bounds.MinLat, 1e-9)
	require.NotNil(t, cfg.Filter.Bounds.MaxLon)
	assert.InDelta(t, 121.0, *cfg.Filter.Bounds.MaxLon, 1e-9)
	assert.Nil(t, cfg.Filter.Bounds.MaxLat)
	assert.Zero(t, cfg.Filter.MinRiders)
	assert.Equal(t, "metric", cfg.Rank.Metric)
	assert.Equal(t, 100, cfg.Rank.TopN)
	assert.Equal(t, "data/stop2tract.csv", cfg.Tracts.CacheFile)
	assert.Equal(t, "postgres", cfg.Source.Driver)
	assert.Equal(t, []string{"shapefile"}, cfg.Export.Formats)
	assert.Equal(t, 10, cfg.Export.KMLColors)
	assert.Equal(t, int64(2000), cfg.Export.KMLMinMetric)
	assert.Equal(t, 4, cfg.Zoning.Workers)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
grid:
  dx: 500
  strict: true
filter:
  min_riders: 25
  bounds:
    max_lat: 38.5
source:
  driver: csv
  paths: [a.csv, b.xlsx]
rank:
  metric: boardings
  top_n: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 500.0, cfg.Grid.DX, 1e-9)
	assert.True(t, cfg.Grid.Strict)
	assert.Equal(t, int64(25), cfg.Filter.MinRiders)
	require.NotNil(t, cfg.Filter.Bounds.MaxLat)
	assert.InDelta(t, 38.5, *cfg.Filter.Bounds.MaxLat, 1e-9)
	assert.Equal(t, "csv", cfg.Source.Driver)
	assert.Equal(t, []string{"a.csv", "b.xlsx"}, cfg.Source.Paths)
	assert.Equal(t, "boardings", cfg.Rank.Metric)
	assert.Zero(t, cfg.Rank.TopN)
	// Defaults still apply for unset values
	assert.InDelta(t, 1000.0, cfg.Grid.DY, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "log:\n  level: debug\nrank:\n  top_n: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RIDERSHIP_LOG_LEVEL", "warn")
	t.Setenv("RIDERSHIP_RANK_TOP_N", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Rank.TopN)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RIDERSHIP_SOURCE_DATABASE_URL", "postgres://localhost/apc")
	t.Setenv("RIDERSHIP_GRID_ORIGIN_LAT", "36.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/apc", cfg.Source.DatabaseURL)
	assert.InDelta(t, 36.5, cfg.Grid.OriginLat, 1e-9)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("grid: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults(t *testing.T) *Config {
	t.Helper()
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestValidate_Aggregate(t *testing.T) {
	cfg := validDefaults(t)
	assert.Error(t, cfg.Validate("aggregate"), "postgres source needs a database url")

	cfg.Source.DatabaseURL = "postgres://localhost/apc"
	assert.NoError(t, cfg.Validate("aggregate"))

	cfg.Export.Formats = []string{"geojson", "postgis"}
	assert.Error(t, cfg.Validate("aggregate"))
	cfg.Export.DatabaseURL = "postgres://localhost/gis"
	assert.NoError(t, cfg.Validate("aggregate"))
}

func TestValidate_FileSources(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Source.Driver = "csv"
	assert.Error(t, cfg.Validate("aggregate"))

	cfg.Source.Paths = []string{"stops.csv"}
	assert.NoError(t, cfg.Validate("aggregate"))
}

func TestValidate_FieldConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cell", func(c *Config) { c.Grid.DX = 0 }},
		{"bad origin", func(c *Config) { c.Grid.OriginLat = 91 }},
		{"negative top n", func(c *Config) { c.Rank.TopN = -1 }},
		{"unknown metric", func(c *Config) { c.Rank.Metric = "riders" }},
		{"unknown format", func(c *Config) { c.Export.Formats = []string{"dxf"} }},
		{"unknown driver", func(c *Config) { c.Source.Driver = "mysql" }},
		{"bad weekday", func(c *Config) { c.Source.Weekdays = []string{"monday"} }},
		{"zero colors", func(c *Config) { c.Export.KMLColors = 0 }},
		{"negative workers", func(c *Config) { c.Zoning.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate("zones"))
		})
	}
}

func TestValidate_ZonesPostGIS(t *testing.T) {
	cfg := validDefaults(t)
	cfg.Export.Formats = []string{"kml", "postgis"}
	err := cfg.Validate("zones")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.database_url")

	cfg.Export.DatabaseURL = "postgres://localhost/gis"
	assert.NoError(t, cfg.Validate("zones"))
}

func TestValidate_Modes(t *testing.T) {
	cfg := validDefaults(t)
	assert.NoError(t, cfg.Validate("zones"))
	assert.NoError(t, cfg.Validate("tracts"))
	assert.NoError(t, cfg.Validate("stop2tract"))

	cfg.Tracts.CacheFile = ""
	assert.Error(t, cfg.Validate("stop2tract"))
	assert.Error(t, cfg.Validate("serve"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
