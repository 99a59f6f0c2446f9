package config

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Grid   GridConfig   `yaml:"grid" mapstructure:"grid"`
	Filter FilterConfig `yaml:"filter" mapstructure:"filter"`
	Rank   RankConfig   `yaml:"rank" mapstructure:"rank"`
	Tracts TractsConfig `yaml:"tracts" mapstructure:"tracts"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Zoning ZoningConfig `yaml:"zoning" mapstructure:"zoning"`
}

// GridConfig configures the degree grid stops are bucketed into.
type GridConfig struct {
	DX        float64 `yaml:"dx" mapstructure:"dx" validate:"gt=0"`
	DY        float64 `yaml:"dy" mapstructure:"dy" validate:"gt=0"`
	OriginLat float64 `yaml:"origin_lat" mapstructure:"origin_lat" validate:"gte=-90,lte=90"`
	OriginLon float64 `yaml:"origin_lon" mapstructure:"origin_lon" validate:"gte=-180,lte=180"`
	// Strict rejects stops south or west of the origin instead of clamping
	// them into row/col 0.
	Strict bool `yaml:"strict" mapstructure:"strict"`
}

// FilterConfig selects which stops are aggregated.
type FilterConfig struct {
	Bounds    BoundsConfig `yaml:"bounds" mapstructure:"bounds"`
	MinRiders int64        `yaml:"min_riders" mapstructure:"min_riders" validate:"gte=0"`
}

// BoundsConfig is an optional lat/lon box. Unset sides are unbounded.
type BoundsConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	MinLat  *float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MinLon  *float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLat  *float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MaxLon  *float64 `yaml:"max_lon" mapstructure:"max_lon"`
}

// RankConfig configures bucket ranking.
type RankConfig struct {
	Metric string `yaml:"metric" mapstructure:"metric" validate:"oneof=metric boardings alightings load stops"`
	// TopN keeps the N highest buckets; 0 keeps all.
	TopN int `yaml:"top_n" mapstructure:"top_n" validate:"gte=0"`
}

// TractsConfig locates the tract table and the stop→tract cache.
type TractsConfig struct {
	File         string `yaml:"file" mapstructure:"file"`
	CacheFile    string `yaml:"cache_file" mapstructure:"cache_file"`
	FallbackScan bool   `yaml:"fallback_scan" mapstructure:"fallback_scan"`
	IDField      string `yaml:"id_field" mapstructure:"id_field"`
	NameField    string `yaml:"name_field" mapstructure:"name_field"`
}

// SourceConfig selects where ridership rows come from.
type SourceConfig struct {
	Driver      string   `yaml:"driver" mapstructure:"driver" validate:"oneof=postgres csv xlsx"`
	DatabaseURL string   `yaml:"database_url" mapstructure:"database_url"`
	Table       string   `yaml:"table" mapstructure:"table"`
	Paths       []string `yaml:"paths" mapstructure:"paths"`
	Sheet       string   `yaml:"sheet" mapstructure:"sheet"`
	// Weekdays restricts Postgres rows to these days ("mon", "tue", ...).
	Weekdays []string `yaml:"weekdays" mapstructure:"weekdays" validate:"dive,oneof=sun mon tue wed thu fri sat"`
}

// ExportConfig configures the downstream writers.
type ExportConfig struct {
	Dir          string   `yaml:"dir" mapstructure:"dir"`
	Formats      []string `yaml:"formats" mapstructure:"formats" validate:"dive,oneof=shapefile geojson kml postgis"`
	KMLColors    int      `yaml:"kml_colors" mapstructure:"kml_colors" validate:"gt=0"`
	KMLMinMetric int64    `yaml:"kml_min_metric" mapstructure:"kml_min_metric" validate:"gte=0"`
	DatabaseURL  string   `yaml:"database_url" mapstructure:"database_url"`
	Migrate      bool     `yaml:"migrate" mapstructure:"migrate"`
}

// ZoningConfig configures rectangle decomposition.
type ZoningConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RIDERSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("grid.dx", 1000.0)
	v.SetDefault("grid.dy", 1000.0)
	v.SetDefault("grid.origin_lat", 37.0)
	v.SetDefault("grid.origin_lon", -122.54)
	v.SetDefault("grid.strict", false)
	v.SetDefault("filter.bounds.enabled", true)
	v.SetDefault("filter.bounds.min_lat", 37.0)
	v.SetDefault("filter.bounds.max_lon", 121.0)
	v.SetDefault("filter.min_riders", 0)
	v.SetDefault("rank.metric", "metric")
	v.SetDefault("rank.top_n", 100)
	v.SetDefault("tracts.file", "data/censustracts.tsv")
	v.SetDefault("tracts.cache_file", "data/stop2tract.csv")
	v.SetDefault("tracts.fallback_scan", false)
	v.SetDefault("tracts.id_field", "GEOID")
	v.SetDefault("tracts.name_field", "NAMELSAD")
	v.SetDefault("source.driver", "postgres")
	v.SetDefault("source.database_url", "")
	v.SetDefault("source.table", "public.apc_stop_events")
	v.SetDefault("source.paths", []string{})
	v.SetDefault("source.sheet", "")
	v.SetDefault("source.weekdays", []string{})
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.formats", []string{"shapefile"})
	v.SetDefault("export.kml_colors", 10)
	v.SetDefault("export.kml_min_metric", 2000)
	v.SetDefault("export.database_url", "")
	v.SetDefault("export.migrate", false)
	v.SetDefault("zoning.workers", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks field constraints plus the settings the given command
// needs ("aggregate", "zones", "stop2tract", "tracts").
func (c *Config) Validate(mode string) error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}

	switch mode {
	case "aggregate":
		switch c.Source.Driver {
		case "postgres":
			if c.Source.DatabaseURL == "" {
				return eris.New("config: source.database_url is required for the postgres source")
			}
		default:
			if len(c.Source.Paths) == 0 {
				return eris.Errorf("config: source.paths is required for the %s source", c.Source.Driver)
			}
		}
		return c.validatePostGIS()
	case "zones":
		return c.validatePostGIS()
	case "stop2tract":
		if c.Tracts.File == "" || c.Tracts.CacheFile == "" {
			return eris.New("config: tracts.file and tracts.cache_file are required")
		}
	case "tracts":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	return nil
}

func (c *Config) validatePostGIS() error {
	if slices.Contains(c.Export.Formats, "postgis") && c.Export.DatabaseURL == "" {
		return eris.New("config: export.database_url is required for postgis export")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
