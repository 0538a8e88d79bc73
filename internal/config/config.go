// Package config loads orbitview settings from defaults, an optional config
// file and ORBITVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/internal/observability"
)

// EnvPrefix namespaces environment overrides, e.g. ORBITVIEW_GRPC_ADDR or
// ORBITVIEW_TRACING_ENABLED.
const EnvPrefix = "ORBITVIEW"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CatalogConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	// Offline serves the embedded sample page instead of calling BaseURL.
	Offline bool `mapstructure:"offline"`
	// TLEFile serves a local three-line TLE file instead of calling BaseURL.
	TLEFile string `mapstructure:"tle_file"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// TrajectoryConfig holds the defaults applied when a request leaves a
// sampling parameter unset.
type TrajectoryConfig struct {
	NumPoints     int     `mapstructure:"num_points"`
	OrbitFraction float64 `mapstructure:"orbit_fraction"`
	Rotation      string  `mapstructure:"rotation"`
	Propagator    string  `mapstructure:"propagator"`
	Frame         string  `mapstructure:"frame"`
}

// Config is the full set of orbitview settings.
type Config struct {
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	CacheSize   int    `mapstructure:"cache_size"`
	Workers     int    `mapstructure:"workers"`

	Log        LogConfig        `mapstructure:"log"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Trajectory TrajectoryConfig `mapstructure:"trajectory"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up by Unmarshal even when no config file sets the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("grpc_addr", ":50051")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("cache_size", 256)
	v.SetDefault("workers", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("catalog.base_url", "https://tle.ivanstanojevic.me/api/tle")
	v.SetDefault("catalog.timeout", 30*time.Second)
	v.SetDefault("catalog.page_size", 20)
	v.SetDefault("catalog.offline", false)
	v.SetDefault("catalog.tle_file", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "orbitview")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("trajectory.num_points", core.DefaultNumPoints)
	v.SetDefault("trajectory.orbit_fraction", core.DefaultOrbitFraction)
	v.SetDefault("trajectory.rotation", core.RotationStandard.String())
	v.SetDefault("trajectory.propagator", core.PropagatorKepler.String())
	v.SetDefault("trajectory.frame", core.FrameAuto.String())
}

// Load reads configuration into a Config. path may be empty; a missing
// explicit path is an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must be >= 0", ErrInvalidConfig)
	}
	if c.Catalog.PageSize < 0 {
		return fmt.Errorf("%w: catalog.page_size must be >= 0", ErrInvalidConfig)
	}
	if c.Trajectory.NumPoints < 0 {
		return fmt.Errorf("%w: trajectory.num_points must be >= 0", ErrInvalidConfig)
	}
	if f := c.Trajectory.OrbitFraction; !(f > 0 && f <= 1) {
		return fmt.Errorf("%w: trajectory.orbit_fraction must be in (0, 1], got %v", ErrInvalidConfig, f)
	}
	if _, err := core.ParseRotationMode(c.Trajectory.Rotation); err != nil {
		return fmt.Errorf("%w: trajectory.rotation: %v", ErrInvalidConfig, err)
	}
	if _, err := core.ParsePropagatorKind(c.Trajectory.Propagator); err != nil {
		return fmt.Errorf("%w: trajectory.propagator: %v", ErrInvalidConfig, err)
	}
	if _, err := core.ParseFrame(c.Trajectory.Frame); err != nil {
		return fmt.Errorf("%w: trajectory.frame: %v", ErrInvalidConfig, err)
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be in [0, 1], got %v", ErrInvalidConfig, r)
	}
	return nil
}

// SampleDefaults converts the trajectory section into core sampling options
// (without a start time). Validate has already vetted the enumerations.
func (c Config) SampleDefaults() core.SampleOptions {
	rot, _ := core.ParseRotationMode(c.Trajectory.Rotation)
	prop, _ := core.ParsePropagatorKind(c.Trajectory.Propagator)
	frame, _ := core.ParseFrame(c.Trajectory.Frame)
	return core.SampleOptions{
		NumPoints:     c.Trajectory.NumPoints,
		OrbitFraction: c.Trajectory.OrbitFraction,
		Rotation:      rot,
		Propagator:    prop,
		Frame:         frame,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		AddSource: true,
	}
}

// TracingSettings returns the tracing settings in the observability shape.
func (c Config) TracingSettings() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
