package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/micutio/trackspottr/internal/track"
)

const (
	// DefaultUpdateInterval is the cadence of incremental updates.
	DefaultUpdateInterval = 10 * time.Second
	// DefaultFetchTimeout bounds a single request, kept below the update interval so requests do
	// not pile up.
	DefaultFetchTimeout = 9 * time.Second
	// DefaultTelemetryInterval is the cadence of server telemetry polls.
	DefaultTelemetryInterval = 60 * time.Second
	// DefaultStaleMultiple is how many update intervals may pass without success before the next
	// poll fetches a full snapshot instead.
	DefaultStaleMultiple = 6
	// SummaryInterval determines how often the ticker prints a summary.
	SummaryInterval = 1 * time.Hour
	// DashboardWarmup determines how long to 'warm up' before reporting rare sightings.
	DashboardWarmup = 30 * time.Minute
)

var errNoServer = errors.New("no server URL configured")

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Home       HomeConfig       `yaml:"home"`
	Sync       SyncConfig       `yaml:"sync"`
	Display    DisplayConfig    `yaml:"display"`
	Thresholds track.Thresholds `yaml:"thresholds"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	// Listen is the address of the local read-only HTTP endpoint, disabled when empty.
	Listen        string `yaml:"listen" validate:"omitempty,hostname_port"`
	Notifications bool   `yaml:"notifications"`
}

// ServerConfig locates the tracking server.
type ServerConfig struct {
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// HomeConfig is the observer location used for range and bearing.
type HomeConfig struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `yaml:"lon" validate:"gte=-180,lte=180"`
}

// SyncConfig controls the polling cadence.
type SyncConfig struct {
	UpdateInterval    time.Duration `yaml:"updateInterval" validate:"gt=0"`
	TelemetryInterval time.Duration `yaml:"telemetryInterval" validate:"gt=0"`
	StaleMultiple     int           `yaml:"staleMultiple" validate:"gte=2"`
}

// DisplayConfig holds the initial display state.
type DisplayConfig struct {
	HistoryLength    int      `yaml:"historyLength" validate:"gte=1"`
	DeadReckoning    *bool    `yaml:"deadReckoning"`
	Trails           string   `yaml:"trails" validate:"oneof=none selected all"`
	Zoom             *int     `yaml:"zoom" validate:"omitempty,gte=0,lte=20"`
	HiddenTypes      []string `yaml:"hiddenTypes"`
	OverrideCapacity int      `yaml:"overrideCapacity" validate:"gte=1"`
}

// CacheConfig selects where the last picture is kept between runs.
type CacheConfig struct {
	Backend   string        `yaml:"backend" validate:"oneof=none file redis"`
	File      string        `yaml:"file" validate:"required_if=Backend file"`
	RedisAddr string        `yaml:"redisAddr" validate:"required_if=Backend redis"`
	RedisKey  string        `yaml:"redisKey"`
	TTL       time.Duration `yaml:"ttl" validate:"gte=0"`
}

// LogConfig controls the error log.
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
}

// DefaultConfig returns a configuration with every default applied and no server.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file and applies defaults for everything it leaves out.
// The result is not validated since command line flags may still fill in required values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("LoadConfig: %s: %w", path, err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

//nolint:mnd // defaults
func (c *Config) applyDefaults() {
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultFetchTimeout
	}
	if c.Sync.UpdateInterval == 0 {
		c.Sync.UpdateInterval = DefaultUpdateInterval
	}
	if c.Sync.TelemetryInterval == 0 {
		c.Sync.TelemetryInterval = DefaultTelemetryInterval
	}
	if c.Sync.StaleMultiple == 0 {
		c.Sync.StaleMultiple = DefaultStaleMultiple
	}

	if c.Display.HistoryLength == 0 {
		c.Display.HistoryLength = track.DefaultHistoryLength
	}
	if c.Display.DeadReckoning == nil {
		enabled := true
		c.Display.DeadReckoning = &enabled
	}
	if c.Display.Trails == "" {
		c.Display.Trails = track.TrailSelectedOnly.String()
	}
	if c.Display.Zoom == nil {
		zoom := track.LabelMinZoom
		c.Display.Zoom = &zoom
	}
	if c.Display.OverrideCapacity == 0 {
		c.Display.OverrideCapacity = track.DefaultOverrideCapacity
	}

	defaults := track.DefaultThresholds()
	if c.Thresholds.AirAnticipated == 0 {
		c.Thresholds.AirAnticipated = defaults.AirAnticipated
	}
	if c.Thresholds.SurfaceAnticipated == 0 {
		c.Thresholds.SurfaceAnticipated = defaults.SurfaceAnticipated
	}
	if c.Thresholds.AirExpired == 0 {
		c.Thresholds.AirExpired = defaults.AirExpired
	}
	if c.Thresholds.SurfaceExpired == 0 {
		c.Thresholds.SurfaceExpired = defaults.SurfaceExpired
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.File == "" {
		c.Cache.File = "trackspottr.cache"
	}
	if c.Cache.RedisKey == "" {
		c.Cache.RedisKey = "trackspottr:picture"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 16
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 2
	}
}

// Validate checks the configuration. An invalid configuration is fatal at startup.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("Validate: %w, use --server or server.url", errNoServer)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}
	if _, err := c.TrailMode(); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}
	if _, err := c.VisibleTypes(); err != nil {
		return fmt.Errorf("Validate: %w", err)
	}
	return nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Server.URL, "/")
}

// Zoom returns the initial zoom level.
func (c *Config) Zoom() int {
	if c.Display.Zoom == nil {
		return track.LabelMinZoom
	}
	return *c.Display.Zoom
}

// DeadReckoning reports whether dead reckoning starts enabled.
func (c *Config) DeadReckoning() bool {
	return c.Display.DeadReckoning == nil || *c.Display.DeadReckoning
}

// TrailMode returns the configured initial trail mode.
func (c *Config) TrailMode() (track.TrailMode, error) {
	return track.ParseTrailMode(c.Display.Trails)
}

// VisibleTypes returns every type except the configured hidden ones.
func (c *Config) VisibleTypes() (track.VisibleTypes, error) {
	visible := track.AllVisible()
	for _, name := range c.Display.HiddenTypes {
		tt, err := track.ParseTrackType(name)
		if err != nil {
			return nil, err
		}
		visible[tt] = false
	}
	return visible, nil
}

// HomePosition returns the observer position.
func (c *Config) HomePosition() track.Position {
	return track.Position{Lat: c.Home.Lat, Lon: c.Home.Lon}
}

// View returns the initial display state.
func (c *Config) View() track.View {
	trails, _ := c.TrailMode()
	visible, _ := c.VisibleTypes()
	if visible == nil {
		visible = track.AllVisible()
	}
	return track.View{
		Zoom:          c.Zoom(),
		Visible:       visible,
		Trails:        trails,
		DeadReckoning: c.DeadReckoning(),
	}
}
