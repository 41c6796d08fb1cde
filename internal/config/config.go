package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:5000"
	DefaultRequestTimeout = 2 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultScale          = 57.9e9 / 200
	DefaultPanPixels      = 40.0
	DefaultZoomIn         = 0.9
	DefaultZoomOut        = 1.1
	DefaultTolerancePx    = 50.0
	DefaultFieldInterval  = 250 * time.Millisecond
	DefaultFieldTimeout   = 5 * time.Second
	DefaultMaxSamples     = 4096
	DefaultSoftening      = 1e6
	DefaultG              = 6.6743e-11
	DefaultPrimary        = "Sun"
	DefaultMaxTrail       = 800
)

// Field sources.
const (
	SourceRemote = "remote"
	SourceWorker = "worker"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	View    ViewConfig    `yaml:"view"`
	Fields  FieldsConfig  `yaml:"fields"`
	Bodies  BodiesConfig  `yaml:"bodies"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	DataDir string        `yaml:"data_dir"`
}

type ServerConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type ViewConfig struct {
	Scale       float64 `yaml:"scale"`
	CenterX     float64 `yaml:"center_x"`
	CenterY     float64 `yaml:"center_y"`
	PanPixels   float64 `yaml:"pan_pixels"`
	ZoomIn      float64 `yaml:"zoom_in"`
	ZoomOut     float64 `yaml:"zoom_out"`
	MinScale    float64 `yaml:"min_scale"`
	MaxScale    float64 `yaml:"max_scale"`
	TolerancePx float64 `yaml:"select_tolerance_px"`
	Labels      bool    `yaml:"labels"`
	Theme       string  `yaml:"theme"`
}

type FieldConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Timeout   time.Duration `yaml:"timeout"`
	SpacingPx float64       `yaml:"spacing_px"`
	Source    string        `yaml:"source"`
}

type FieldsConfig struct {
	Vector     FieldConfig `yaml:"vector"`
	Heatmap    FieldConfig `yaml:"heatmap"`
	Lagrange   FieldConfig `yaml:"lagrange"`
	MaxSamples int         `yaml:"max_samples"`
	Softening  float64     `yaml:"softening"`
	G          float64     `yaml:"g"`
}

type BodiesConfig struct {
	Primary  string `yaml:"primary"`
	MaxTrail int    `yaml:"max_trail"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        DefaultBaseURL,
			RequestTimeout: DefaultRequestTimeout,
			PollInterval:   DefaultPollInterval,
		},
		View: ViewConfig{
			Scale:       DefaultScale,
			PanPixels:   DefaultPanPixels,
			ZoomIn:      DefaultZoomIn,
			ZoomOut:     DefaultZoomOut,
			MinScale:    1e3,
			MaxScale:    1e12,
			TolerancePx: DefaultTolerancePx,
			Theme:       "cyberpunk",
		},
		Fields: FieldsConfig{
			Vector:     defaultField(true, 24),
			Heatmap:    defaultField(false, 8),
			Lagrange:   defaultField(true, 0),
			MaxSamples: DefaultMaxSamples,
			Softening:  DefaultSoftening,
			G:          DefaultG,
		},
		Bodies: BodiesConfig{
			Primary:  DefaultPrimary,
			MaxTrail: DefaultMaxTrail,
		},
		Log: LogConfig{
			Level: "info",
		},
		DataDir: ".orbview",
	}
}

func defaultField(enabled bool, spacing float64) FieldConfig {
	return FieldConfig{
		Enabled:   enabled,
		Interval:  DefaultFieldInterval,
		Timeout:   DefaultFieldTimeout,
		SpacingPx: spacing,
		Source:    SourceRemote,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SetSource points every field kind at the same source.
func (c *Config) SetSource(source string) {
	c.Fields.Vector.Source = source
	c.Fields.Heatmap.Source = source
	c.Fields.Lagrange.Source = source
}

func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("%w: server.base_url is empty", ErrInvalid)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("%w: server.request_timeout must be positive", ErrInvalid)
	}
	if c.Server.PollInterval <= 0 {
		return fmt.Errorf("%w: server.poll_interval must be positive", ErrInvalid)
	}
	if !positive(c.View.Scale) {
		return fmt.Errorf("%w: view.scale must be positive, got %g", ErrInvalid, c.View.Scale)
	}
	if !positive(c.View.MinScale) || c.View.MaxScale < c.View.MinScale {
		return fmt.Errorf("%w: view scale bounds [%g, %g]", ErrInvalid, c.View.MinScale, c.View.MaxScale)
	}
	if !positive(c.View.ZoomIn) || !positive(c.View.ZoomOut) {
		return fmt.Errorf("%w: zoom factors must be positive", ErrInvalid)
	}
	for name, f := range map[string]FieldConfig{
		"vector":   c.Fields.Vector,
		"heatmap":  c.Fields.Heatmap,
		"lagrange": c.Fields.Lagrange,
	} {
		if f.Interval < 0 {
			return fmt.Errorf("%w: fields.%s.interval is negative", ErrInvalid, name)
		}
		if f.Timeout <= 0 {
			return fmt.Errorf("%w: fields.%s.timeout must be positive", ErrInvalid, name)
		}
		if f.Source != SourceRemote && f.Source != SourceWorker {
			return fmt.Errorf("%w: fields.%s.source %q", ErrInvalid, name, f.Source)
		}
	}
	if !positive(c.Fields.Vector.SpacingPx) || !positive(c.Fields.Heatmap.SpacingPx) {
		return fmt.Errorf("%w: field spacing must be positive", ErrInvalid)
	}
	if c.Fields.MaxSamples <= 0 {
		return fmt.Errorf("%w: fields.max_samples must be positive", ErrInvalid)
	}
	if !positive(c.Fields.Softening) {
		return fmt.Errorf("%w: fields.softening must be positive", ErrInvalid)
	}
	if c.Bodies.MaxTrail < 0 {
		return fmt.Errorf("%w: bodies.max_trail is negative", ErrInvalid)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
