package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.View.Scale <= 0 {
		t.Error("scale should be positive")
	}
	if cfg.Fields.Vector.Interval != 250*time.Millisecond {
		t.Errorf("expected 250ms vector interval, got %v", cfg.Fields.Vector.Interval)
	}
	if cfg.Fields.Softening != 1e6 {
		t.Errorf("expected softening 1e6, got %g", cfg.Fields.Softening)
	}
	if cfg.Bodies.MaxTrail != 800 {
		t.Errorf("expected max trail 800, got %d", cfg.Bodies.MaxTrail)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbview.yaml")
	data := []byte(`
server:
  base_url: http://sim:8000
fields:
  heatmap:
    enabled: true
    interval: 500ms
    source: worker
bodies:
  primary: Sol
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://sim:8000" {
		t.Errorf("base url not loaded: %s", cfg.Server.BaseURL)
	}
	if !cfg.Fields.Heatmap.Enabled || cfg.Fields.Heatmap.Interval != 500*time.Millisecond {
		t.Errorf("heatmap block not loaded: %+v", cfg.Fields.Heatmap)
	}
	if cfg.Fields.Heatmap.Source != SourceWorker {
		t.Errorf("expected worker source, got %s", cfg.Fields.Heatmap.Source)
	}
	if cfg.Fields.Vector.Source != SourceRemote {
		t.Errorf("vector source should keep default, got %s", cfg.Fields.Vector.Source)
	}
	if cfg.Bodies.Primary != "Sol" {
		t.Errorf("expected primary Sol, got %s", cfg.Bodies.Primary)
	}
	if cfg.Server.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("request timeout should keep default, got %v", cfg.Server.RequestTimeout)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.View.Labels = true
	cfg.Fields.Lagrange.Timeout = 3 * time.Second

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !loaded.View.Labels {
		t.Error("labels flag lost")
	}
	if loaded.Fields.Lagrange.Timeout != 3*time.Second {
		t.Errorf("timeout lost: %v", loaded.Fields.Lagrange.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero scale", func(c *Config) { c.View.Scale = 0 }},
		{"negative zoom", func(c *Config) { c.View.ZoomIn = -1 }},
		{"inverted scale bounds", func(c *Config) { c.View.MaxScale = c.View.MinScale / 2 }},
		{"unknown source", func(c *Config) { c.Fields.Vector.Source = "gpu" }},
		{"zero timeout", func(c *Config) { c.Fields.Heatmap.Timeout = 0 }},
		{"zero spacing", func(c *Config) { c.Fields.Vector.SpacingPx = 0 }},
		{"zero softening", func(c *Config) { c.Fields.Softening = 0 }},
		{"empty url", func(c *Config) { c.Server.BaseURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSetSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetSource(SourceWorker)
	for _, f := range []FieldConfig{cfg.Fields.Vector, cfg.Fields.Heatmap, cfg.Fields.Lagrange} {
		if f.Source != SourceWorker {
			t.Errorf("expected worker, got %s", f.Source)
		}
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	if len(names) == 0 {
		t.Fatal("expected presets")
	}

	cfg := DefaultConfig()
	follow, ok := cfg.ApplyPreset("earth")
	if !ok {
		t.Fatal("earth preset missing")
	}
	if follow != "Earth" {
		t.Errorf("expected Earth follow, got %q", follow)
	}
	if cfg.View.CenterX == 0 {
		t.Error("preset center not applied")
	}

	if _, ok := cfg.ApplyPreset("nonexistent"); ok {
		t.Error("expected unknown preset to be rejected")
	}
}
