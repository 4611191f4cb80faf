package config

import (
	"os"
	"path/filepath"
	"testing"

	"niiviewer/pkg/threshold"
)

// TestDefaultConfig verifies the defaults match the viewer's startup state
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Overlay.Opacity != 0.5 || !cfg.Overlay.PositiveOnly || cfg.Overlay.UseAbsolute {
		t.Errorf("Unexpected overlay defaults %+v", cfg.Overlay)
	}
	if cfg.Map.Voxel != 2 || cfg.Map.FWHM != 10 || cfg.Map.Kernel != "gauss" || cfg.Map.Radius != 6 {
		t.Errorf("Unexpected map defaults %+v", cfg.Map)
	}

	spec, err := cfg.ThresholdSpec()
	if err != nil {
		t.Fatalf("Failed to build threshold spec: %v", err)
	}
	if spec != threshold.PercentileSpec(95) {
		t.Errorf("Expected 95th percentile, got %+v", spec)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

// TestValidate verifies out-of-range values are rejected
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"opacity", func(c *Config) { c.Overlay.Opacity = 1.5 }},
		{"scale", func(c *Config) { c.Output.Scale = 0 }},
		{"timeout", func(c *Config) { c.Viewer.TimeoutSeconds = 0 }},
		{"mode", func(c *Config) { c.Threshold.Mode = "median" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tt.name)
		}
	}
}

// TestConfigRoundTrip verifies saved configs load back with their values
func TestConfigRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	dir, err := os.MkdirTemp("", "niiviewer_config")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Map.Query = "pain"
	cfg.Threshold.Mode = "value"
	cfg.Threshold.Value = 3.1
	cfg.Overlay.UseAbsolute = true

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Map.Query != "pain" || !loaded.Overlay.UseAbsolute {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
	spec, err := loaded.ThresholdSpec()
	if err != nil {
		t.Fatalf("Failed to build threshold spec: %v", err)
	}
	if spec != threshold.ValueSpec(3.1) {
		t.Errorf("Expected value spec 3.1, got %+v", spec)
	}
}

// TestLoadConfigMissing verifies a missing file yields defaults
func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Output.Scale != 4 {
		t.Errorf("Expected default scale 4, got %d", cfg.Output.Scale)
	}
}

// TestLoadConfigPartial verifies unspecified keys keep their defaults
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("overlay:\n  opacity: 0.8\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Overlay.Opacity != 0.8 {
		t.Errorf("Expected opacity 0.8, got %v", cfg.Overlay.Opacity)
	}
	if !cfg.Overlay.PositiveOnly || cfg.Map.Kernel != "gauss" {
		t.Errorf("Expected remaining defaults, got %+v", cfg)
	}
}
