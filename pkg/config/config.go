// Package config provides configuration loading and management for niiviewer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"niiviewer/internal/models"
	"niiviewer/pkg/fetch"
	"niiviewer/pkg/threshold"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Volume sources
	Viewer struct {
		// BackgroundPath is the anatomical template loaded once at startup
		BackgroundPath string `yaml:"backgroundPath"`

		// APIBase is the root of the overlay map service
		APIBase string `yaml:"apiBase"`

		// TimeoutSeconds bounds each remote fetch
		TimeoutSeconds int `yaml:"timeoutSeconds"`

		// DataRoot resolves relative file references
		DataRoot string `yaml:"dataRoot"`
	} `yaml:"viewer"`

	// Map holds the overlay fetch parameters
	Map fetch.OverlayKey `yaml:"map"`

	// Overlay holds the display settings of the overlay
	Overlay models.RenderSpec `yaml:"overlay"`

	// Threshold parameters
	Threshold struct {
		// Mode is "pctl" or "value"
		Mode string `yaml:"mode"`

		// Percentile is used in pctl mode (0-100)
		Percentile float64 `yaml:"percentile"`

		// Value is used in value mode
		Value float64 `yaml:"value"`
	} `yaml:"threshold"`

	// Output parameters
	Output struct {
		// Dir receives rendered planes
		Dir string `yaml:"dir"`

		// Scale is the nearest-neighbour upscale factor of saved PNGs
		Scale int `yaml:"scale"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// BookmarksFile lists saved studies; empty disables the listing
		BookmarksFile string `yaml:"bookmarksFile"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Viewer.BackgroundPath = "static/mni_2mm.nii.gz"
	cfg.Viewer.APIBase = "http://localhost:5000/api"
	cfg.Viewer.TimeoutSeconds = 60
	cfg.Viewer.DataRoot = "."

	cfg.Map = fetch.OverlayKey{Voxel: 2, FWHM: 10, Kernel: "gauss", Radius: 6}

	cfg.Overlay = models.RenderSpec{Opacity: 0.5, PositiveOnly: true, UseAbsolute: false}

	cfg.Threshold.Mode = "pctl"
	cfg.Threshold.Percentile = threshold.DefaultPercentile
	cfg.Threshold.Value = 0

	cfg.Output.Dir = "planes"
	cfg.Output.Scale = 4
	cfg.Output.Verbose = true
	cfg.Output.BookmarksFile = ""

	return cfg
}

// Timeout returns the fetch timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Viewer.TimeoutSeconds) * time.Second
}

// ThresholdSpec converts the threshold section into a rule
func (c *Config) ThresholdSpec() (threshold.Spec, error) {
	mode, err := threshold.ParseMode(c.Threshold.Mode)
	if err != nil {
		return threshold.Spec{}, err
	}
	if mode == threshold.Value {
		return threshold.ValueSpec(c.Threshold.Value), nil
	}
	return threshold.PercentileSpec(c.Threshold.Percentile), nil
}

// Validate checks values the viewer cannot work around
func (c *Config) Validate() error {
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		return fmt.Errorf("overlay opacity %v out of range [0,1]", c.Overlay.Opacity)
	}
	if c.Output.Scale < 1 {
		return fmt.Errorf("output scale must be at least 1, got %d", c.Output.Scale)
	}
	if c.Viewer.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Viewer.TimeoutSeconds)
	}
	if _, err := c.ThresholdSpec(); err != nil {
		return err
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
