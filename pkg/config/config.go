// Package config provides configuration loading and management for the
// pndniutils commands. It handles loading configuration from YAML files
// and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"pndniutils/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Compare parameters
	Compare struct {
		// RTol is the relative tolerance used for approximate equality and
		// affine comparisons
		RTol float64 `yaml:"rtol"`

		// ATol is the absolute tolerance used for approximate equality and
		// affine comparisons
		ATol float64 `yaml:"atol"`
	} `yaml:"compare"`

	// Logging parameters
	Logging struct {
		// Level is the logrus level name (debug, info, warning, error)
		Level string `yaml:"level"`
	} `yaml:"logging"`

	// Output parameters
	Output struct {
		// Verbose prints results to stdout
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Preview parameters
	Preview struct {
		// Quality is the JPEG quality used for slice snapshots
		Quality int `yaml:"quality"`

		// Axis is the default slicing axis (x, y or z)
		Axis string `yaml:"axis"`

		// NumCores specifies how many CPU cores encode snapshots in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"preview"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Compare.RTol = volume.DefaultRTol
	cfg.Compare.ATol = volume.DefaultATol

	cfg.Logging.Level = "warning"

	cfg.Output.Verbose = false

	cfg.Preview.Quality = 90
	cfg.Preview.Axis = "z"
	cfg.Preview.NumCores = runtime.NumCPU()

	return cfg
}

// Validate checks that the values make sense
func (c *Config) Validate() error {
	if c.Compare.RTol < 0 || c.Compare.ATol < 0 {
		return fmt.Errorf("tolerances must not be negative (rtol %g, atol %g)", c.Compare.RTol, c.Compare.ATol)
	}
	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview quality %d out of range 1-100", c.Preview.Quality)
	}
	if c.Preview.NumCores < 1 {
		return fmt.Errorf("preview numCores must be at least 1, got %d", c.Preview.NumCores)
	}
	switch c.Preview.Axis {
	case "x", "y", "z":
	default:
		return fmt.Errorf("preview axis %q must be x, y or z", c.Preview.Axis)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
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
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
