// Package config provides configuration loading and management for waterseg.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"waterseg/pkg/morphology"
	"waterseg/pkg/threshold"
)

// Color is an RGBA display color as written in the YAML file
type Color struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
	A uint8 `yaml:"a"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// HistogramBins is the Otsu histogram resolution
		HistogramBins int `yaml:"histogramBins"`

		// KernelSize is the side of the square closing element
		KernelSize int `yaml:"kernelSize"`
	} `yaml:"segmentation"`

	// Processing parameters for batch runs
	Processing struct {
		// NumCores specifies how many files are segmented concurrently
		NumCores int `yaml:"numCores"`

		// FailFast stops a batch at the first failed file
		FailFast bool `yaml:"failFast"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// WaterColor is the display color of water pixels (value 255)
		WaterColor Color `yaml:"waterColor"`

		// BackgroundColor is the display color of background pixels (value 0)
		BackgroundColor Color `yaml:"backgroundColor"`

		// CreationOptions are passed to the GeoTIFF driver
		CreationOptions []string `yaml:"creationOptions"`

		// Quicklook writes a PNG preview next to each output when enabled
		Quicklook bool `yaml:"quicklook"`

		// CatalogPath is the SQLite file recording run statistics; empty disables it
		CatalogPath string `yaml:"catalogPath"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.HistogramBins = threshold.DefaultBins
	cfg.Segmentation.KernelSize = morphology.DefaultSize

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.FailFast = false

	cfg.Output.WaterColor = Color{R: 0, G: 0, B: 255, A: 255}
	cfg.Output.BackgroundColor = Color{R: 0, G: 0, B: 0, A: 255}
	cfg.Output.CreationOptions = []string{"COMPRESS=LZW"}
	cfg.Output.Quicklook = false
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Segmentation.HistogramBins < 2 {
		return fmt.Errorf("histogramBins must be at least 2, got %d", c.Segmentation.HistogramBins)
	}
	if err := (morphology.StructuringElement{Size: c.Segmentation.KernelSize}).Validate(); err != nil {
		return fmt.Errorf("invalid kernelSize: %w", err)
	}
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Processing.NumCores)
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
