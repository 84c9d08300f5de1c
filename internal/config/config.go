// Package config holds the runtime configuration shared by the spyglass
// commands. Values come from an optional YAML file with flag overrides on
// top; zero-value fields fall back to Default.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// SessionDir is the default session directory for commands that read
	// recorded traces.
	SessionDir string `yaml:"session_dir"`

	// IndexPath is the sqlite session index location.
	IndexPath string `yaml:"index_path"`

	// FlightAddr is the Arrow Flight listen address for serve.
	FlightAddr string `yaml:"flight_addr"`

	// MetricsAddr serves Prometheus metrics and the health probe.
	MetricsAddr string `yaml:"metrics_addr"`

	// Source selects which memory source accesses are counted from.
	Source string `yaml:"source"`

	// CursorMS bounds windowed queries; negative means full timeline.
	CursorMS float64 `yaml:"cursor_ms"`

	// TopN caps report listings.
	TopN int `yaml:"top_n"`

	// Workers bounds concurrent trace accumulation. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		IndexPath:   "spyglass.db",
		FlightAddr:  "localhost:8815",
		MetricsAddr: ":9090",
		Source:      "DISK",
		CursorMS:    -1,
		TopN:        10,
		LogLevel:    "INFO",
		LogFormat:   "console",
	}
}

func (c *Config) Validate() error {
	switch strings.ToUpper(c.Source) {
	case "DISK", "BUFFER":
	default:
		return fmt.Errorf("invalid source: %q (must be DISK or BUFFER)", c.Source)
	}
	if c.TopN < 0 {
		return fmt.Errorf("invalid top_n: %d (must be non-negative)", c.TopN)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d (must be non-negative)", c.Workers)
	}
	if c.FlightAddr == "" {
		return fmt.Errorf("flight_addr must not be empty")
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics_addr must not be empty")
	}
	return nil
}

// MemorySource returns the configured source in canonical form.
func (c *Config) MemorySource() string {
	return strings.ToUpper(c.Source)
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}
