// Package config loads and validates platform configuration from JSON or
// YAML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
)

// Config is the top-level platform configuration
type Config struct {
	Service    ServiceConfig              `json:"service" yaml:"service"`
	NATS       NATSConfig                 `json:"nats" yaml:"nats"`
	Metrics    MetricsConfig              `json:"metrics" yaml:"metrics"`
	Logging    LoggingConfig              `json:"logging" yaml:"logging"`
	Snapshots  SnapshotConfig             `json:"snapshots" yaml:"snapshots"`
	Components []component.InstanceConfig `json:"components" yaml:"components"`
}

// ServiceConfig identifies this service instance
type ServiceConfig struct {
	Name        string `json:"name" yaml:"name"`
	Environment string `json:"environment" yaml:"environment"` // "dev", "staging", "prod"
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	URL           string        `json:"url" yaml:"url"`
	ClientName    string        `json:"client_name" yaml:"client_name"`
	MaxReconnects int           `json:"max_reconnects" yaml:"max_reconnects"`
	ReconnectWait time.Duration `json:"reconnect_wait" yaml:"reconnect_wait"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
}

// MetricsConfig configures the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format string `json:"format" yaml:"format"` // "json" or "text"
}

// SnapshotConfig configures surface snapshot persistence
type SnapshotConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Bucket  string `json:"bucket" yaml:"bucket"`
}

// Default returns a configuration with sensible defaults applied
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Name:        "surfacestream",
			Environment: "dev",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			ClientName:    "surfacestream",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Snapshots: SnapshotConfig{
			Enabled: true,
			Bucket:  "surface-snapshots",
		},
	}
}

// Load reads configuration from a file, merging over defaults. The format is
// chosen by extension: .json for JSON, .yaml/.yml for YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return cfg, errors.WrapFatal(err, "config", "Load", "read config file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.WrapInvalid(err, "config", "Load", "parse JSON config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.WrapInvalid(err, "config", "Load", "parse YAML config")
		}
	default:
		return cfg, errors.WrapInvalid(
			fmt.Errorf("unsupported config extension %q", filepath.Ext(path)),
			"config", "Load", "detect config format")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "service name")
	}
	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "NATS URL")
	}
	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return errors.WrapInvalid(
			fmt.Errorf("NATS URL must use nats:// or tls:// scheme, got %q", c.NATS.URL),
			"config", "Validate", "NATS URL scheme")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(
			fmt.Errorf("metrics port %d outside valid range 1-65535", c.Metrics.Port),
			"config", "Validate", "metrics port")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.Logging.Level),
			"config", "Validate", "log level")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log format %q", c.Logging.Format),
			"config", "Validate", "log format")
	}

	if c.Snapshots.Enabled && c.Snapshots.Bucket == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate", "snapshot bucket")
	}

	seen := make(map[string]bool, len(c.Components))
	for i, inst := range c.Components {
		if inst.Name == "" {
			return errors.WrapInvalid(
				fmt.Errorf("component %d: missing factory name", i),
				"config", "Validate", "component factory name")
		}
		switch inst.Type {
		case "input", "processor", "output":
		default:
			return errors.WrapInvalid(
				fmt.Errorf("component %q: unknown type %q", inst.Name, inst.Type),
				"config", "Validate", "component type")
		}
		key := inst.Type + "/" + inst.Name
		if seen[key] {
			return errors.WrapInvalid(
				fmt.Errorf("component %q declared twice", key),
				"config", "Validate", "duplicate component")
		}
		seen[key] = true
	}

	return nil
}
