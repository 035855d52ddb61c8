package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/objectpool/pkg/logger"
)

// Config is the complete configuration of an object pool session.
type Config struct {
	// Session describes the world the pools live in
	Session SessionConfig `yaml:"session" json:"session"`

	// Pools lists the types to pre-allocate, in seeding order
	Pools []PoolEntry `yaml:"pools" json:"pools"`

	// Logging configures the diagnostics sink
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Metrics configures prometheus collection
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configures OpenTelemetry spans
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// SessionConfig identifies the session kind.
type SessionConfig struct {
	// Kind is one of none, game, editor, pie, editor_preview, game_preview, game_rpc, inactive
	Kind string `yaml:"kind" json:"kind"`
}

// PoolEntry is one {type, initial count} pair.
type PoolEntry struct {
	// Type names an instantiable entity type
	Type string `yaml:"type" json:"type"`
	// Count is the number of instances created at session start
	Count int `yaml:"count" json:"count"`
}

// MetricsConfig contains prometheus settings.
type MetricsConfig struct {
	// Enabled activates the pool collectors
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Namespace prefixes every metric name
	Namespace string `yaml:"namespace" json:"namespace"`
	// ListenAddress is where serve exposes /metrics and /debug/pools
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled installs a stdout span exporter
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ServiceName is reported as the resource service name
	ServiceName string `yaml:"service_name" json:"service_name"`
	// SampleRate controls trace sampling (0.0-1.0)
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns a configuration with sensible defaults and no pools.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Kind: "game",
		},
		Pools:   []PoolEntry{},
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:       true,
			Namespace:     "objectpool",
			ListenAddress: ":9090",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "objectpool",
			SampleRate:  1.0,
		},
	}
}

// Validate checks the ambient sections for correctness.
// Pool entries are not checked here; see the package docs.
func (c *Config) Validate() error {
	if c.Session.Kind == "" {
		return fmt.Errorf("session.kind is required")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
	}
	return nil
}

// TotalInitialCount returns the sum of all positive pool counts
func (c *Config) TotalInitialCount() int {
	total := 0
	for _, entry := range c.Pools {
		if entry.Count > 0 {
			total += entry.Count
		}
	}
	return total
}
