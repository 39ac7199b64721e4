// Package appconfig loads the demo service's configuration: the
// coalescer's own Config (immutable once built), the HTTP server's
// listen address, and the logger's level/format. Shaped after
// internal/config/config.go in the teacher repo (nested struct, yaml
// tags, ApplyDefaults/Validate pair) and internal/config/env.go
// (LoadFromEnv/GetEnvOrDefault).
package appconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fabriziopfannl/coalescer/internal/obslog"
	"gopkg.in/yaml.v3"
)

// CoalescerConfig is the YAML-facing mirror of coalescer.Config; it is
// translated by cmd/coalescedemo into the real immutable Config at
// startup, not passed through directly, since spec.md requires the core
// Config be immutable post-construction while this struct may be
// reloaded wholesale on restart.
type CoalescerConfig struct {
	MaxBatch        int    `yaml:"max_batch" default:"16"`
	MaxWaitMS       int64  `yaml:"max_wait_ms" default:"50"`
	Backpressure    string `yaml:"backpressure" default:"block"`
	PassthroughRate float64 `yaml:"passthrough_rate_per_second"`
	PassthroughBurst int    `yaml:"passthrough_burst"`
}

// ServerConfig configures the demo HTTP adapter.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// Config is the top-level demo service configuration.
type Config struct {
	Coalescer CoalescerConfig `yaml:"coalescer"`
	Server    ServerConfig    `yaml:"server"`
	Logging   obslog.Config   `yaml:"logging"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Coalescer.MaxBatch == 0 {
		c.Coalescer.MaxBatch = 16
	}
	if c.Coalescer.MaxWaitMS == 0 {
		c.Coalescer.MaxWaitMS = 50
	}
	if c.Coalescer.Backpressure == "" {
		c.Coalescer.Backpressure = "block"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks configuration.
func (c *Config) Validate() error {
	if c.Coalescer.MaxBatch < 1 {
		return fmt.Errorf("appconfig: coalescer.max_batch must be a positive integer")
	}
	if c.Coalescer.MaxWaitMS < 0 {
		return fmt.Errorf("appconfig: coalescer.max_wait_ms must be non-negative")
	}
	switch c.Coalescer.Backpressure {
	case "block", "drop", "passthrough":
	default:
		return fmt.Errorf("appconfig: coalescer.backpressure must be one of: block, drop, passthrough")
	}
	return c.Logging.Validate()
}

// MaxWait returns the configured max wait as a time.Duration.
func (c CoalescerConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitMS) * time.Millisecond
}

// Load reads path as YAML, applies defaults, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("appconfig: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("appconfig: parsing %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv overrides cfg fields from COALESCER_* environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("COALESCER_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Coalescer.MaxBatch = n
		}
	}
	if v := os.Getenv("COALESCER_MAX_WAIT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Coalescer.MaxWaitMS = n
		}
	}
	if v := os.Getenv("COALESCER_BACKPRESSURE"); v != "" {
		cfg.Coalescer.Backpressure = v
	}
	if v := os.Getenv("COALESCER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("COALESCER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// GetEnvOrDefault returns the named environment variable, or def if unset.
func GetEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
