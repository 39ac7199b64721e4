// Package obslog constructs the zap logger used across the coalescer
// service from a small structured config, in the shape of
// internal/logging.LoggerConfig in the teacher repo (Level/Format/Output)
// but wired to go.uber.org/zap, the library the teacher's composition
// root (cmd/vaultaire/main.go) actually builds its loggers with.
package obslog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels, matching the external vocabulary of internal/logging in the
// teacher repo.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config configures the service logger.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate checks configuration.
func (c *Config) Validate() error {
	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, "":
	default:
		return fmt.Errorf("obslog: invalid level: %s", c.Level)
	}
	switch c.Format {
	case FormatJSON, FormatConsole, "":
	default:
		return fmt.Errorf("obslog: invalid format: %s", c.Format)
	}
	return nil
}

// ApplyDefaults fills in default values.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
}

func levelToZap(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a *zap.Logger for the given Config. Empty Level and Format
// fields default to info/json, matching ApplyDefaults.
func New(cfg Config) (*zap.Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Format == FormatConsole {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(levelToZap(cfg.Level))

	return zcfg.Build()
}

// atomicLevel wraps a zap.AtomicLevel so a running logger's level can be
// changed in place, e.g. in response to a config file reload.
type atomicLevel struct {
	level zap.AtomicLevel
}

// NewWithAtomicLevel builds a logger together with a handle that allows its
// level to be changed after construction, used by the demo service's
// fsnotify-driven config reload.
func NewWithAtomicLevel(cfg Config) (*zap.Logger, *atomicLevel, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var zcfg zap.Config
	if cfg.Format == FormatConsole {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	atom := zap.NewAtomicLevelAt(levelToZap(cfg.Level))
	zcfg.Level = atom

	log, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return log, &atomicLevel{level: atom}, nil
}

// SetLevel changes the live level of the logger this handle was returned
// alongside.
func (a *atomicLevel) SetLevel(level string) {
	a.level.SetLevel(levelToZap(level))
}
