package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tfunk1030/setupcompare/internal/report"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config is the top-level configuration for setupcompare.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Thresholds  severity.Thresholds `mapstructure:"thresholds"`
	Rules       RulesConfig         `mapstructure:"rules"`
	Input       InputConfig         `mapstructure:"input"`
	Logging     LoggingConfig       `mapstructure:"logging"`
	Server      ServerConfig        `mapstructure:"server"`
	Diagnostics DiagnosticsConfig   `mapstructure:"diagnostics"`
	Output      OutputConfig        `mapstructure:"output"`
}

// RulesConfig selects the interpretation rule table.
type RulesConfig struct {
	// Path to a YAML or JSON rule table. Empty selects the embedded default.
	Path string `mapstructure:"path"`
}

// InputConfig bounds uploaded and parsed files. Sizes use humanize format
// ("2MB", "512KiB").
type InputConfig struct {
	MaxSetupSize     string `mapstructure:"max_setup_size"`
	MaxTelemetrySize string `mapstructure:"max_telemetry_size"`
}

// SetupLimit returns MaxSetupSize in bytes.
func (c InputConfig) SetupLimit() (int64, error) {
	return parseSize("input.max_setup_size", c.MaxSetupSize)
}

// TelemetryLimit returns MaxTelemetrySize in bytes.
func (c InputConfig) TelemetryLimit() (int64, error) {
	return parseSize("input.max_telemetry_size", c.MaxTelemetrySize)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DiagnosticsConfig holds the diagnostics listener settings.
type DiagnosticsConfig struct {
	// Addr of the health and metrics listener. Empty disables it.
	Addr string `mapstructure:"addr"`
}

// OutputConfig holds report rendering defaults.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidSize indicates a size string that is not a positive byte count.
	ErrInvalidSize = errors.New("size must be a positive byte count")
	// ErrInvalidLogLevel indicates an unknown logging level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("output.format must be one of text, json, yaml, plot")
	// ErrInvalidTimeout indicates a negative server timeout.
	ErrInvalidTimeout = errors.New("server timeouts must be non-negative")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	err := c.Thresholds.Validate()
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	_, err = c.Input.SetupLimit()
	if err != nil {
		return err
	}

	_, err = c.Input.TelemetryLimit()
	if err != nil {
		return err
	}

	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	_, err = report.ParseFormat(c.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}

	return nil
}

func parseSize(key, value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", key, ErrInvalidSize, err)
	}

	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("%s: %w: %q", key, ErrInvalidSize, value)
	}

	return int64(n), nil
}
