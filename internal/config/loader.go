// Package config loads setupcompare settings from a YAML file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/tfunk1030/setupcompare/pkg/severity"
)

// configName is the config file name without extension.
const configName = ".setupcompare"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for setupcompare settings.
const envPrefix = "SETUPCOMPARE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Thresholds: severity.Default(),
		Rules:      RulesConfig{Path: DefaultRulesPath},
		Input: InputConfig{
			MaxSetupSize:     DefaultMaxSetupSize,
			MaxTelemetrySize: DefaultMaxTelemetrySize,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultServerReadTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
		},
		Diagnostics: DiagnosticsConfig{Addr: DefaultDiagnosticsAddr},
		Output:      OutputConfig{Format: DefaultOutputFormat, NoColor: DefaultOutputNoColor},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("thresholds.minor", severity.DefaultMinor)
	viperCfg.SetDefault("thresholds.moderate", severity.DefaultModerate)
	viperCfg.SetDefault("thresholds.major", severity.DefaultMajor)

	viperCfg.SetDefault("rules.path", DefaultRulesPath)

	viperCfg.SetDefault("input.max_setup_size", DefaultMaxSetupSize)
	viperCfg.SetDefault("input.max_telemetry_size", DefaultMaxTelemetrySize)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("server.addr", DefaultServerAddr)
	viperCfg.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	viperCfg.SetDefault("server.write_timeout", DefaultServerWriteTimeout)

	viperCfg.SetDefault("diagnostics.addr", DefaultDiagnosticsAddr)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.no_color", DefaultOutputNoColor)
}
