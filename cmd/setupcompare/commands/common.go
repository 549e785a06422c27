// Package commands implements CLI command handlers for setupcompare.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/internal/config"
	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/pkg/analysis"
	"github.com/tfunk1030/setupcompare/pkg/rules"
	"github.com/tfunk1030/setupcompare/pkg/version"
)

// Standard OTel exporter environment variables.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
	envEnvironment  = "SETUPCOMPARE_ENVIRONMENT"
)

// obsInitFunc initializes observability providers. Tests swap it for a stub.
type obsInitFunc func(observability.Config) (observability.Providers, error)

// commonFlags are shared by every command that loads configuration.
type commonFlags struct {
	configPath string
	logLevel   string
	debug      bool
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Config file path (default: .setupcompare.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Debug logging and full trace sampling")
}

// load reads the config file and applies the log level flag.
func (f *commonFlags) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	err = cfg.Apply(config.Overrides{LogLevel: f.logLevel})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// observabilityConfig derives the observability settings for a mode from
// the loaded config, the debug flag and the standard OTel environment.
func (f *commonFlags) observabilityConfig(cfg *config.Config, mode observability.AppMode) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = os.Getenv(envEnvironment)
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
	obsCfg.OTLPInsecure = os.Getenv(envOTLPInsecure) == "true"
	obsCfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	obsCfg.LogJSON = cfg.Logging.JSON

	if f.debug {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
		obsCfg.TraceVerbose = true
	}

	return obsCfg
}

// startObservability runs init and fills nil providers with defaults. The
// returned stop function must be called before exit.
func startObservability(init obsInitFunc, obsCfg observability.Config) (observability.Providers, func(), error) {
	providers, err := init(obsCfg)
	if err != nil {
		return observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	if providers.Logger == nil {
		providers.Logger = slog.Default()
	}

	stop := func() {
		if providers.Shutdown == nil {
			return
		}

		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return providers, stop, nil
}

// newAnalyzer builds the analyzer for cfg: rule table, thresholds and
// providers. Analysis metrics are recorded when a meter is available.
func newAnalyzer(cfg *config.Config, providers observability.Providers) (*analysis.Analyzer, error) {
	opts := []analysis.Option{
		analysis.WithThresholds(cfg.Thresholds),
		analysis.WithLogger(providers.Logger),
		analysis.WithTracer(providers.Tracer),
	}

	if cfg.Rules.Path != "" {
		table, err := rules.LoadTable(cfg.Rules.Path)
		if err != nil {
			return nil, err
		}

		opts = append(opts, analysis.WithRules(rules.NewEngine(table)))
	}

	if providers.Meter != nil {
		am, err := observability.NewAnalysisMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("create analysis metrics: %w", err)
		}

		opts = append(opts, analysis.WithObserver(am))
	}

	return analysis.New(opts...), nil
}

// floatFlag returns the flag's value when it was set on the command line.
func floatFlag(cmd *cobra.Command, name string) (*float64, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil //nolint:nilnil // unset is not an error.
	}

	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return nil, fmt.Errorf("flag --%s: %w", name, err)
	}

	return &v, nil
}
