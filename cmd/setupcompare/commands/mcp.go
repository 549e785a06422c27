package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/internal/mcp"
	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/service"
	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/internal/telemetry"
	"github.com/tfunk1030/setupcompare/pkg/version"
)

// mcpRunFunc runs the MCP server until ctx ends. Tests swap it for a stub.
type mcpRunFunc func(ctx context.Context, srv *mcp.Server) error

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return newMCPCommandWithDeps(observability.Init, func(ctx context.Context, srv *mcp.Server) error {
		return srv.Run(ctx)
	})
}

func newMCPCommandWithDeps(obsInit obsInitFunc, runServer mcpRunFunc) *cobra.Command {
	var common commonFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes setup comparison as tools that AI agents can discover
and invoke:
  - setup_compare: Compare two setups given as text, with optional profile,
    thresholds and lap telemetry CSV
  - setup_rules: List the active interpretation rules`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := common.load()
			if err != nil {
				return err
			}

			// Stdout carries the protocol, so logs are JSON on stderr.
			obsCfg := common.observabilityConfig(cfg, observability.ModeMCP)
			obsCfg.LogJSON = true

			providers, stop, err := startObservability(obsInit, obsCfg)
			if err != nil {
				return err
			}
			defer stop()

			setupLimit, err := cfg.Input.SetupLimit()
			if err != nil {
				return err
			}

			telemetryLimit, err := cfg.Input.TelemetryLimit()
			if err != nil {
				return err
			}

			analyzer, err := newAnalyzer(cfg, providers)
			if err != nil {
				return err
			}

			var red *observability.REDMetrics

			if providers.Meter != nil {
				red, err = observability.NewREDMetrics(providers.Meter)
				if err != nil {
					return fmt.Errorf("create request metrics: %w", err)
				}
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
				Service: service.New(analyzer, setupfile.NewParser(setupLimit), telemetry.NewDecoder(telemetryLimit)),
				Version: version.Version,
			})

			return runServer(cmd.Context(), srv)
		},
	}

	common.register(cmd)

	return cmd
}
