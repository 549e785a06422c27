package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/internal/config"
	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/server"
	"github.com/tfunk1030/setupcompare/internal/service"
	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/internal/telemetry"
)

// bodySlack covers JSON framing around the setup and telemetry payloads.
const bodySlack = 64 << 10

// serveFunc runs the HTTP server until ctx ends. Tests swap it for a stub.
type serveFunc func(ctx context.Context, srv *server.Server, addr string) error

// ServeCommand holds flags and dependencies for the serve command.
type ServeCommand struct {
	common          commonFlags
	addr            string
	diagnosticsAddr string

	obsInit obsInitFunc
	serve   serveFunc
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return newServeCommandWithDeps(observability.Init, listenAndServe)
}

func newServeCommandWithDeps(obsInit obsInitFunc, serve serveFunc) *cobra.Command {
	sc := &ServeCommand{obsInit: obsInit, serve: serve}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the comparison HTTP API",
		Long: `Serve the comparison HTTP API.

POST /api/v1/analyses accepts a JSON body with baseline and candidate setups,
either parsed ({"baseline": {...}, "candidate": {...}}) or as raw text
({"baselineText": "...", "candidateText": "..."}), plus optional profile,
thresholds, telemetry or telemetryCsv. /healthz, /readyz and /metrics are
served on the same listener.`,
		Args: cobra.NoArgs,
		RunE: sc.run,
	}

	sc.common.register(cmd)

	cmd.Flags().StringVar(&sc.addr, "addr", "", "Listen address (default: server.addr from config)")
	cmd.Flags().StringVar(&sc.diagnosticsAddr, "diagnostics-addr", "",
		"Separate health and metrics listener (default: diagnostics.addr from config)")

	return cmd
}

func (sc *ServeCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := sc.common.load()
	if err != nil {
		return err
	}

	obsCfg := sc.common.observabilityConfig(cfg, observability.ModeServe)
	obsCfg.Prometheus = true

	providers, stop, err := startObservability(sc.obsInit, obsCfg)
	if err != nil {
		return err
	}
	defer stop()

	svc, maxBody, err := buildService(cfg, providers)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, providers, svc, maxBody)
	if err != nil {
		return err
	}

	diagAddr := cfg.Diagnostics.Addr
	if sc.diagnosticsAddr != "" {
		diagAddr = sc.diagnosticsAddr
	}

	if diagAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(diagAddr, providers.MetricsHandler, svc.Ready)
		if diagErr != nil {
			return diagErr
		}

		defer func() {
			closeErr := diag.Close()
			if closeErr != nil {
				providers.Logger.Warn("diagnostics shutdown failed", "error", closeErr)
			}
		}()

		providers.Logger.Info("diagnostics listening", "addr", diag.Addr())
	}

	addr := cfg.Server.Addr
	if sc.addr != "" {
		addr = sc.addr
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return sc.serve(ctx, srv, addr)
}

// buildService wires the analyzer with the configured input limits and
// returns the request body limit they imply.
func buildService(cfg *config.Config, providers observability.Providers) (*service.Service, int64, error) {
	setupLimit, err := cfg.Input.SetupLimit()
	if err != nil {
		return nil, 0, err
	}

	telemetryLimit, err := cfg.Input.TelemetryLimit()
	if err != nil {
		return nil, 0, err
	}

	analyzer, err := newAnalyzer(cfg, providers)
	if err != nil {
		return nil, 0, err
	}

	svc := service.New(analyzer, setupfile.NewParser(setupLimit), telemetry.NewDecoder(telemetryLimit))

	return svc, 2*setupLimit + telemetryLimit + bodySlack, nil
}

func newServer(
	cfg *config.Config, providers observability.Providers, svc *service.Service, maxBody int64,
) (*server.Server, error) {
	var red *observability.REDMetrics

	if providers.Meter != nil {
		var err error

		red, err = observability.NewREDMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("create request metrics: %w", err)
		}
	}

	return server.New(server.Deps{
		Service:        svc,
		Logger:         providers.Logger,
		Tracer:         providers.Tracer,
		Metrics:        red,
		MetricsHandler: providers.MetricsHandler,
		Checks:         []observability.ReadyCheck{svc.Ready},
		MaxBodySize:    maxBody,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}), nil
}

func listenAndServe(ctx context.Context, srv *server.Server, addr string) error {
	err := srv.ListenAndServe(ctx, addr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
