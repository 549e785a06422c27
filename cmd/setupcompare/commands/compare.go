package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/internal/config"
	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/report"
	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/internal/telemetry"
	"github.com/tfunk1030/setupcompare/pkg/analysis"
	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// CompareCommand holds flags and dependencies for the compare command.
type CompareCommand struct {
	common commonFlags

	carModel      string
	trackCategory string
	trackName     string
	noInfer       bool
	telemetryPath string
	format        string
	outputPath    string
	rulesPath     string
	noColor       bool

	obsInit obsInitFunc
	now     func() time.Time
}

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	return newCompareCommandWithDeps(observability.Init)
}

func newCompareCommandWithDeps(obsInit obsInitFunc) *cobra.Command {
	cc := &CompareCommand{obsInit: obsInit, now: time.Now}

	cmd := &cobra.Command{
		Use:   "compare <baseline> <candidate>",
		Short: "Compare two setup files",
		Long: `Compare two setup files parameter by parameter.

Every parameter present in either setup yields a delta classified as minor,
moderate or major. Known parameters get an engineering interpretation, and an
overall summary with recommendations closes the report. Car and track context
is read from the setups unless given with --car, --track-category and --track.`,
		Args: cobra.ExactArgs(2),
		RunE: cc.run,
	}

	cc.common.register(cmd)

	cmd.Flags().StringVar(&cc.carModel, "car", "", "Car model for profile-specific hints")
	cmd.Flags().StringVar(&cc.trackCategory, "track-category", "", "Track category for profile-specific hints (e.g. road, oval)")
	cmd.Flags().StringVar(&cc.trackName, "track", "", "Track name")
	cmd.Flags().BoolVar(&cc.noInfer, "no-infer", false, "Do not read car and track from the setup files")
	cmd.Flags().StringVar(&cc.telemetryPath, "telemetry", "", "Lap telemetry CSV to correlate tyre pressure changes with")
	cmd.Flags().StringVarP(&cc.format, "format", "f", "", "Output format: text, json, yaml, plot")
	cmd.Flags().StringVarP(&cc.outputPath, "output", "o", "", "Write the report to a file; a .lz4 suffix compresses it")
	cmd.Flags().StringVar(&cc.rulesPath, "rules", "", "Rule table file (YAML or JSON)")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().Float64("minor", 0, "Minor severity threshold")
	cmd.Flags().Float64("moderate", 0, "Moderate severity threshold")
	cmd.Flags().Float64("major", 0, "Major severity threshold")

	return cmd
}

func (cc *CompareCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := cc.loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, stop, err := startObservability(cc.obsInit, cc.common.observabilityConfig(cfg, observability.ModeCLI))
	if err != nil {
		return err
	}
	defer stop()

	analyzer, err := newAnalyzer(cfg, providers)
	if err != nil {
		return err
	}

	r, err := cc.buildReport(cmd, cfg, analyzer, args[0], args[1])
	if err != nil {
		return err
	}

	format, err := cc.outputFormat(cfg)
	if err != nil {
		return err
	}

	opts := report.Options{NoColor: cfg.Output.NoColor}

	if cc.outputPath != "" {
		err = report.Export(cc.outputPath, format, r, opts)
		if err != nil {
			return err
		}

		providers.Logger.InfoContext(cmd.Context(), "report written", "path", cc.outputPath, "format", format)

		return nil
	}

	return report.Write(cmd.OutOrStdout(), format, r, opts)
}

func (cc *CompareCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := cc.common.load()
	if err != nil {
		return nil, err
	}

	o := config.Overrides{RulesPath: cc.rulesPath, Format: cc.format, NoColor: cc.noColor}

	for name, dst := range map[string]**float64{"minor": &o.Minor, "moderate": &o.Moderate, "major": &o.Major} {
		*dst, err = floatFlag(cmd, name)
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Apply(o)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// outputFormat picks the explicit format flag, then the output file
// extension, then the configured default.
func (cc *CompareCommand) outputFormat(cfg *config.Config) (report.Format, error) {
	if cc.format == "" && cc.outputPath != "" {
		if f, ok := report.FormatForPath(cc.outputPath); ok {
			return f, nil
		}
	}

	return report.ParseFormat(cfg.Output.Format)
}

func (cc *CompareCommand) buildReport(
	cmd *cobra.Command, cfg *config.Config, analyzer *analysis.Analyzer, baselinePath, candidatePath string,
) (report.Report, error) {
	setupLimit, err := cfg.Input.SetupLimit()
	if err != nil {
		return report.Report{}, err
	}

	parser := setupfile.NewParser(setupLimit)

	baseline, err := parser.ParseFile(baselinePath)
	if err != nil {
		return report.Report{}, err
	}

	candidate, err := parser.ParseFile(candidatePath)
	if err != nil {
		return report.Report{}, err
	}

	lines, err := lineStats(baselinePath, candidatePath)
	if err != nil {
		return report.Report{}, err
	}

	profile := setup.Profile{CarModel: cc.carModel, TrackCategory: cc.trackCategory, TrackName: cc.trackName}
	if !cc.noInfer {
		profile = setupfile.Merge(profile, setupfile.InferProfile(baseline, candidate))
	}

	opts := analysis.Options{}
	if !profile.IsZero() {
		opts.Profile = &profile
	}

	comparisonID := uuid.New().String()
	ctx := observability.ContextWithComparisonID(cmd.Context(), comparisonID)

	if cc.telemetryPath != "" {
		telemetryLimit, limitErr := cfg.Input.TelemetryLimit()
		if limitErr != nil {
			return report.Report{}, limitErr
		}

		summary, decodeErr := telemetry.NewDecoder(telemetryLimit).DecodeFile(comparisonID, cc.telemetryPath)
		if decodeErr != nil {
			return report.Report{}, decodeErr
		}

		opts.Telemetry = summary
	}

	res := analyzer.AnalyzeContext(ctx, baseline, candidate, opts)

	return report.Report{
		Result:      res,
		Profile:     opts.Profile,
		Thresholds:  analyzer.Thresholds(),
		Telemetry:   opts.Telemetry,
		Lines:       &lines,
		GeneratedAt: cc.now().UTC(),
	}, nil
}

// lineStats reports raw line changes between two setup files. Both files
// already passed the parser's size limit.
func lineStats(baselinePath, candidatePath string) (setupfile.LineStats, error) {
	baseline, err := os.ReadFile(baselinePath)
	if err != nil {
		return setupfile.LineStats{}, fmt.Errorf("read setup: %w", err)
	}

	candidate, err := os.ReadFile(candidatePath)
	if err != nil {
		return setupfile.LineStats{}, fmt.Errorf("read setup: %w", err)
	}

	return setupfile.CompareLines(string(baseline), string(candidate)), nil
}
