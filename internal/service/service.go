// Package service resolves comparison requests from the network adapters
// into analyzer calls. Requests carry either parsed setups or raw setup
// text, plus optional profile, threshold and telemetry context.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/internal/telemetry"
	"github.com/tfunk1030/setupcompare/pkg/analysis"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

// Default names for setups submitted as raw text.
const (
	DefaultBaselineName  = "baseline"
	DefaultCandidateName = "candidate"
	telemetrySourceName  = "telemetry.csv"
)

// Sentinel errors for request validation.
var (
	// ErrMissingSetup indicates a request without a baseline or candidate.
	ErrMissingSetup = errors.New("baseline and candidate setups are required")
	// ErrAmbiguousSetup indicates a side given both as parsed setup and as text.
	ErrAmbiguousSetup = errors.New("setup given both as parsed parameters and as text")
	// ErrInvalidRequest wraps any other rejected request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoRules indicates an analyzer whose rule table is empty.
	ErrNoRules = errors.New("rule table has no rules")
)

// Request is one comparison. Each side is either a parsed File or raw text.
type Request struct {
	Baseline      *setup.File             `json:"baseline,omitempty"`
	Candidate     *setup.File             `json:"candidate,omitempty"`
	BaselineText  string                  `json:"baselineText,omitempty"`
	CandidateText string                  `json:"candidateText,omitempty"`
	BaselineName  string                  `json:"baselineName,omitempty"`
	CandidateName string                  `json:"candidateName,omitempty"`
	Profile       *setup.Profile          `json:"profile,omitempty"`
	Thresholds    *severity.Thresholds    `json:"thresholds,omitempty"`
	Telemetry     *setup.TelemetrySummary `json:"telemetry,omitempty"`
	TelemetryCSV  string                  `json:"telemetryCsv,omitempty"`
	// InferProfile fills empty profile fields from car and track parameters.
	InferProfile bool `json:"inferProfile,omitempty"`
}

// Service runs requests against a shared analyzer. It is safe for
// concurrent use.
type Service struct {
	analyzer *analysis.Analyzer
	parser   *setupfile.Parser
	decoder  *telemetry.Decoder
}

// New creates a Service. A nil analyzer selects analysis.New().
func New(analyzer *analysis.Analyzer, parser *setupfile.Parser, decoder *telemetry.Decoder) *Service {
	if analyzer == nil {
		analyzer = analysis.New()
	}

	if parser == nil {
		parser = setupfile.NewParser(0)
	}

	if decoder == nil {
		decoder = telemetry.NewDecoder(0)
	}

	return &Service{analyzer: analyzer, parser: parser, decoder: decoder}
}

// Analyzer returns the underlying analyzer.
func (s *Service) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// Ready reports whether the analyzer can interpret deltas. It matches
// observability.ReadyCheck.
func (s *Service) Ready(context.Context) error {
	if s.analyzer.Rules().Len() == 0 {
		return ErrNoRules
	}

	return nil
}

// Outcome is an analysis result together with the context it was computed
// under: the effective profile (after inference), thresholds and telemetry.
type Outcome struct {
	analysis.Result

	Profile    *setup.Profile
	Thresholds severity.Thresholds
	Telemetry  *setup.TelemetrySummary
}

// Analyze is Run without the outcome context.
func (s *Service) Analyze(ctx context.Context, req Request) (analysis.Result, error) {
	out, err := s.Run(ctx, req)
	if err != nil {
		return analysis.Result{}, err
	}

	return out.Result, nil
}

// Run validates req and runs the pipeline once. A comparison id is
// generated unless ctx already carries one; decoded telemetry is tagged
// with it.
func (s *Service) Run(ctx context.Context, req Request) (Outcome, error) {
	comparisonID := observability.ComparisonIDFromContext(ctx)
	if comparisonID == "" {
		comparisonID = uuid.New().String()
		ctx = observability.ContextWithComparisonID(ctx, comparisonID)
	}

	baseline, err := s.resolve(req.Baseline, req.BaselineText, req.BaselineName, DefaultBaselineName)
	if err != nil {
		return Outcome{}, fmt.Errorf("baseline: %w", err)
	}

	candidate, err := s.resolve(req.Candidate, req.CandidateText, req.CandidateName, DefaultCandidateName)
	if err != nil {
		return Outcome{}, fmt.Errorf("candidate: %w", err)
	}

	opts := analysis.Options{Profile: req.Profile, Thresholds: req.Thresholds, Telemetry: req.Telemetry}

	if opts.Thresholds != nil {
		err = opts.Thresholds.Validate()
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	if req.InferProfile {
		var p setup.Profile
		if req.Profile != nil {
			p = *req.Profile
		}

		p = setupfile.Merge(p, setupfile.InferProfile(baseline, candidate))
		if !p.IsZero() {
			opts.Profile = &p
		}
	}

	if opts.Telemetry == nil && strings.TrimSpace(req.TelemetryCSV) != "" {
		summary, decodeErr := s.decoder.Decode(comparisonID, telemetrySourceName, strings.NewReader(req.TelemetryCSV))
		if decodeErr != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidRequest, decodeErr)
		}

		opts.Telemetry = summary
	}

	thresholds := s.analyzer.Thresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}

	return Outcome{
		Result:     s.analyzer.AnalyzeContext(ctx, baseline, candidate, opts),
		Profile:    opts.Profile,
		Thresholds: thresholds,
		Telemetry:  opts.Telemetry,
	}, nil
}

func (s *Service) resolve(file *setup.File, text, name, fallback string) (setup.File, error) {
	if name == "" {
		name = fallback
	}

	switch {
	case file != nil && text != "":
		return setup.File{}, ErrAmbiguousSetup
	case file != nil:
		out := *file
		if out.Name == "" {
			out.Name = name
		}

		if out.Parameters == nil {
			out.Parameters = make([]setup.Parameter, 0)
		}

		return out, nil
	case text != "":
		parsed, err := s.parser.Parse(name, strings.NewReader(text))
		if err != nil {
			return setup.File{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}

		return parsed, nil
	default:
		return setup.File{}, ErrMissingSetup
	}
}
