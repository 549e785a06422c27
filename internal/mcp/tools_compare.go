package mcp

import (
	"context"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tfunk1030/setupcompare/internal/service"
	"github.com/tfunk1030/setupcompare/pkg/setup"
	"github.com/tfunk1030/setupcompare/pkg/severity"
)

// handleCompare processes setup_compare tool calls.
func (s *Server) handleCompare(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input CompareInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if strings.TrimSpace(input.Baseline) == "" {
		return errorResult(ErrEmptyBaseline)
	}

	if strings.TrimSpace(input.Candidate) == "" {
		return errorResult(ErrEmptyCandidate)
	}

	req := service.Request{
		BaselineText:  input.Baseline,
		CandidateText: input.Candidate,
		BaselineName:  input.BaselineName,
		CandidateName: input.CandidateName,
		Thresholds:    s.thresholds(input),
		TelemetryCSV:  input.Telemetry,
		InferProfile:  !input.NoInfer,
	}

	p := setup.Profile{CarModel: input.CarModel, TrackCategory: input.TrackCategory, TrackName: input.TrackName}
	if !p.IsZero() {
		req.Profile = &p
	}

	res, err := s.svc.Analyze(ctx, req)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(res)
}

// thresholds applies per-call overrides to the analyzer defaults. It
// returns nil when the call overrides nothing.
func (s *Server) thresholds(input CompareInput) *severity.Thresholds {
	if input.Minor == nil && input.Moderate == nil && input.Major == nil {
		return nil
	}

	t := s.svc.Analyzer().Thresholds()

	if input.Minor != nil {
		t.Minor = *input.Minor
	}

	if input.Moderate != nil {
		t.Moderate = *input.Moderate
	}

	if input.Major != nil {
		t.Major = *input.Major
	}

	return &t
}
