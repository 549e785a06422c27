package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool name constants.
const (
	ToolNameCompare = "setup_compare"
	ToolNameRules   = "setup_rules"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyBaseline indicates the baseline parameter is empty.
	ErrEmptyBaseline = errors.New("baseline parameter is required and must not be empty")
	// ErrEmptyCandidate indicates the candidate parameter is empty.
	ErrEmptyCandidate = errors.New("candidate parameter is required and must not be empty")
)

// Input types (auto-generate JSON schemas via struct tags).

// CompareInput is the input schema for the setup_compare tool.
type CompareInput struct {
	Baseline      string   `json:"baseline"                 jsonschema:"baseline setup as INI text ([section] headers and key=value lines)"`
	Candidate     string   `json:"candidate"                jsonschema:"candidate setup as INI text"`
	BaselineName  string   `json:"baseline_name,omitempty"  jsonschema:"display name of the baseline setup"`
	CandidateName string   `json:"candidate_name,omitempty" jsonschema:"display name of the candidate setup"`
	CarModel      string   `json:"car_model,omitempty"      jsonschema:"car model used to select profile hints (e.g. gt3)"`
	TrackCategory string   `json:"track_category,omitempty" jsonschema:"track category used to select profile hints (e.g. road or oval)"`
	TrackName     string   `json:"track_name,omitempty"     jsonschema:"track name for context"`
	Minor         *float64 `json:"minor,omitempty"          jsonschema:"minor severity threshold override"`
	Moderate      *float64 `json:"moderate,omitempty"       jsonschema:"moderate severity threshold override"`
	Major         *float64 `json:"major,omitempty"          jsonschema:"major severity threshold override"`
	Telemetry     string   `json:"telemetry,omitempty"      jsonschema:"optional lap telemetry CSV with 18 columns per lap"`
	NoInfer       bool     `json:"no_infer,omitempty"       jsonschema:"do not infer car and track from setup parameters"`
}

// RulesInput is the input schema for the setup_rules tool.
type RulesInput struct {
	Key string `json:"key,omitempty" jsonschema:"optional parameter key; only rules matching it are listed"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: json.RawMessage(data)}, nil
}
