package mcp

import (
	"context"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RuleInfo describes one interpretation rule.
type RuleInfo struct {
	ID          string   `json:"id"`
	KeyIncludes []string `json:"keyIncludes"`
	Threshold   float64  `json:"threshold"`
	Short       string   `json:"short"`
}

// handleRules processes setup_rules tool calls.
func (s *Server) handleRules(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input RulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	key := strings.ToLower(strings.TrimSpace(input.Key))
	table := s.svc.Analyzer().Rules().Table()

	out := make([]RuleInfo, 0, len(table.Rules))

	for _, r := range table.Rules {
		if key != "" && !r.Matches(key) {
			continue
		}

		out = append(out, RuleInfo{ID: r.ID, KeyIncludes: r.KeyIncludes, Threshold: r.Threshold, Short: r.Short})
	}

	return jsonResult(out)
}
