// Package mcp implements a Model Context Protocol server exposing setup
// comparison as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/service"
)

const (
	serverName = "setupcompare"

	// opPrefix prefixes tool span names and metric operations.
	opPrefix = "mcp."

	// traceIDContentKey labels the trace id text item appended to sampled results.
	traceIDContentKey = "trace_id"
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	Logger *slog.Logger

	// Metrics records per-tool RED metrics. Nil disables them.
	Metrics *observability.REDMetrics

	// Tracer starts one span per tool call. Nil disables tracing.
	Tracer trace.Tracer

	Service *service.Service

	// Version is reported as the implementation version. Empty reports "dev".
	Version string
}

// Server is an MCP server with the comparison tools registered. The tool
// set is fixed at construction.
type Server struct {
	inner   *mcpsdk.Server
	tools   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	svc     *service.Service
}

// NewServer creates a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	svc := deps.Service
	if svc == nil {
		svc = service.New(nil, nil, nil)
	}

	srv := &Server{
		inner: mcpsdk.NewServer(
			&mcpsdk.Implementation{Name: serverName, Version: version},
			&mcpsdk.ServerOptions{Logger: deps.Logger},
		),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		svc:     svc,
	}

	addTool(srv, &mcpsdk.Tool{Name: ToolNameCompare, Description: compareToolDescription}, srv.handleCompare)
	addTool(srv, &mcpsdk.Tool{Name: ToolNameRules, Description: rulesToolDescription}, srv.handleRules)

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	names := slices.Clone(s.tools)
	slices.Sort(names)

	return names
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func addTool[In any](
	s *Server,
	tool *mcpsdk.Tool,
	handler func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) {
	mcpsdk.AddTool(s.inner, tool, instrument(s, tool.Name, handler))
	s.tools = append(s.tools, tool.Name)
}

// instrument wraps a tool handler with a server span and RED metrics.
// Sampled results get a trailing "trace_id=<id>" text item so callers can
// find the trace.
func instrument[In any](
	s *Server,
	name string,
	handler func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error) {
	op := opPrefix + name

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		if s.metrics != nil {
			done := s.metrics.TrackInflight(ctx, op)
			defer done()
		}

		var span trace.Span

		if s.tracer != nil {
			ctx, span = s.tracer.Start(ctx, op,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("mcp.tool", name)),
			)
			defer span.End()
		}

		result, output, err := handler(ctx, req, input)
		failed := err != nil || (result != nil && result.IsError)

		if span != nil {
			if failed {
				span.SetAttributes(attribute.Bool("error.tool", true))
			}

			if sc := span.SpanContext(); sc.IsSampled() && result != nil {
				result.Content = append(result.Content, &mcpsdk.TextContent{
					Text: traceIDContentKey + "=" + sc.TraceID().String(),
				})
			}
		}

		if s.metrics != nil {
			status := observability.StatusOK
			if failed {
				status = observability.StatusError
			}

			s.metrics.RecordRequest(ctx, op, status, time.Since(start))
		}

		return result, output, err
	}
}

const (
	compareToolDescription = "Compare two racing car setups given as INI-style text. " +
		"Returns per-parameter deltas with severity and interpretation plus an overall summary. " +
		"Optional car/track profile, severity thresholds and lap telemetry CSV refine the result."

	rulesToolDescription = "List the active interpretation rules: rule id, matched key fragments " +
		"and minimum delta. Accepts an optional key filter."
)
