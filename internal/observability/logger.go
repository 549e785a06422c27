package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrComparison = "comparison_id"
	attrTraceID    = "trace_id"
	attrSpanID     = "span_id"
	attrService    = "service"
	attrEnv        = "env"
	attrMode       = "mode"
)

type comparisonKey struct{}

// ContextWithComparisonID tags ctx with the id of the comparison being run.
// Records logged with the returned context carry it as comparison_id.
func ContextWithComparisonID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, comparisonKey{}, id)
}

// ComparisonIDFromContext returns the comparison id set on ctx, or "".
func ComparisonIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(comparisonKey{}).(string)

	return id
}

// TracingHandler is an [slog.Handler] that adds the comparison id and the
// active trace and span ids to every record. Service, env and mode are
// attached once at construction so they stay at the top level under groups.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with trace context and service metadata.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := ComparisonIDFromContext(ctx); id != "" {
		record.AddAttrs(slog.String(attrComparison, id))
	}

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
