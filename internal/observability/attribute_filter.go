package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// MaxAttributeValueLen caps exported string attribute values. Setup and
// telemetry names come from user files and are otherwise unbounded.
const MaxAttributeValueLen = 128

// attributePolicy decides which span attributes reach the exporter.
// Deny rules are checked before allow rules.
type attributePolicy struct {
	allow     []string
	deny      []string
	denyExact map[string]struct{}
}

// exportPolicy keeps setupcompare, analysis and transport attributes and
// strips anything that may carry raw setup text or personal data.
var exportPolicy = attributePolicy{
	allow: []string{
		"setupcompare.",
		"analysis.",
		"rules.",
		"error.",
		"http.",
		"mcp.",
	},
	deny: []string{
		"user.",
		"setup.content",
		"telemetry.rows",
	},
	denyExact: map[string]struct{}{
		"email":         {},
		"request.body":  {},
		"response.body": {},
	},
}

func (p attributePolicy) keep(key string) bool {
	if _, denied := p.denyExact[key]; denied {
		return false
	}

	for _, prefix := range p.deny {
		if strings.HasPrefix(key, prefix) {
			return false
		}
	}

	// Bare "error" is the OTel convention flag.
	if key == "error" {
		return true
	}

	for _, prefix := range p.allow {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// attributeFilter is a SpanProcessor applying exportPolicy before the
// delegate sees a finished span.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	policy   attributePolicy
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate with the export attribute policy.
// A non-nil logger receives a warning per dropped key.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, policy: exportPolicy, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, attrs: f.apply(s.Attributes())})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	if err := f.delegate.Shutdown(ctx); err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	if err := f.delegate.ForceFlush(ctx); err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

// apply returns the kept attributes with long string values truncated.
func (f *attributeFilter) apply(attrs []attribute.KeyValue) []attribute.KeyValue {
	kept := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		key := string(kv.Key)
		if !f.policy.keep(key) {
			if f.logger != nil {
				f.logger.Warn("attribute blocked by filter", "key", key)
			}

			continue
		}

		if kv.Value.Type() == attribute.STRING && len(kv.Value.AsString()) > MaxAttributeValueLen {
			kv = kv.Key.String(kv.Value.AsString()[:MaxAttributeValueLen])
		}

		kept = append(kept, kv)
	}

	return kept
}

// filteredSpan is a ReadOnlySpan view over a precomputed attribute set.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	return s.attrs
}
