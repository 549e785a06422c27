package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tfunk1030/setupcompare/internal/observability"
)

func newRecordingTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return exporter, tp.Tracer("test")
}

func TestHTTPMiddleware_SpanAndMetrics(t *testing.T) {
	t.Parallel()

	exporter, tracer := newRecordingTracer(t)
	red, reader := setupTestMeter(t)

	var sawSpan bool

	handler := http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		sawSpan = trace.SpanContextFromContext(hr.Context()).IsValid()

		rw.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tracer, red, handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analyses", http.NoBody))

	assert.True(t, sawSpan)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/v1/analyses", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "setupcompare.requests.total")))
}

func TestHTTPMiddleware_ServerErrorMarksSpan(t *testing.T) {
	t.Parallel()

	exporter, tracer := newRecordingTracer(t)
	red, reader := setupTestMeter(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		http.Error(rw, "boom", http.StatusInternalServerError)
	})

	observability.HTTPMiddleware(tracer, red, handler).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	assert.Equal(t, int64(1), sumValue(t, findMetric(collectMetrics(t, reader), "setupcompare.errors.total")))
}

func TestHTTPMiddleware_ImplicitOKAndNilMetrics(t *testing.T) {
	t.Parallel()

	exporter, tracer := newRecordingTracer(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tracer, nil, handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, "ok", rec.Body.String())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestHTTPMiddleware_ExtractsTraceParent(t *testing.T) {
	t.Parallel()

	exporter, tracer := newRecordingTracer(t)
	prop := propagation.TraceContext{}

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	req.Header.Set("traceparent", "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01")

	// The middleware reads the global propagator; TraceContext is stateless.
	otel.SetTextMapPropagator(prop)

	observability.HTTPMiddleware(tracer, nil, handler).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", spans[0].SpanContext.TraceID().String())
	assert.Equal(t, "0102030405060708", spans[0].Parent.SpanID().String())
}
