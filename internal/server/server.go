// Package server exposes setup comparison over HTTP alongside the health,
// readiness and metrics endpoints.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tfunk1030/setupcompare/internal/observability"
	"github.com/tfunk1030/setupcompare/internal/report"
	"github.com/tfunk1030/setupcompare/internal/service"
	"github.com/tfunk1030/setupcompare/internal/setupfile"
	"github.com/tfunk1030/setupcompare/internal/telemetry"
)

// AnalysesPath is the route accepting comparison requests.
const AnalysesPath = "/api/v1/analyses"

// DefaultMaxBodySize bounds request bodies when Deps.MaxBodySize is unset.
const DefaultMaxBodySize = 8 << 20

// shutdownTimeout bounds graceful shutdown once the serve context ends.
const shutdownTimeout = 10 * time.Second

const contentTypeJSON = "application/json"

// ComparisonIDHeader carries the id assigned to an analysis request.
const ComparisonIDHeader = "X-Comparison-ID"

// Deps holds injectable dependencies for the server.
// Zero-value fields use production defaults.
type Deps struct {
	Service *service.Service
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.REDMetrics

	// MetricsHandler serves /metrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler
	Checks         []observability.ReadyCheck

	MaxBodySize  int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the comparison API.
type Server struct {
	svc          *service.Service
	logger       *slog.Logger
	handler      http.Handler
	maxBody      int64
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// New creates a Server.
func New(deps Deps) *Server {
	s := &Server{
		svc:          deps.Service,
		logger:       deps.Logger,
		maxBody:      deps.MaxBodySize,
		readTimeout:  deps.ReadTimeout,
		writeTimeout: deps.WriteTimeout,
	}

	if s.svc == nil {
		s.svc = service.New(nil, nil, nil)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodySize
	}

	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	mux := observability.DiagnosticsMux(deps.MetricsHandler, deps.Checks...)
	mux.HandleFunc("POST "+AnalysesPath, s.handleAnalyze)

	s.handler = observability.HTTPMiddleware(tracer, deps.Metrics, mux)

	return s
}

// Handler returns the root handler with tracing and metrics applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(l)
	}()

	s.logger.InfoContext(ctx, "http server listening", "addr", l.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	return s.Serve(ctx, l)
}

// handleAnalyze decodes a service.Request and responds with the analysis
// result. The optional format query parameter selects yaml, text or plot
// rendering instead of JSON.
func (s *Server) handleAnalyze(rw http.ResponseWriter, hr *http.Request) {
	format := report.FormatJSON

	if name := hr.URL.Query().Get("format"); name != "" {
		parsed, err := report.ParseFormat(name)
		if err != nil {
			s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

			return
		}

		format = parsed
	}

	hr.Body = http.MaxBytesReader(rw, hr.Body, s.maxBody)

	var req service.Request

	dec := json.NewDecoder(hr.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&req)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(hr.Context(), rw, http.StatusRequestEntityTooLarge, err)

			return
		}

		s.writeError(hr.Context(), rw, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))

		return
	}

	comparisonID := uuid.New().String()
	rw.Header().Set(ComparisonIDHeader, comparisonID)

	ctx := observability.ContextWithComparisonID(hr.Context(), comparisonID)

	out, err := s.svc.Run(ctx, req)
	if err != nil {
		s.writeError(ctx, rw, statusFor(err), err)

		return
	}

	// Render fully before writing the status so an encoding failure is a
	// 500 rather than a truncated 200.
	var body bytes.Buffer

	if format == report.FormatJSON {
		err = json.NewEncoder(&body).Encode(out.Result)
	} else {
		err = report.Write(&body, format, report.Report{
			Result:      out.Result,
			Profile:     out.Profile,
			Thresholds:  out.Thresholds,
			Telemetry:   out.Telemetry,
			GeneratedAt: time.Now().UTC(),
		}, report.Options{NoColor: true})
	}

	if err != nil {
		s.writeError(ctx, rw, http.StatusInternalServerError, fmt.Errorf("render %s: %w", format, err))

		return
	}

	rw.Header().Set("Content-Type", contentTypes[format])
	rw.WriteHeader(http.StatusOK)

	if _, err = body.WriteTo(rw); err != nil {
		s.logger.WarnContext(ctx, "write response failed", "error", err)
	}
}

var contentTypes = map[report.Format]string{
	report.FormatJSON: contentTypeJSON,
	report.FormatYAML: "application/yaml",
	report.FormatText: "text/plain; charset=utf-8",
	report.FormatPlot: "text/html; charset=utf-8",
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, setupfile.ErrTooLarge), errors.Is(err, telemetry.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrMissingSetup),
		errors.Is(err, service.ErrAmbiguousSetup),
		errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "error", err)
	} else {
		s.logger.DebugContext(ctx, "request rejected", "status", status, "error", err)
	}

	rw.Header().Set("Content-Type", contentTypeJSON)
	rw.WriteHeader(status)

	_ = json.NewEncoder(rw).Encode(errorBody{Error: err.Error()})
}
