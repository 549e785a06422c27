package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfunk1030/setupcompare/internal/observability"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()

	pass := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("rules not loaded") }

	tests := []struct {
		name   string
		checks []observability.ReadyCheck
		code   int
		body   string
	}{
		{name: "no checks", code: http.StatusOK, body: `{"status":"ok"}`},
		{name: "passing", checks: []observability.ReadyCheck{pass, pass}, code: http.StatusOK, body: `{"status":"ok"}`},
		{name: "failing", checks: []observability.ReadyCheck{pass, fail}, code: http.StatusServiceUnavailable, body: `{"status":"unavailable","reason":"rules not loaded"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			observability.ReadyHandler(tt.checks...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))

			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestDiagnosticsServer(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(rw, "# metrics\n")
	})

	srv, err := observability.NewDiagnosticsServer("127.0.0.1:0", metrics)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, srv.Close()) })

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/metrics": http.StatusOK,
		"/nope":    http.StatusNotFound,
	} {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+srv.Addr()+path, http.NoBody)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestDiagnosticsMux_NoMetrics(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.DiagnosticsMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
