package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

// ReadyCheck reports whether a subsystem can serve traffic. A nil error means ready.
type ReadyCheck func(ctx context.Context) error

type healthStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

var statusOK = healthStatus{Status: "ok"}

// HealthHandler answers liveness checks with 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, statusOK)
	})
}

// ReadyHandler runs checks in order and answers 503 with the first
// failure as reason, or 200 when all pass.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			if err := check(hr.Context()); err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthStatus{Status: "unavailable", Reason: err.Error()})

				return
			}
		}

		writeHealth(rw, http.StatusOK, statusOK)
	})
}

func writeHealth(rw http.ResponseWriter, code int, body healthStatus) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_ = json.NewEncoder(rw).Encode(body)
}
