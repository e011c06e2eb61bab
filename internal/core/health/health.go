// Package health serves the liveness and readiness probes of the HTTP
// transport.
package health

import (
	"encoding/json"
	"net/http"
)

// Liveness answers 200 as long as the process serves HTTP.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type ReadinessReporter interface {
	Readiness() (ready bool, checks map[string]string)
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Readiness reports 503 with the failing checks until rr is ready.
func Readiness(rr ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ready, checks := rr.Readiness()
		out := readiness{Status: "not_ready", Checks: checks}
		code := http.StatusServiceUnavailable
		if ready {
			out.Status, code = "ready", http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}
