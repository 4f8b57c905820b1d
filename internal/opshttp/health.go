package opshttp

import (
	"net/http"

	"github.com/owenvale/shopfront/internal/probe"
)

// probeHandler answers 200 with okBody while p passes and 503 with the
// failure reason once it does not. A nil probe always passes.
func probeHandler(p probe.Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				http.Error(w, err.Error()+"\n", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody + "\n"))
	}
}

// HealthzHandler reports process liveness.
func HealthzHandler(p probe.Probe) http.HandlerFunc {
	return probeHandler(p, "ok")
}

// ReadyzHandler reports readiness to take traffic; it fails while the
// shutdown gate is draining.
func ReadyzHandler(p probe.Probe) http.HandlerFunc {
	return probeHandler(p, "ready")
}
