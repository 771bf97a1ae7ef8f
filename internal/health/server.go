package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check probes one dependency (redis, sqlite, service reachability).
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Server provides HTTP endpoints for health monitoring and metrics.
type Server struct {
	checks []Check
	server *http.Server
}

// NewServer creates a new health server on the given port.
func NewServer(port int, checks ...Check) *Server {
	mux := http.NewServeMux()
	s := &Server{
		checks: checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := make(map[string]string, len(s.checks))
	healthy := true
	for _, c := range s.checks {
		if err := c.Probe(r.Context()); err != nil {
			report[c.Name] = err.Error()
			healthy = false
			continue
		}
		report[c.Name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": report,
	})
}
