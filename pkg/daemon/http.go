package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPServer provides health checks, status, cost reports, and metrics.
type HTTPServer struct {
	port   int
	daemon *Daemon
	server *http.Server
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(port int, daemon *Daemon) *HTTPServer {
	return &HTTPServer{
		port:   port,
		daemon: daemon,
	}
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/ready", s.readinessHandler)
	mux.HandleFunc("/readyz", s.readinessHandler)

	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/costs", s.costsHandler)

	if metricsEnabled {
		mux.Handle("/metrics", GetMetricsHandler())
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// healthHandler responds to health check requests.
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "agent-autoscaler",
	})
}

// readinessHandler responds to readiness probe requests.
func (s *HTTPServer) readinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.daemon == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "not ready",
			"reason": "daemon not initialized",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// statusHandler provides detailed daemon status.
func (s *HTTPServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.daemon == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "daemon not available"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.daemon.GetStatus())
}

// costsHandler exports the cost ledger report. The window defaults to 24
// hours and is overridable with ?hours=N.
func (s *HTTPServer) costsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.daemon == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "daemon not available"})
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": "hours must be a positive integer"})
			return
		}
		hours = n
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.daemon.CostReport(hours))
}
