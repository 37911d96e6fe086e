package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus reports job progress on /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt   time.Time
	Running     bool
	LastRunAt   time.Time
	LastSignals int
	LastSkipped int
	LastError   string
}

// NewHealthStatus returns a status with StartedAt set to now.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// RunStarted marks a run as in progress.
func (h *HealthStatus) RunStarted() {
	h.mu.Lock()
	h.Running = true
	h.mu.Unlock()
}

// RunFinished records the outcome of a run.
func (h *HealthStatus) RunFinished(at time.Time, signals, skipped int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Running = false
	h.LastRunAt = at
	h.LastSignals = signals
	h.LastSkipped = skipped
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if h.LastError != "" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}

	body := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		Running     bool   `json:"running"`
		LastRunAt   string `json:"last_run_at"`
		LastSignals int    `json:"last_signals"`
		LastSkipped int    `json:"last_skipped"`
		LastError   string `json:"last_error,omitempty"`
	}{
		Status:      status,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		Running:     h.Running,
		LastRunAt:   lastRun,
		LastSignals: h.LastSignals,
		LastSkipped: h.LastSkipped,
		LastError:   h.LastError,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
