package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"remedy/internal/registry"
	"remedy/internal/remediation"
	"remedy/pkg/logging"
)

const serverSubsystem = "Server"

// Remediator triggers background remediation attempts.
type Remediator interface {
	Trigger(ctx context.Context, service string) error
}

// Server exposes report ingestion, status queries, remediation triggers,
// and the dashboard over HTTP.
type Server struct {
	cluster    string
	statusReg  *registry.StatusRegistry
	history    *registry.History
	remediator Remediator

	httpServer *http.Server
}

// New creates a server bound to the shared registries and remediator.
func New(cluster string, statusReg *registry.StatusRegistry, history *registry.History, remediator Remediator) *Server {
	return &Server{
		cluster:    cluster,
		statusReg:  statusReg,
		history:    history,
		remediator: remediator,
	}
}

// Handler builds the HTTP handler; exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/report", s.handleReport)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/remediate/{service}", s.handleRemediate)
	return mux
}

// Start serves HTTP on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(serverSubsystem, "Listening on http://%s (dashboard: http://%s/dashboard)", addr, addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "remedy auto-remediation server running",
		"cluster": s.cluster,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.statusReg.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"services_monitored": snap.Total,
	})
}

// reportRequest mirrors the agent's report payload.
type reportRequest struct {
	Cluster   string `json:"cluster"`
	Service   string `json:"service"`
	Healthy   bool   `json:"healthy"`
	Details   string `json:"details"`
	ProbeHost string `json:"probe_host"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var report reportRequest
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid report payload"})
		return
	}
	if report.Cluster == "" || report.Service == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "cluster and service are required"})
		return
	}

	key := registry.ServiceKey{Cluster: report.Cluster, Service: report.Service}
	s.statusReg.Report(key, report.Healthy, report.Details, report.ProbeHost)
	logging.Info(serverSubsystem, "Received report for %s: %s", key, healthWord(report.Healthy))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Report received",
		"key":     key.String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.statusReg.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cluster":          s.cluster,
		"status":           snap.Records,
		"remediation_log":  s.history.Entries(),
		"total_services":   snap.Total,
		"healthy_services": snap.Healthy,
	})
}

func (s *Server) handleRemediate(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")

	if err := s.remediator.Trigger(r.Context(), service); err != nil {
		if errors.Is(err, remediation.ErrAlreadyInFlight) {
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"error":   fmt.Sprintf("Remediation already in progress for %s", service),
				"service": service,
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   err.Error(),
			"service": service,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Remediation started for %s", service),
		"service": service,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error(serverSubsystem, err, "Failed to encode response")
	}
}

func healthWord(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}
