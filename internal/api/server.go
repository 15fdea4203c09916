package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/scheduler"
	"github.com/CharlesDeJager/dprof/internal/session"
)

// Server represents the profiling API server
type Server struct {
	httpServer *http.Server
	sessions   *session.Store
	scheduler  *scheduler.Scheduler
}

// NewServer creates a new API server instance wired to the session store
// and the profiling scheduler.
func NewServer(addr string, sessions *session.Store, sched *scheduler.Scheduler) *Server {
	mux := http.NewServeMux()

	server := &Server{
		sessions:  sessions,
		scheduler: sched,
	}
	server.registerRoutes(mux)

	// The browser UI is a separate consumer on another origin.
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})

	server.httpServer = &http.Server{
		Addr:    addr,
		Handler: corsHandler(mux),
	}

	return server
}

// Start starts the API server
func (s *Server) Start() error {
	log.Logger.Infof("Starting API server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	log.Logger.Info("Shutting down API server")

	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("/", rootHandler)

	mux.HandleFunc("POST /upload-file", s.uploadFileHandler)
	mux.HandleFunc("POST /connect-database", s.connectDatabaseHandler)
	mux.HandleFunc("GET /session/{session_id}/record-count", s.recordCountHandler)
	mux.HandleFunc("DELETE /session/{session_id}", s.deleteSessionHandler)

	mux.HandleFunc("POST /profile-data", s.profileDataHandler)
	mux.HandleFunc("GET /profiling-status/{session_id}", s.profilingStatusHandler)
	mux.HandleFunc("GET /profiling-results/{session_id}", s.profilingResultsHandler)

	mux.HandleFunc("POST /export", s.exportHandler)

	mux.HandleFunc("GET /settings", s.getSettingsHandler)
	mux.HandleFunc("POST /settings", s.updateSettingsHandler)
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status": "ok", "timestamp": "%s"}`, time.Now().Format(time.RFC3339))
}

// rootHandler handles root path requests
func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "dprof API Server\n")
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Errorf("Failed to encode response: %v", err)
	}
}

// writeError sends a JSON error body so browser clients get a parseable
// payload on every status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
