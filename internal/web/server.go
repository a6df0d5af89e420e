// Package web is the Client Channel binding: the six incoming commands
// over HTTP, agent_query streamed as SSE, the rest as plain JSON
// request/response keyed by session_id.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketomega/pocket-omega/internal/coordinator"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	mux           *http.ServeMux
	coordinator   *coordinator.Coordinator
	healthHandler *HealthHandler
}

// NewServer creates a new web server bound to an already-wired Coordinator.
func NewServer(c *coordinator.Coordinator, healthInfo HealthInfo) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		coordinator:   c,
		healthHandler: NewHealthHandler(healthInfo),
	}
	s.registerRoutes()
	return s
}

// registerRoutes wires the six Client Channel commands plus the health
// endpoint. No static landing page is served — the Client Channel is a
// JSON event protocol, not a browser UI.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/agent_query", s.handleAgentQuery)
	s.mux.HandleFunc("/api/tool_execute", s.handleToolExecute)
	s.mux.HandleFunc("/api/complexity_analysis", s.handleComplexityAnalysis)
	s.mux.HandleFunc("/api/get_available_tools", s.handleGetAvailableTools)
	s.mux.HandleFunc("/api/system_status", s.handleSystemStatus)
	s.mux.HandleFunc("/api/cancel_workflow", s.handleCancelWorkflow)
	s.mux.HandleFunc("/api/health", s.healthHandler.ServeHTTP)
}

// writeJSON is the shared plain-JSON response helper for the five
// non-streaming commands.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[web] response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// Start begins listening on the configured port with graceful shutdown.
// On SIGINT/SIGTERM, it waits up to 10s for in-flight requests to complete.
func (s *Server) Start() error {
	port := os.Getenv("WEB_PORT")
	if port == "" {
		port = "8080"
	}

	// Default to localhost to avoid unintentional LAN exposure for a local service.
	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	addr := host + ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("⚡ Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Reasoning-chain engine running at http://%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("✅ Server stopped gracefully")
		return nil
	}
	return err
}
