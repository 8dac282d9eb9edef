package gateway

import (
	"context"
	"net/http"
)

// Server wraps an HTTP server with sleuth-specific routing.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)

	mux.HandleFunc("POST /api/ingest", h.Ingest)

	mux.HandleFunc("POST /api/orchestrate/plan", h.CreatePlan)
	mux.HandleFunc("POST /api/orchestrate/execute", h.Execute)
	mux.HandleFunc("GET /api/orchestrate/plan/{planID}", h.GetPlan)

	return &Server{
		httpServer: &http.Server{
			Addr:    listenAddr,
			Handler: mux,
		},
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
