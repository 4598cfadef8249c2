// Package api is the HTTP surface over the mirror store and the escrow
// ledger: campaign and contribution reads/writes, the new-checkpoint webhook
// that triggers reconciliation, health and Prometheus metrics endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fundsync/internal/chain"
	"fundsync/internal/storage"
)

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	repository storage.Repository
	ledger     chain.Ledger
	reconciler chain.Runner
	port       int
}

// NewServer creates an API server. The repository, ledger, and reconciler are
// available to all handlers.
func NewServer(port int, repository storage.Repository, ledger chain.Ledger, reconciler chain.Runner) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		mux:        mux,
		repository: repository,
		ledger:     ledger,
		reconciler: reconciler,
		port:       port,
	}

	s.registerRoutes()

	return s
}

// registerRoutes sets up all HTTP routes
func (s *Server) registerRoutes() {
	// Core endpoints
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.handleMetrics())

	// Campaign and contribution endpoints
	s.mux.HandleFunc("/campaigns", s.handleCampaigns)
	s.mux.HandleFunc("/campaigns/", s.handleCampaignRoutes)
	s.mux.HandleFunc("/contributions", s.handleContributions)

	// Reconciliation trigger
	s.mux.HandleFunc("/webhooks/new-checkpoint", s.handleNewCheckpoint)
}

// handleCampaigns routes the collection endpoint (without trailing slash).
func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListCampaigns(w, r)
	case http.MethodPost:
		s.handleOpenCampaign(w, r)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCampaignRoutes routes campaign sub-endpoints (with trailing slash).
func (s *Server) handleCampaignRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/campaigns/")
	parts := strings.Split(path, "/")

	// /campaigns/{id}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetCampaign(w, r, parts[0])
		case http.MethodPut:
			s.handleEditCampaign(w, r, parts[0])
		default:
			s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// GET /campaigns/{id}/contributions/{principal}
	if len(parts) == 3 && parts[1] == "contributions" {
		if r.Method != http.MethodGet {
			s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleGetContribution(w, r, parts[0], parts[2])
		return
	}

	s.sendError(w, "Endpoint not found", http.StatusNotFound)
}

// handleContributions routes POST /contributions.
func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.handleContribute(w, r)
}

// Start starts the HTTP server in a goroutine and returns immediately.
func (s *Server) Start() error {
	go func() {
		slog.Info("API server starting",
			"port", s.port,
			"endpoints", []string{"/", "/health", "/metrics", "/campaigns", "/contributions", "/webhooks/new-checkpoint"},
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	// Give the server a moment to start
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
// Waits for active connections to close or context to timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("API server shutting down...")
	return s.httpServer.Shutdown(ctx)
}
