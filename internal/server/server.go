// Package server exposes the HTTP API: batch submission, live log
// streaming, uploads, and library management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"curio/internal/batch"
	"curio/internal/catalog"
	"curio/internal/config"
	"curio/internal/logging"
	"curio/internal/logstream"
)

// BatchRunner is the slice of the orchestrator the API needs.
type BatchRunner interface {
	Submit(ctx context.Context, items []string) (string, error)
	Running() bool
	Channel() *logstream.Channel
}

// Server serves the enrichment HTTP API.
type Server struct {
	cfg    *config.Config
	store  *catalog.Store
	runner BatchRunner
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New constructs a Server bound per the configuration.
func New(cfg *config.Config, store *catalog.Store, runner BatchRunner, logger *slog.Logger) *Server {
	srv := &Server{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/batch/start", srv.handleBatchStart)
	mux.HandleFunc("/api/upload", srv.handleUpload)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/logs", srv.handleLogs)
	mux.HandleFunc("/api/library", srv.handleLibrary)
	mux.HandleFunc("/api/records/", srv.handleRecord)
	mux.HandleFunc("/api/playlists/", srv.handlePlaylist)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: /api/logs streams for the lifetime of a batch.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening and serving until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	if bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type batchStartRequest struct {
	URLs []string `json:"urls"`
	// Items is accepted as an alias for clients that submit file paths
	// alongside URLs.
	Items []string `json:"items"`
}

func (r batchStartRequest) locators() []string {
	return append(append([]string(nil), r.URLs...), r.Items...)
}

func (s *Server) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req batchStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	runID, err := s.runner.Submit(r.Context(), req.locators())
	switch {
	case errors.Is(err, batch.ErrNoItems):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, batch.ErrBatchActive):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"is_running": s.runner.Running()})
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries, err := s.store.Library(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"library": entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
