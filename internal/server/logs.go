package server

import (
	"fmt"
	"net/http"
	"time"

	"curio/internal/logstream"
)

const defaultLogIdleTimeout = 60 * time.Second

// handleLogs streams batch log lines as server-sent events. The stream ends
// with a sentinel data line when the batch finishes or when no event arrives
// within the idle timeout.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	channel := s.runner.Channel()
	idle := s.logIdleTimeout()
	for {
		if r.Context().Err() != nil {
			return
		}
		event, ok := channel.Consume(idle)
		if !ok || event.Terminal {
			fmt.Fprintf(w, "data: %s\n\n", logstream.StreamEnd)
			flusher.Flush()
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", event.Text)
		flusher.Flush()
	}
}

func (s *Server) logIdleTimeout() time.Duration {
	if seconds := s.cfg.Enricher.LogIdleTimeoutSeconds; seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultLogIdleTimeout
}
