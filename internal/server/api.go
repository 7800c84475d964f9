package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/grovetools/devsync/internal/journal"
)

// Status is the payload of /api/status.
type Status struct {
	Addr         string        `json:"addr"`
	Path         string        `json:"path"`
	ConfigSource string        `json:"config_source,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Stats        journal.Stats `json:"stats"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := Status{
		Addr:         s.opts.Listen,
		Path:         s.opts.Path,
		ConfigSource: s.opts.ConfigSource,
		StartedAt:    s.startedAt,
	}
	if s.listener != nil {
		status.Addr = s.listener.Addr().String()
	}
	s.mu.RUnlock()
	status.Stats = s.journal.Stats()

	writeJSON(w, status)
}

// handleHistory returns recent patch results, oldest first. ?limit=N caps
// the count.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.journal.Recent(limit))
}

// handleStream provides Server-Sent Events (SSE) for journal updates.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.journal.Subscribe()
	defer s.journal.Unsubscribe(ch)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
