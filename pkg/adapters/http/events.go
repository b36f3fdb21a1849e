package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/tally/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// subscribeEvents handles GET /sessions/{id}/events (SSE).
// The first event carries the whole state; later events carry diffs.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, fmt.Errorf("streaming not supported"))
		return
	}

	sessionID := chi.URLParam(r, "id")
	ch, cancel, state, err := s.subscribe(r.Context(), sessionID, false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer cancel()

	initial, err := json.Marshal(domain.Diff(nil, state))
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("sse: subscribed", "session_id", sessionID)
	fmt.Fprintf(w, "data: %s\n\n", initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
