package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	body := map[string]any{
		"stats":    s.stats.Snapshot(),
		"sessions": s.sessions.Store().Len(),
	}
	if s.persister != nil {
		body["persist_queue_depth"] = s.persister.QueueDepth()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleWriteStatus reports a queued draft write.
func (s *Server) handleWriteStatus(w http.ResponseWriter, r *http.Request) {
	if s.persister == nil {
		jsonError(w, "write not found", http.StatusNotFound)
		return
	}
	wr := s.persister.GetWrite(chi.URLParam(r, "writeID"))
	if wr == nil {
		jsonError(w, "write not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wr.Snapshot())
}

func (s *Server) handleColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"colors": s.sessions.Colors().Snapshot()})
}

func (s *Server) handleResetColors(w http.ResponseWriter, r *http.Request) {
	s.sessions.ResetColors()
	w.WriteHeader(http.StatusNoContent)
}
