package api

import (
	"net/http"
)

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth":      s.orchestrator.QueueDepth(),
		"templates_cached": s.engine.Templates().Len(),
		"stats":            s.orchestrator.Stats().Snapshot(),
	})
}
