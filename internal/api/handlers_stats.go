package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil || s.deps == nil || s.deps.Backend == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":     s.deps.Backend.Name(),
		"model":       s.deps.Backend.Model(),
		"stats":       s.stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
		"jobs":        s.orchestrator.JobCount(),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var embeddings, results int
	if s.deps != nil && s.deps.Embeddings != nil {
		embeddings = s.deps.Embeddings.Clear()
	}
	if s.deps != nil && s.deps.Results != nil {
		results = s.deps.Results.Clear()
	}
	s.log.Info("caches cleared", "embeddings", embeddings, "results", results)
	writeJSON(w, http.StatusOK, map[string]int{
		"embeddings_cleared": embeddings,
		"results_cleared":    results,
	})
}
