package handlers

import (
	"net/http"

	"ragchat/internal/contextutil"
	"ragchat/internal/rag"
)

// StatsHandler exposes a read-only snapshot of the retrieval engine.
type StatsHandler struct {
	engine *rag.Engine
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(engine *rag.Engine) *StatsHandler {
	return &StatsHandler{engine: engine}
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.engine.Stats(ctx)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to collect stats", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to collect stats")
		return
	}

	writeJSON(w, r, http.StatusOK, stats)
}
