package handler

import (
	"log/slog"
	"net/http"

	"arbwatch/internal/service"
)

// StatsHandler serves the rolling-window overview.
type StatsHandler struct {
	stats  *service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger.With(slog.String("handler", "stats")),
	}
}

// GetOverview responds with the current rolling statistics.
// GET /api/stats/overview
func (h *StatsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "overview failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_profit_24h":     overview.TotalProfit24h,
		"active_opportunities": overview.ActiveOpportunities,
		"success_rate":         overview.SuccessRate,
		"gas_spent_24h":        overview.GasSpent24h,
		"scanned_pairs":        overview.ScannedPairs,
	})
}
