package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports the engine mode and quote source for dashboards.
type StatusHandler struct {
	Mode      string
	Source    string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode, source string) *StatusHandler {
	return &StatusHandler{Mode: mode, Source: source, StartedAt: time.Now().UTC()}
}

// GetStatus responds with the current mode, quote source, and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"quote_source":   h.Source,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
