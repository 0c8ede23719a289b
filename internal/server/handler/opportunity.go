package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"arbwatch/internal/domain"
	"arbwatch/internal/service"
)

// OpportunityHandler serves the opportunity window and the manual scan
// trigger.
type OpportunityHandler struct {
	opps        *service.OpportunityService
	exec        *service.ExecutionService
	listLimit   int
	exportLimit int
	logger      *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. listLimit is the
// default page size for listings; exportLimit caps an explicit ?limit= for
// export reads.
func NewOpportunityHandler(
	opps *service.OpportunityService,
	exec *service.ExecutionService,
	listLimit, exportLimit int,
	logger *slog.Logger,
) *OpportunityHandler {
	return &OpportunityHandler{
		opps:        opps,
		exec:        exec,
		listLimit:   listLimit,
		exportLimit: exportLimit,
		logger:      logger.With(slog.String("handler", "opportunity")),
	}
}

// ListOpportunities responds with current opportunities, newest first.
// GET /api/opportunities
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, h.listLimit, h.exportLimit)

	views, err := h.opps.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	out := make([]opportunityJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toOpportunityJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": out,
		"count":         len(out),
	})
}

// GetOpportunity responds with one opportunity by ID.
// GET /api/opportunities/{id}
func (h *OpportunityHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.opps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "opportunity not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get opportunity")
		return
	}
	writeJSON(w, http.StatusOK, toOpportunityJSON(view))
}

// ExecuteOpportunity runs a paper execution for the opportunity.
// POST /api/opportunities/{id}/execute
func (h *OpportunityHandler) ExecuteOpportunity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tx, err := h.exec.Execute(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "execute failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "execution failed")
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

// TriggerScan requests one out-of-schedule detection cycle.
// POST /api/scan/trigger
func (h *OpportunityHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if !h.opps.TriggerScan(r.Context()) {
		writeError(w, http.StatusConflict, "no scanner running")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan triggered"})
}
