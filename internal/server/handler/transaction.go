package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"arbwatch/internal/domain"
	"arbwatch/internal/service"
)

// TransactionHandler serves the paper execution history.
type TransactionHandler struct {
	exec        *service.ExecutionService
	listLimit   int
	exportLimit int
	logger      *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler. listLimit is the
// default page size; exportLimit caps an explicit ?limit=.
func NewTransactionHandler(exec *service.ExecutionService, listLimit, exportLimit int, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		exec:        exec,
		listLimit:   listLimit,
		exportLimit: exportLimit,
		logger:      logger.With(slog.String("handler", "transaction")),
	}
}

// ListTransactions responds with recent transactions, newest first.
// GET /api/transactions
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, h.listLimit, h.exportLimit)

	txs, err := h.exec.ListTransactions(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"count":        len(out),
	})
}

// GetTransaction responds with one transaction by ID.
// GET /api/transactions/{id}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tx, err := h.exec.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(tx))
}
