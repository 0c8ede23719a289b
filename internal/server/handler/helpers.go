// Package handler contains the HTTP handlers for the API server.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// writeJSON marshals v and writes it with the given status code. A marshal
// failure falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseLimit extracts a ?limit= query parameter, clamped to [1, max].
func parseLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// opportunityJSON is the wire shape for an opportunity.
type opportunityJSON struct {
	ID                  string          `json:"id"`
	TradingPairID       string          `json:"trading_pair_id"`
	PairName            string          `json:"pair_name"`
	VenueAID            string          `json:"venue_a_id"`
	VenueAName          string          `json:"venue_a_name"`
	VenueBID            string          `json:"venue_b_id"`
	VenueBName          string          `json:"venue_b_name"`
	PriceA              decimal.Decimal `json:"price_a"`
	PriceB              decimal.Decimal `json:"price_b"`
	ProfitMarginPercent decimal.Decimal `json:"profit_margin_percent"`
	EstimatedProfit     decimal.Decimal `json:"estimated_profit"`
	EstimatedCost       decimal.Decimal `json:"estimated_cost"`
	IsExecutable        bool            `json:"is_executable"`
	CreatedAt           time.Time       `json:"created_at"`
}

func toOpportunityJSON(v domain.OpportunityView) opportunityJSON {
	return opportunityJSON{
		ID:                  v.ID,
		TradingPairID:       v.TradingPairID,
		PairName:            v.PairName,
		VenueAID:            v.VenueAID,
		VenueAName:          v.VenueAName,
		VenueBID:            v.VenueBID,
		VenueBName:          v.VenueBName,
		PriceA:              v.PriceA,
		PriceB:              v.PriceB,
		ProfitMarginPercent: v.ProfitMarginPercent,
		EstimatedProfit:     v.EstimatedProfit,
		EstimatedCost:       v.EstimatedCost,
		IsExecutable:        v.IsExecutable,
		CreatedAt:           v.CreatedAt,
	}
}

// transactionJSON is the wire shape for a paper transaction.
type transactionJSON struct {
	ID            string           `json:"id"`
	OpportunityID string           `json:"opportunity_id"`
	Status        string           `json:"status"`
	TxHash        string           `json:"tx_hash,omitempty"`
	ActualProfit  *decimal.Decimal `json:"actual_profit"`
	GasUsed       *decimal.Decimal `json:"gas_used"`
	ExecutedAt    time.Time        `json:"executed_at"`
}

func toTransactionJSON(tx domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		OpportunityID: tx.OpportunityID,
		Status:        string(tx.Status),
		TxHash:        tx.TxHash,
		ActualProfit:  tx.ActualProfit,
		GasUsed:       tx.GasUsed,
		ExecutedAt:    tx.ExecutedAt,
	}
}

// settingsJSON is the wire shape for the bot settings record.
type settingsJSON struct {
	MinProfitThreshold decimal.Decimal `json:"min_profit_threshold"`
	MaxGasPrice        decimal.Decimal `json:"max_gas_price"`
	TradeAmount        decimal.Decimal `json:"trade_amount"`
	SlippageTolerance  decimal.Decimal `json:"slippage_tolerance"`
	AutoExecuteEnabled bool            `json:"auto_execute_enabled"`
	AlertsEnabled      bool            `json:"alerts_enabled"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func toSettingsJSON(s domain.BotSettings) settingsJSON {
	return settingsJSON{
		MinProfitThreshold: s.MinProfitThreshold,
		MaxGasPrice:        s.MaxGasPrice,
		TradeAmount:        s.TradeAmount,
		SlippageTolerance:  s.SlippageTolerance,
		AutoExecuteEnabled: s.AutoExecuteEnabled,
		AlertsEnabled:      s.AlertsEnabled,
		UpdatedAt:          s.UpdatedAt,
	}
}
