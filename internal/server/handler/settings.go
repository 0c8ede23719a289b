package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
	"arbwatch/internal/service"
)

// SettingsHandler serves the singleton bot settings.
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logger.With(slog.String("handler", "settings")),
	}
}

// GetSettings responds with the current settings.
// GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsJSON(s))
}

// settingsPatchJSON is the partial update body. Absent fields keep their
// stored values.
type settingsPatchJSON struct {
	MinProfitThreshold *decimal.Decimal `json:"min_profit_threshold"`
	MaxGasPrice        *decimal.Decimal `json:"max_gas_price"`
	TradeAmount        *decimal.Decimal `json:"trade_amount"`
	SlippageTolerance  *decimal.Decimal `json:"slippage_tolerance"`
	AutoExecuteEnabled *bool            `json:"auto_execute_enabled"`
	AlertsEnabled      *bool            `json:"alerts_enabled"`
}

// UpdateSettings applies a partial settings update. Any invalid field
// rejects the whole patch with 400.
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsPatchJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	patch := domain.SettingsPatch{
		MinProfitThreshold: body.MinProfitThreshold,
		MaxGasPrice:        body.MaxGasPrice,
		TradeAmount:        body.TradeAmount,
		SlippageTolerance:  body.SlippageTolerance,
		AutoExecuteEnabled: body.AutoExecuteEnabled,
		AlertsEnabled:      body.AlertsEnabled,
	}

	updated, err := h.settings.Update(r.Context(), patch)
	if err != nil {
		if errors.Is(err, domain.ErrConfigInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "update failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsJSON(updated))
}
