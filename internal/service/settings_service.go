package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"arbwatch/internal/domain"
)

// SettingsService reads and updates the singleton bot settings. Updates are
// validated as a whole: any invalid field rejects the entire patch, so the
// stored record never mixes old and new values.
type SettingsService struct {
	settings domain.SettingsStore
	clock    domain.Clock
	logger   *slog.Logger
}

// NewSettingsService creates a SettingsService. clock may be nil for UTC
// wall time.
func NewSettingsService(settings domain.SettingsStore, clock domain.Clock, logger *slog.Logger) *SettingsService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &SettingsService{
		settings: settings,
		clock:    clock,
		logger:   logger.With(slog.String("component", "settings_service")),
	}
}

// Get returns the current settings, installing defaults on first access.
func (s *SettingsService) Get(ctx context.Context) (domain.BotSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return domain.BotSettings{}, fmt.Errorf("settings_service: get: %w", err)
	}
	return settings, nil
}

// Update applies a partial patch to the current settings. Unset fields keep
// their stored values. Returns ErrConfigInvalid without persisting anything
// when any patched field is out of range.
func (s *SettingsService) Update(ctx context.Context, patch domain.SettingsPatch) (domain.BotSettings, error) {
	current, err := s.settings.Get(ctx)
	if err != nil {
		return domain.BotSettings{}, fmt.Errorf("settings_service: load current: %w", err)
	}

	next := current
	if patch.MinProfitThreshold != nil {
		next.MinProfitThreshold = *patch.MinProfitThreshold
	}
	if patch.MaxGasPrice != nil {
		next.MaxGasPrice = *patch.MaxGasPrice
	}
	if patch.TradeAmount != nil {
		next.TradeAmount = *patch.TradeAmount
	}
	if patch.SlippageTolerance != nil {
		next.SlippageTolerance = *patch.SlippageTolerance
	}
	if patch.AutoExecuteEnabled != nil {
		next.AutoExecuteEnabled = *patch.AutoExecuteEnabled
	}
	if patch.AlertsEnabled != nil {
		next.AlertsEnabled = *patch.AlertsEnabled
	}

	if err := validateSettings(next); err != nil {
		return domain.BotSettings{}, err
	}

	next.UpdatedAt = s.clock()
	if err := s.settings.Update(ctx, next); err != nil {
		return domain.BotSettings{}, fmt.Errorf("settings_service: update: %w", err)
	}

	s.logger.InfoContext(ctx, "settings updated",
		slog.String("min_profit_threshold", next.MinProfitThreshold.String()),
		slog.Bool("auto_execute", next.AutoExecuteEnabled),
	)
	return next, nil
}

// validateSettings checks the full candidate record and reports every
// violation at once.
func validateSettings(s domain.BotSettings) error {
	var errs []string
	if s.MinProfitThreshold.IsNegative() {
		errs = append(errs, "min_profit_threshold must not be negative")
	}
	if !s.MaxGasPrice.IsPositive() {
		errs = append(errs, "max_gas_price must be positive")
	}
	if !s.TradeAmount.IsPositive() {
		errs = append(errs, "trade_amount must be positive")
	}
	if s.SlippageTolerance.IsNegative() {
		errs = append(errs, "slippage_tolerance must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings_service: %s: %w", strings.Join(errs, "; "), domain.ErrConfigInvalid)
	}
	return nil
}
