package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbwatch/internal/domain"
)

// SettingsStore implements domain.SettingsStore using PostgreSQL. The table
// holds exactly one row; Get installs the defaults on first access.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a SettingsStore backed by the given pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Get returns the settings record, creating the default one when absent.
func (s *SettingsStore) Get(ctx context.Context) (domain.BotSettings, error) {
	const query = `
		SELECT min_profit_threshold::text, max_gas_price::text, trade_amount::text,
			slippage_tolerance::text, auto_execute_enabled, alerts_enabled, updated_at
		FROM bot_settings WHERE id = 1`

	var (
		out                           domain.BotSettings
		minProfit, maxGas, amount, sl string
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&minProfit, &maxGas, &amount, &sl,
		&out.AutoExecuteEnabled, &out.AlertsEnabled, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		defaults := domain.DefaultSettings()
		defaults.UpdatedAt = time.Now().UTC()
		if err := s.Update(ctx, defaults); err != nil {
			return domain.BotSettings{}, fmt.Errorf("postgres: install default settings: %w", err)
		}
		return defaults, nil
	}
	if err != nil {
		return domain.BotSettings{}, fmt.Errorf("postgres: get settings: %w", err)
	}

	if out.MinProfitThreshold, err = parseNumeric(minProfit); err != nil {
		return domain.BotSettings{}, err
	}
	if out.MaxGasPrice, err = parseNumeric(maxGas); err != nil {
		return domain.BotSettings{}, err
	}
	if out.TradeAmount, err = parseNumeric(amount); err != nil {
		return domain.BotSettings{}, err
	}
	if out.SlippageTolerance, err = parseNumeric(sl); err != nil {
		return domain.BotSettings{}, err
	}
	return out, nil
}

// Update writes the full settings record in place.
func (s *SettingsStore) Update(ctx context.Context, settings domain.BotSettings) error {
	const query = `
		INSERT INTO bot_settings (
			id, min_profit_threshold, max_gas_price, trade_amount,
			slippage_tolerance, auto_execute_enabled, alerts_enabled, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			min_profit_threshold = EXCLUDED.min_profit_threshold,
			max_gas_price = EXCLUDED.max_gas_price,
			trade_amount = EXCLUDED.trade_amount,
			slippage_tolerance = EXCLUDED.slippage_tolerance,
			auto_execute_enabled = EXCLUDED.auto_execute_enabled,
			alerts_enabled = EXCLUDED.alerts_enabled,
			updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		settings.MinProfitThreshold.String(), settings.MaxGasPrice.String(),
		settings.TradeAmount.String(), settings.SlippageTolerance.String(),
		settings.AutoExecuteEnabled, settings.AlertsEnabled, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update settings: %w", err)
	}
	return nil
}
