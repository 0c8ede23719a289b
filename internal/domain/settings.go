package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BotSettings is the singleton runtime configuration. Exactly one record
// exists at all times: created with defaults on first access, updated in
// place, never deleted.
type BotSettings struct {
	MinProfitThreshold decimal.Decimal // executable margin threshold, percent
	MaxGasPrice        decimal.Decimal
	TradeAmount        decimal.Decimal
	SlippageTolerance  decimal.Decimal // percent
	AutoExecuteEnabled bool
	AlertsEnabled      bool
	UpdatedAt          time.Time
}

// DefaultSettings returns the settings installed on first access. The
// executable threshold (1.5%) is deliberately stricter than the detection
// filter (0.5%): an opportunity can exist and be displayed without being
// executable.
func DefaultSettings() BotSettings {
	return BotSettings{
		MinProfitThreshold: decimal.RequireFromString("1.5"),
		MaxGasPrice:        decimal.RequireFromString("50"),
		TradeAmount:        decimal.RequireFromString("1000"),
		SlippageTolerance:  decimal.RequireFromString("0.5"),
		AutoExecuteEnabled: false,
		AlertsEnabled:      true,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	MinProfitThreshold *decimal.Decimal
	MaxGasPrice        *decimal.Decimal
	TradeAmount        *decimal.Decimal
	SlippageTolerance  *decimal.Decimal
	AutoExecuteEnabled *bool
	AlertsEnabled      *bool
}
