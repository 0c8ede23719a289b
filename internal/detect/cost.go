package detect

import (
	"context"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// FixedCostModel estimates a flat per-trade cost regardless of the
// candidate. Useful for venues where fees dominate gas.
type FixedCostModel struct {
	Cost decimal.Decimal
}

// EstimateCost returns the configured flat cost.
func (m FixedCostModel) EstimateCost(_ context.Context, _ decimal.Decimal, _ domain.BotSettings) (decimal.Decimal, error) {
	return m.Cost, nil
}

// GasCostModel estimates cost as gasUnits * maxGasPrice(gwei) converted to
// quote currency at a fixed native token price:
//
//	cost = gasUnits * maxGasPrice * 1e-9 * nativePrice
type GasCostModel struct {
	GasUnits    decimal.Decimal
	NativePrice decimal.Decimal
}

// NewGasCostModel creates a GasCostModel from plain numeric config values.
func NewGasCostModel(gasUnits int64, nativePrice float64) GasCostModel {
	return GasCostModel{
		GasUnits:    decimal.NewFromInt(gasUnits),
		NativePrice: decimal.NewFromFloat(nativePrice),
	}
}

// EstimateCost converts the settings gas ceiling into a quote-currency cost.
func (m GasCostModel) EstimateCost(_ context.Context, _ decimal.Decimal, settings domain.BotSettings) (decimal.Decimal, error) {
	return m.GasUnits.Mul(settings.MaxGasPrice).Shift(-9).Mul(m.NativePrice), nil
}

var _ domain.CostModel = FixedCostModel{}
var _ domain.CostModel = GasCostModel{}
