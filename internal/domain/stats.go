package domain

import "github.com/shopspring/decimal"

// StatsOverview is a derived rolling-window summary. It is recomputed on
// demand from transaction and opportunity state and never cached beyond a
// single read.
type StatsOverview struct {
	TotalProfit24h      decimal.Decimal
	ActiveOpportunities int
	SuccessRate         decimal.Decimal // percent, 0 when no transactions in window
	GasSpent24h         decimal.Decimal
	ScannedPairs        int
}
