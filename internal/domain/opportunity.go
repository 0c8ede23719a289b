package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity is a detected price discrepancy between two venues for one
// trading pair. Opportunities are created by the detector each cycle, never
// mutated afterwards, and removed once older than the retention window.
type Opportunity struct {
	ID                  string
	TradingPairID       string
	VenueAID            string
	VenueBID            string
	PriceA              decimal.Decimal
	PriceB              decimal.Decimal
	ProfitMarginPercent decimal.Decimal
	EstimatedProfit     decimal.Decimal
	EstimatedCost       decimal.Decimal
	IsExecutable        bool
	CreatedAt           time.Time
}

// OpportunityView is an Opportunity joined with the trading pair and venue
// names for API consumers.
type OpportunityView struct {
	Opportunity
	PairName   string
	VenueAName string
	VenueBName string
}

// Margin computes the pairwise profit margin percent between two prices:
// |a-b| / min(a,b) * 100. Both prices must be positive.
func Margin(a, b decimal.Decimal) decimal.Decimal {
	low := a
	if b.LessThan(low) {
		low = b
	}
	return a.Sub(b).Abs().Div(low).Mul(decimal.NewFromInt(100))
}
