package detect

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Classifier annotates candidates with the executability flag. A candidate
// is executable when its margin strictly exceeds the settings threshold AND
// the estimated cost is strictly below the estimated profit. The threshold
// must exceed the detection filter, so an opportunity can exist and be
// displayed without being executable.
type Classifier struct {
	costs domain.CostModel
}

// NewClassifier creates a Classifier using the given cost model.
func NewClassifier(costs domain.CostModel) *Classifier {
	return &Classifier{costs: costs}
}

// Classify fills EstimatedProfit, EstimatedCost, and IsExecutable on the
// candidate. Estimated profit is (margin/100) * tradeAmount.
func (c *Classifier) Classify(ctx context.Context, cand domain.Opportunity, settings domain.BotSettings) (domain.Opportunity, error) {
	cand.EstimatedProfit = cand.ProfitMarginPercent.Div(hundred).Mul(settings.TradeAmount).Round(8)

	cost, err := c.costs.EstimateCost(ctx, cand.ProfitMarginPercent, settings)
	if err != nil {
		return cand, fmt.Errorf("detect: estimate cost: %w", err)
	}
	cand.EstimatedCost = cost.Round(8)

	cand.IsExecutable = cand.ProfitMarginPercent.GreaterThan(settings.MinProfitThreshold) &&
		cand.EstimatedCost.LessThan(cand.EstimatedProfit)
	return cand, nil
}
