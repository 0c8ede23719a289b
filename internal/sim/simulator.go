// Package sim provides the paper execution engine. Executions never touch a
// venue: outcomes are decided by a pluggable policy and recorded as
// transactions, so the rest of the system behaves as if trades were real.
package sim

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// Simulator turns opportunities into simulated transactions.
type Simulator struct {
	policy OutcomePolicy
	clock  domain.Clock
	logger *slog.Logger
}

// NewSimulator creates a Simulator. clock may be nil, in which case UTC wall
// time is used.
func NewSimulator(policy OutcomePolicy, clock domain.Clock, logger *slog.Logger) *Simulator {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Simulator{
		policy: policy,
		clock:  clock,
		logger: logger.With(slog.String("component", "simulator")),
	}
}

// Execute resolves a paper fill for opp. On success the recorded profit is
// the estimate scaled by the policy jitter; on failure no profit is recorded
// but the estimated cost is still charged, mirroring a reverted trade that
// burned gas.
func (s *Simulator) Execute(ctx context.Context, opp domain.Opportunity) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, domain.ErrContextDone
	}

	outcome := s.policy.Decide()
	now := s.clock()

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		ExecutedAt:    now,
	}

	gas := opp.EstimatedCost
	tx.GasUsed = &gas

	if outcome.Success {
		profit := opp.EstimatedProfit.Mul(outcome.Jitter).Round(8)
		tx.Status = domain.TxSuccess
		tx.ActualProfit = &profit
		tx.TxHash = syntheticHash()
	} else {
		tx.Status = domain.TxFailed
	}

	s.logger.InfoContext(ctx, "paper execution resolved",
		slog.String("opportunity_id", opp.ID),
		slog.String("tx_id", tx.ID),
		slog.String("status", string(tx.Status)),
	)
	return tx, nil
}

// SyntheticOpportunity builds a best-effort opportunity from the current
// settings when the requested one is no longer in the window. The margin is
// taken at the executability threshold so the fill models a marginal trade.
func SyntheticOpportunity(id string, settings domain.BotSettings, now time.Time) domain.Opportunity {
	margin := settings.MinProfitThreshold
	profit := margin.Div(decimal.NewFromInt(100)).Mul(settings.TradeAmount).Round(8)
	return domain.Opportunity{
		ID:                  id,
		ProfitMarginPercent: margin,
		EstimatedProfit:     profit,
		EstimatedCost:       decimal.Zero,
		IsExecutable:        true,
		CreatedAt:           now,
	}
}

// syntheticHash fabricates an evm-looking transaction hash from two UUIDs.
func syntheticHash() string {
	h := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return "0x" + h
}
