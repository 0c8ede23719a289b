package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// StatsService derives the rolling-window overview from stored transactions
// and the current opportunity window. Nothing is cached; every read reflects
// the stores at call time.
type StatsService struct {
	opps   domain.OpportunityStore
	txs    domain.TransactionStore
	pairs  domain.PairStore
	window time.Duration
	clock  domain.Clock
	logger *slog.Logger
}

// NewStatsService creates a StatsService computing over the trailing window.
// clock may be nil for UTC wall time.
func NewStatsService(
	opps domain.OpportunityStore,
	txs domain.TransactionStore,
	pairs domain.PairStore,
	window time.Duration,
	clock domain.Clock,
	logger *slog.Logger,
) *StatsService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &StatsService{
		opps:   opps,
		txs:    txs,
		pairs:  pairs,
		window: window,
		clock:  clock,
		logger: logger.With(slog.String("component", "stats_service")),
	}
}

// Overview computes the current rolling summary. An empty transaction window
// yields a zero success rate rather than an error.
func (s *StatsService) Overview(ctx context.Context) (domain.StatsOverview, error) {
	since := s.clock().Add(-s.window)

	profit, err := s.txs.SumProfitSince(ctx, since)
	if err != nil {
		return domain.StatsOverview{}, fmt.Errorf("stats_service: sum profit: %w", err)
	}
	gas, err := s.txs.SumGasSince(ctx, since)
	if err != nil {
		return domain.StatsOverview{}, fmt.Errorf("stats_service: sum gas: %w", err)
	}
	counts, err := s.txs.CountByStatusSince(ctx, since)
	if err != nil {
		return domain.StatsOverview{}, fmt.Errorf("stats_service: count transactions: %w", err)
	}
	active, err := s.opps.CountActive(ctx)
	if err != nil {
		return domain.StatsOverview{}, fmt.Errorf("stats_service: count opportunities: %w", err)
	}
	scanned, err := s.pairs.CountActive(ctx)
	if err != nil {
		return domain.StatsOverview{}, fmt.Errorf("stats_service: count pairs: %w", err)
	}

	return domain.StatsOverview{
		TotalProfit24h:      profit,
		ActiveOpportunities: active,
		SuccessRate:         successRate(counts),
		GasSpent24h:         gas,
		ScannedPairs:        scanned,
	}, nil
}

// successRate is success / (success + failed) as a percent, with one decimal
// of precision. Pending transactions do not count toward either side.
func successRate(counts map[domain.TxStatus]int) decimal.Decimal {
	success := counts[domain.TxSuccess]
	total := success + counts[domain.TxFailed]
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(success)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}
