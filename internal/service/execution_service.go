package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbwatch/internal/domain"
	"arbwatch/internal/sim"
)

// Notifier delivers operator alerts. Satisfied by notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ExecutionService runs paper executions and records the resulting
// transactions. An execution request for an opportunity that has aged out of
// the window is still filled best-effort from the current settings, so a
// slow operator does not get a hard failure for a trade the bot would have
// taken.
type ExecutionService struct {
	opps     domain.OpportunityStore
	txs      domain.TransactionStore
	settings domain.SettingsStore
	sim      *sim.Simulator
	bus      domain.SignalBus
	notifier Notifier
	clock    domain.Clock
	logger   *slog.Logger
}

// NewExecutionService creates an ExecutionService. bus and notifier may be
// nil; clock may be nil for UTC wall time.
func NewExecutionService(
	opps domain.OpportunityStore,
	txs domain.TransactionStore,
	settings domain.SettingsStore,
	simulator *sim.Simulator,
	bus domain.SignalBus,
	notifier Notifier,
	clock domain.Clock,
	logger *slog.Logger,
) *ExecutionService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ExecutionService{
		opps:     opps,
		txs:      txs,
		settings: settings,
		sim:      simulator,
		bus:      bus,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With(slog.String("component", "execution_service")),
	}
}

// Execute simulates a fill for the given opportunity and records the
// transaction. A missing opportunity ID falls back to a synthetic fill at
// the current executability threshold.
func (s *ExecutionService) Execute(ctx context.Context, opportunityID string) (domain.Transaction, error) {
	opp, err := s.opps.GetByID(ctx, opportunityID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Transaction{}, fmt.Errorf("execution_service: load opportunity %s: %w", opportunityID, err)
		}
		settings, serr := s.settings.Get(ctx)
		if serr != nil {
			return domain.Transaction{}, fmt.Errorf("execution_service: load settings: %w", serr)
		}
		opp = sim.SyntheticOpportunity(opportunityID, settings, s.clock())
		s.logger.InfoContext(ctx, "opportunity expired, filling best-effort",
			slog.String("opportunity_id", opportunityID),
		)
	}

	tx, err := s.sim.Execute(ctx, opp)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("execution_service: simulate %s: %w", opportunityID, err)
	}

	if err := s.txs.Insert(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("execution_service: record transaction: %w", err)
	}

	s.publishExecuted(ctx, tx)

	if tx.Status == domain.TxFailed && s.notifier != nil {
		s.alertFailure(ctx, tx)
	}

	return tx, nil
}

// GetTransaction returns one recorded transaction by ID.
func (s *ExecutionService) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("execution_service: get transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListTransactions returns recent transactions, newest first.
func (s *ExecutionService) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	txs, err := s.txs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("execution_service: list transactions: %w", err)
	}
	return txs, nil
}

// alertFailure notifies operators about a failed execution, honoring the
// alerts toggle in settings.
func (s *ExecutionService) alertFailure(ctx context.Context, tx domain.Transaction) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "load settings for alert check failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if !settings.AlertsEnabled {
		return
	}

	msg := fmt.Sprintf("Paper execution failed for opportunity %s (tx %s)", tx.OpportunityID, tx.ID)
	if err := s.notifier.Notify(ctx, "execution_failed", "Execution failed", msg); err != nil {
		s.logger.WarnContext(ctx, "failure notification not delivered",
			slog.String("error", err.Error()),
		)
	}
}

func (s *ExecutionService) publishExecuted(ctx context.Context, tx domain.Transaction) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":          "opportunity_executed",
		"tx_id":          tx.ID,
		"opportunity_id": tx.OpportunityID,
		"status":         tx.Status,
		"actual_profit":  tx.ActualProfit,
	})
	if err := s.bus.Publish(ctx, "executions", evt); err != nil {
		s.logger.WarnContext(ctx, "publish execution event failed",
			slog.String("tx_id", tx.ID),
			slog.String("error", err.Error()),
		)
	}
}
