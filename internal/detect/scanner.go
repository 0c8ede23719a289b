package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// Executor runs a paper execution for a detected opportunity. It is
// satisfied by the execution service; the scanner only needs it for the
// auto-execute path.
type Executor interface {
	Execute(ctx context.Context, opportunityID string) (domain.Transaction, error)
}

// ScannerConfig holds the detection loop parameters.
type ScannerConfig struct {
	Interval  time.Duration
	MinMargin decimal.Decimal
}

// Scanner drives the periodic detection cycle: pull quotes, detect
// candidates, classify, and replace the stored generation. The loop is
// serial, so cycles never overlap; a manual trigger requests one extra cycle
// without disturbing the schedule.
type Scanner struct {
	source     domain.QuoteSource
	pairs      domain.PairStore
	opps       domain.OpportunityStore
	settings   domain.SettingsStore
	detector   *Detector
	classifier *Classifier
	bus        domain.SignalBus
	exec       Executor
	cfg        ScannerConfig
	logger     *slog.Logger
	trigger    chan struct{}
}

// NewScanner creates a Scanner. exec may be nil when auto-execution is not
// wired (monitor-style deployments).
func NewScanner(
	source domain.QuoteSource,
	pairs domain.PairStore,
	opps domain.OpportunityStore,
	settings domain.SettingsStore,
	detector *Detector,
	classifier *Classifier,
	bus domain.SignalBus,
	exec Executor,
	cfg ScannerConfig,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		source:     source,
		pairs:      pairs,
		opps:       opps,
		settings:   settings,
		detector:   detector,
		classifier: classifier,
		bus:        bus,
		exec:       exec,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "scanner")),
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests one detection cycle outside the schedule. Non-blocking;
// a trigger while one is already pending is coalesced.
func (s *Scanner) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run executes one cycle immediately and then on every tick or manual
// trigger until ctx is cancelled. Cycle-level errors are logged, never
// returned: a failed cycle leaves the store untouched and the loop running.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scanner started",
		slog.Duration("interval", s.cfg.Interval),
		slog.String("min_margin_percent", s.cfg.MinMargin.String()),
	)
	defer s.logger.Info("scanner stopped")

	s.cycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		case <-s.trigger:
			s.cycle(ctx)
		}
	}
}

// cycle runs one detection pass. Errors are contained here: a source outage
// skips the cycle and retains the prior generation unchanged.
func (s *Scanner) cycle(ctx context.Context) {
	start := time.Now()

	n, err := s.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			s.logger.WarnContext(ctx, "quote source unavailable, skipping cycle",
				slog.String("error", err.Error()),
			)
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.logger.ErrorContext(ctx, "detection cycle failed",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "detection cycle complete",
		slog.Int("opportunities", n),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// RunCycle performs a single detection cycle and returns the number of
// opportunities stored. Exported for the manual trigger endpoint and tests.
func (s *Scanner) RunCycle(ctx context.Context) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanner: load settings: %w", err)
	}

	pairs, err := s.pairs.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanner: list pairs: %w", err)
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	symbols := trackedSymbols(pairs)
	quotes, err := s.source.FetchQuotes(ctx, symbols)
	if err != nil {
		return 0, fmt.Errorf("scanner: fetch quotes: %w", err)
	}

	candidates := s.detector.Detect(quotes, pairs, s.cfg.MinMargin)

	classified := make([]domain.Opportunity, 0, len(candidates))
	for _, cand := range candidates {
		c, err := s.classifier.Classify(ctx, cand, settings)
		if err != nil {
			s.logger.WarnContext(ctx, "classify failed, dropping candidate",
				slog.String("opportunity_id", cand.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		classified = append(classified, c)
	}

	// Zero candidates is a valid steady state; the store still expires the
	// aged-out portion of the prior generation.
	if err := s.opps.ReplaceGeneration(ctx, classified); err != nil {
		return 0, fmt.Errorf("scanner: replace generation: %w", err)
	}

	for _, opp := range classified {
		s.publishDetected(ctx, opp)
	}

	if settings.AutoExecuteEnabled && s.exec != nil {
		s.autoExecute(ctx, classified)
	}

	return len(classified), nil
}

// autoExecute runs a paper execution for every executable opportunity in the
// fresh generation. Failures are logged per opportunity and never abort the
// cycle.
func (s *Scanner) autoExecute(ctx context.Context, opps []domain.Opportunity) {
	for _, opp := range opps {
		if !opp.IsExecutable {
			continue
		}
		tx, err := s.exec.Execute(ctx, opp.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "auto-execute failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.InfoContext(ctx, "auto-executed opportunity",
			slog.String("opportunity_id", opp.ID),
			slog.String("tx_id", tx.ID),
			slog.String("status", string(tx.Status)),
		)
	}
}

func (s *Scanner) publishDetected(ctx context.Context, opp domain.Opportunity) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":          "opportunity_detected",
		"opportunity_id": opp.ID,
		"pair_id":        opp.TradingPairID,
		"venue_a":        opp.VenueAID,
		"venue_b":        opp.VenueBID,
		"margin_percent": opp.ProfitMarginPercent,
		"est_profit":     opp.EstimatedProfit,
		"executable":     opp.IsExecutable,
	})
	if err := s.bus.Publish(ctx, "opportunities", evt); err != nil {
		s.logger.WarnContext(ctx, "publish opportunity event failed",
			slog.String("opportunity_id", opp.ID),
			slog.String("error", err.Error()),
		)
	}
}

// trackedSymbols returns the distinct base symbols across the active pairs.
func trackedSymbols(pairs []domain.TradingPair) []string {
	seen := make(map[string]bool, len(pairs))
	var symbols []string
	for _, p := range pairs {
		if seen[p.BaseSymbol] {
			continue
		}
		seen[p.BaseSymbol] = true
		symbols = append(symbols, p.BaseSymbol)
	}
	return symbols
}
