package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL. The
// retention window is enforced on both the write path (ReplaceGeneration,
// Expire) and the read path, so a reader between cycles never sees an entry
// that has aged out.
type OpportunityStore struct {
	pool      *pgxpool.Pool
	retention time.Duration
	clock     domain.Clock
}

// NewOpportunityStore creates an OpportunityStore with the given retention
// window. clock may be nil for UTC wall time.
func NewOpportunityStore(pool *pgxpool.Pool, retention time.Duration, clock domain.Clock) *OpportunityStore {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &OpportunityStore{pool: pool, retention: retention, clock: clock}
}

const oppSelectCols = `id, trading_pair_id, venue_a_id, venue_b_id,
	price_a::text, price_b::text, profit_margin_percent::text,
	estimated_profit::text, estimated_cost::text, is_executable, created_at`

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var (
		o                                      domain.Opportunity
		priceA, priceB, margin, profit, costTx string
	)
	err := row.Scan(
		&o.ID, &o.TradingPairID, &o.VenueAID, &o.VenueBID,
		&priceA, &priceB, &margin, &profit, &costTx,
		&o.IsExecutable, &o.CreatedAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{priceA, &o.PriceA}, {priceB, &o.PriceB}, {margin, &o.ProfitMarginPercent},
		{profit, &o.EstimatedProfit}, {costTx, &o.EstimatedCost},
	} {
		d, err := parseNumeric(f.raw)
		if err != nil {
			return domain.Opportunity{}, err
		}
		*f.dst = d
	}
	return o, nil
}

// ReplaceGeneration expires aged-out rows and inserts the new batch in one
// transaction, so List never observes a partially written generation.
func (s *OpportunityStore) ReplaceGeneration(ctx context.Context, opps []domain.Opportunity) error {
	cutoff := s.clock().Add(-s.retention)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace generation: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM opportunities WHERE created_at < $1`, cutoff); err != nil {
		return fmt.Errorf("postgres: expire opportunities: %w", err)
	}

	const insert = `
		INSERT INTO opportunities (
			id, trading_pair_id, venue_a_id, venue_b_id,
			price_a, price_b, profit_margin_percent,
			estimated_profit, estimated_cost, is_executable, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for _, o := range opps {
		_, err := tx.Exec(ctx, insert,
			o.ID, o.TradingPairID, o.VenueAID, o.VenueBID,
			o.PriceA.String(), o.PriceB.String(), o.ProfitMarginPercent.String(),
			o.EstimatedProfit.String(), o.EstimatedCost.String(),
			o.IsExecutable, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert opportunity %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace generation: %w", err)
	}
	return nil
}

// List returns non-expired opportunities, newest first, capped at limit.
func (s *OpportunityStore) List(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	cutoff := s.clock().Add(-s.retention)
	query := `SELECT ` + oppSelectCols + `
		FROM opportunities WHERE created_at >= $1
		ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

// GetByID returns one non-expired opportunity, or ErrNotFound. An expired
// row is indistinguishable from a missing one.
func (s *OpportunityStore) GetByID(ctx context.Context, id string) (domain.Opportunity, error) {
	cutoff := s.clock().Add(-s.retention)
	query := `SELECT ` + oppSelectCols + ` FROM opportunities WHERE id = $1 AND created_at >= $2`

	o, err := scanOpportunity(s.pool.QueryRow(ctx, query, id, cutoff))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, fmt.Errorf("postgres: opportunity %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Opportunity{}, fmt.Errorf("postgres: get opportunity %s: %w", id, err)
	}
	return o, nil
}

// Expire removes rows older than the retention window. Idempotent.
func (s *OpportunityStore) Expire(ctx context.Context) error {
	cutoff := s.clock().Add(-s.retention)
	if _, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE created_at < $1`, cutoff); err != nil {
		return fmt.Errorf("postgres: expire opportunities: %w", err)
	}
	return nil
}

// CountActive returns the number of non-expired opportunities.
func (s *OpportunityStore) CountActive(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.retention)
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM opportunities WHERE created_at >= $1`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count opportunities: %w", err)
	}
	return n, nil
}
