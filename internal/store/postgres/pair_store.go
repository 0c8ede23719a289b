package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbwatch/internal/domain"
)

// PairStore implements domain.PairStore using PostgreSQL.
type PairStore struct {
	pool *pgxpool.Pool
}

// NewPairStore creates a PairStore backed by the given connection pool.
func NewPairStore(pool *pgxpool.Pool) *PairStore {
	return &PairStore{pool: pool}
}

const pairSelectCols = `id, base_symbol, quote_symbol, display_name, active, created_at`

// Upsert inserts or updates a trading pair by ID.
func (s *PairStore) Upsert(ctx context.Context, p domain.TradingPair) error {
	const query = `
		INSERT INTO trading_pairs (id, base_symbol, quote_symbol, display_name, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			base_symbol = EXCLUDED.base_symbol,
			quote_symbol = EXCLUDED.quote_symbol,
			display_name = EXCLUDED.display_name,
			active = EXCLUDED.active`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.BaseSymbol, p.QuoteSymbol, p.DisplayName, p.Active, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert pair %s: %w", p.ID, err)
	}
	return nil
}

// GetByID returns one trading pair, or ErrNotFound.
func (s *PairStore) GetByID(ctx context.Context, id string) (domain.TradingPair, error) {
	query := `SELECT ` + pairSelectCols + ` FROM trading_pairs WHERE id = $1`
	var p domain.TradingPair
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.BaseSymbol, &p.QuoteSymbol, &p.DisplayName, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradingPair{}, fmt.Errorf("postgres: pair %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradingPair{}, fmt.Errorf("postgres: get pair %s: %w", id, err)
	}
	return p, nil
}

// ListActive returns active trading pairs ordered by display name.
func (s *PairStore) ListActive(ctx context.Context) ([]domain.TradingPair, error) {
	query := `SELECT ` + pairSelectCols + ` FROM trading_pairs WHERE active ORDER BY display_name`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.TradingPair
	for rows.Next() {
		var p domain.TradingPair
		if err := rows.Scan(
			&p.ID, &p.BaseSymbol, &p.QuoteSymbol, &p.DisplayName, &p.Active, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// CountActive returns the number of active trading pairs.
func (s *PairStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trading_pairs WHERE active`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count pairs: %w", err)
	}
	return n, nil
}
