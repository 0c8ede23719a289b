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

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a TransactionStore backed by the given pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

const txSelectCols = `id, opportunity_id, status, tx_hash,
	actual_profit::text, gas_used::text, executed_at`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var (
		t             domain.Transaction
		status        string
		profitS, gasS *string
	)
	err := row.Scan(&t.ID, &t.OpportunityID, &status, &t.TxHash, &profitS, &gasS, &t.ExecutedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Status = domain.TxStatus(status)
	if t.ActualProfit, err = parseNullableNumeric(profitS); err != nil {
		return domain.Transaction{}, err
	}
	if t.GasUsed, err = parseNullableNumeric(gasS); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

// Insert records one transaction. Records are immutable, so there is no
// conflict clause.
func (s *TransactionStore) Insert(ctx context.Context, tx domain.Transaction) error {
	const query = `
		INSERT INTO transactions (
			id, opportunity_id, status, tx_hash, actual_profit, gas_used, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var profitS, gasS *string
	if tx.ActualProfit != nil {
		v := tx.ActualProfit.String()
		profitS = &v
	}
	if tx.GasUsed != nil {
		v := tx.GasUsed.String()
		gasS = &v
	}

	_, err := s.pool.Exec(ctx, query,
		tx.ID, tx.OpportunityID, string(tx.Status), tx.TxHash, profitS, gasS, tx.ExecutedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GetByID returns one transaction, or ErrNotFound.
func (s *TransactionStore) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	query := `SELECT ` + txSelectCols + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, fmt.Errorf("postgres: transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: get transaction %s: %w", id, err)
	}
	return t, nil
}

// ListRecent returns transactions newest first, capped at limit.
func (s *TransactionStore) ListRecent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + txSelectCols + ` FROM transactions ORDER BY executed_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

// SumProfitSince sums actual profit over success transactions in the window.
func (s *TransactionStore) SumProfitSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(actual_profit), 0)::text FROM transactions
		WHERE status = $1 AND executed_at >= $2`
	var sum string
	err := s.pool.QueryRow(ctx, query, string(domain.TxSuccess), since).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("postgres: sum profit: %w", err)
	}
	return parseNumeric(sum)
}

// SumGasSince sums gas spent over all transactions in the window, regardless
// of status.
func (s *TransactionStore) SumGasSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(gas_used), 0)::text FROM transactions
		WHERE executed_at >= $1`
	var sum string
	err := s.pool.QueryRow(ctx, query, since).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("postgres: sum gas: %w", err)
	}
	return parseNumeric(sum)
}

// CountByStatusSince returns per-status transaction counts over the window.
func (s *TransactionStore) CountByStatusSince(ctx context.Context, since time.Time) (map[domain.TxStatus]int, error) {
	const query = `
		SELECT status, COUNT(*) FROM transactions
		WHERE executed_at >= $1 GROUP BY status`
	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TxStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan status count: %w", err)
		}
		counts[domain.TxStatus(status)] = n
	}
	return counts, rows.Err()
}

// ListBefore returns transactions executed strictly before the cutoff, oldest
// first, for archiving.
func (s *TransactionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Transaction, error) {
	query := `SELECT ` + txSelectCols + ` FROM transactions WHERE executed_at < $1 ORDER BY executed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transactions before: %w", err)
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

// DeleteBefore removes transactions executed before the cutoff. Returns the
// number deleted.
func (s *TransactionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete transactions before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTransactionRows(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
