package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"arbwatch/internal/domain"
)

// ObjectWriter is the upload capability the archiver needs. Satisfied by
// Writer; stubbed in tests.
type ObjectWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged transaction records out of the database into object
// storage as JSONL files. Rows are deleted only after the upload succeeds,
// so a failed upload retries the same rows on the next pass.
type Archiver struct {
	txs      domain.TransactionStore
	writer   ObjectWriter
	age      time.Duration
	interval time.Duration
	clock    domain.Clock
	logger   *slog.Logger
}

// NewArchiver creates an Archiver that archives transactions older than age
// on every interval. clock may be nil for UTC wall time.
func NewArchiver(
	txs domain.TransactionStore,
	writer ObjectWriter,
	age time.Duration,
	interval time.Duration,
	clock domain.Clock,
	logger *slog.Logger,
) *Archiver {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Archiver{
		txs:      txs,
		writer:   writer,
		age:      age,
		interval: interval,
		clock:    clock,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run archives once immediately and then on every interval until ctx is
// cancelled. Pass-level errors are logged, never fatal.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "archiver started",
		slog.Duration("age", a.age),
		slog.Duration("interval", a.interval),
	)

	if _, err := a.ArchiveOnce(ctx); err != nil {
		a.logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// txRecord is the JSONL line format for archived transactions.
type txRecord struct {
	ID            string `json:"id"`
	OpportunityID string `json:"opportunity_id"`
	Status        string `json:"status"`
	TxHash        string `json:"tx_hash,omitempty"`
	ActualProfit  string `json:"actual_profit,omitempty"`
	GasUsed       string `json:"gas_used,omitempty"`
	ExecutedAt    string `json:"executed_at"`
}

// ArchiveOnce uploads all transactions past the age cutoff and deletes them.
// Returns the number of archived rows.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	now := a.clock()
	cutoff := now.Add(-a.age)

	txs, err := a.txs.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list transactions to archive: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, tx := range txs {
		rec := txRecord{
			ID:            tx.ID,
			OpportunityID: tx.OpportunityID,
			Status:        string(tx.Status),
			TxHash:        tx.TxHash,
			ExecutedAt:    tx.ExecutedAt.UTC().Format(time.RFC3339Nano),
		}
		if tx.ActualProfit != nil {
			rec.ActualProfit = tx.ActualProfit.String()
		}
		if tx.GasUsed != nil {
			rec.GasUsed = tx.GasUsed.String()
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("s3blob: encode transaction %s: %w", tx.ID, err)
		}
	}

	key := fmt.Sprintf("transactions/%s/transactions-%s.jsonl",
		now.UTC().Format("2006/01"), now.UTC().Format("20060102T150405Z"))
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: upload archive: %w", err)
	}

	deleted, err := a.txs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: delete archived transactions: %w", err)
	}

	a.logger.InfoContext(ctx, "archived transactions",
		slog.Int("count", len(txs)),
		slog.Int64("deleted", deleted),
		slog.String("key", key),
	)
	return len(txs), nil
}
