package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// VenueStore persists venues.
type VenueStore interface {
	Upsert(ctx context.Context, v Venue) error
	GetByID(ctx context.Context, id string) (Venue, error)
	ListActive(ctx context.Context) ([]Venue, error)
	List(ctx context.Context) ([]Venue, error)
}

// PairStore persists trading pairs.
type PairStore interface {
	Upsert(ctx context.Context, p TradingPair) error
	GetByID(ctx context.Context, id string) (TradingPair, error)
	ListActive(ctx context.Context) ([]TradingPair, error)
	CountActive(ctx context.Context) (int, error)
}

// OpportunityStore holds current opportunities and enforces the retention
// window. ReplaceGeneration must be atomic from a reader's point of view:
// List observes either the pre-cycle or the post-cycle state, never a
// partial generation.
type OpportunityStore interface {
	// ReplaceGeneration drops opportunities older than the retention window
	// and inserts the new batch in one atomic step. Prior opportunities that
	// are still inside the window coexist with the new generation until they
	// age out. Storing an empty batch is a valid steady state, not an error.
	ReplaceGeneration(ctx context.Context, opps []Opportunity) error
	// List returns opportunities ordered by CreatedAt descending, capped at
	// limit. Expired entries are never returned.
	List(ctx context.Context, limit int) ([]Opportunity, error)
	GetByID(ctx context.Context, id string) (Opportunity, error)
	// Expire removes all entries older than the retention window. Idempotent
	// and safe to call concurrently with List.
	Expire(ctx context.Context) error
	// CountActive returns the number of currently stored, non-expired
	// opportunities.
	CountActive(ctx context.Context) (int, error)
}

// TransactionStore persists paper execution records.
type TransactionStore interface {
	Insert(ctx context.Context, tx Transaction) error
	GetByID(ctx context.Context, id string) (Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]Transaction, error)
	// SumProfitSince sums ActualProfit over success transactions executed at
	// or after since.
	SumProfitSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	// SumGasSince sums GasUsed over all transactions executed at or after
	// since, regardless of status.
	SumGasSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	// CountByStatusSince returns per-status counts over the trailing window.
	CountByStatusSince(ctx context.Context, since time.Time) (map[TxStatus]int, error)
	// ListBefore returns transactions executed strictly before the cutoff,
	// for archival.
	ListBefore(ctx context.Context, before time.Time) ([]Transaction, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SettingsStore persists the singleton bot settings record.
type SettingsStore interface {
	// Get returns the settings, creating the default record when absent.
	Get(ctx context.Context) (BotSettings, error)
	Update(ctx context.Context, s BotSettings) error
}
