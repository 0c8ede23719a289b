package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSource supplies, on demand, the latest price quotes for the given
// symbols across all venues it knows about. Implementations own their
// transport policy (timeouts, retries); a transport failure is reported as
// ErrSourceUnavailable and the caller skips the cycle.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]PriceQuote, error)
}

// QuoteCache provides fast access to the latest tick per (symbol, venue).
type QuoteCache interface {
	SetQuote(ctx context.Context, q PriceQuote) error
	GetQuote(ctx context.Context, symbol, venueID string) (PriceQuote, error)
	// GetQuotes returns the freshest cached quote for each symbol/venue
	// combination. Missing entries are omitted, not errors.
	GetQuotes(ctx context.Context, symbols []string, venueIDs []string) ([]PriceQuote, error)
}

// CostModel estimates the execution cost for a candidate opportunity. The
// engine only consumes the numeric estimate and compares it against profit.
type CostModel interface {
	EstimateCost(ctx context.Context, margin decimal.Decimal, settings BotSettings) (decimal.Decimal, error)
}

// SignalBus provides pub/sub for engine events (opportunity detections,
// executions) consumed by the WebSocket hub and the notifier.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Clock abstracts time.Now so retention and window logic is testable.
type Clock func() time.Time
