package memory

import (
	"context"
	"sync"

	"arbwatch/internal/domain"
)

// QuoteCache implements domain.QuoteCache with a mutex-guarded map keyed by
// (symbol, venue).
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[quoteKey]domain.PriceQuote
}

type quoteKey struct {
	symbol  string
	venueID string
}

// NewQuoteCache creates an empty QuoteCache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[quoteKey]domain.PriceQuote)}
}

func (c *QuoteCache) SetQuote(_ context.Context, q domain.PriceQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[quoteKey{q.Symbol, q.VenueID}] = q
	return nil
}

func (c *QuoteCache) GetQuote(_ context.Context, symbol, venueID string) (domain.PriceQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[quoteKey{symbol, venueID}]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	return q, nil
}

func (c *QuoteCache) GetQuotes(_ context.Context, symbols []string, venueIDs []string) ([]domain.PriceQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.PriceQuote
	for _, sym := range symbols {
		for _, venue := range venueIDs {
			if q, ok := c.quotes[quoteKey{sym, venue}]; ok {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
