package quotes

import (
	"context"
	"fmt"
	"time"

	"arbwatch/internal/domain"
)

// CacheSource reads quotes from the quote cache populated by streaming venue
// feeds. Ticks older than maxAge are discarded so the detector never acts on
// a dead feed's last price.
type CacheSource struct {
	cache    domain.QuoteCache
	venueIDs []string
	maxAge   time.Duration
	clock    domain.Clock
}

// NewCacheSource creates a CacheSource reading quotes for the given venues.
// clock may be nil for UTC wall time.
func NewCacheSource(cache domain.QuoteCache, venueIDs []string, maxAge time.Duration, clock domain.Clock) *CacheSource {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &CacheSource{cache: cache, venueIDs: venueIDs, maxAge: maxAge, clock: clock}
}

// FetchQuotes returns the fresh cached ticks for the symbols. An entirely
// empty or stale cache is reported as ErrSourceUnavailable.
func (s *CacheSource) FetchQuotes(ctx context.Context, symbols []string) ([]domain.PriceQuote, error) {
	cached, err := s.cache.GetQuotes(ctx, symbols, s.venueIDs)
	if err != nil {
		return nil, fmt.Errorf("quotes: read cache: %w: %w", domain.ErrSourceUnavailable, err)
	}

	cutoff := s.clock().Add(-s.maxAge)
	fresh := cached[:0]
	for _, q := range cached {
		if s.maxAge > 0 && q.ObservedAt.Before(cutoff) {
			continue
		}
		fresh = append(fresh, q)
	}

	if len(fresh) == 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("quotes: cache empty or stale: %w", domain.ErrSourceUnavailable)
	}
	return fresh, nil
}

// Compile-time interface check.
var _ domain.QuoteSource = (*CacheSource)(nil)
