package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a single observed price for a symbol on a venue. Quotes are
// ephemeral: produced fresh each detection cycle, never mutated, and
// discarded once the cycle completes.
type PriceQuote struct {
	Symbol     string
	Price      decimal.Decimal
	VenueID    string
	ObservedAt time.Time
}

// Validate checks the quote for a positive price and a well-formed symbol.
// It returns ErrInvalidQuote on failure so callers can reject the single
// quote and continue with the rest of the batch.
func (q PriceQuote) Validate() error {
	if strings.TrimSpace(q.Symbol) == "" {
		return ErrInvalidQuote
	}
	if strings.TrimSpace(q.VenueID) == "" {
		return ErrInvalidQuote
	}
	if !q.Price.IsPositive() {
		return ErrInvalidQuote
	}
	return nil
}
