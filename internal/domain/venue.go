// Package domain contains the core types, store interfaces, and sentinel
// errors shared across the arbwatch engine.
package domain

import "time"

// Venue is a trading exchange or liquidity source that supplies price quotes.
// A venue is immutable once active; deactivating it removes it from future
// detection cycles but never invalidates transactions recorded against it.
type Venue struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// TradingPair is a base/quote symbol combination tracked for arbitrage.
// A pair with fewer than two live quotes for its base symbol in a cycle
// yields no candidates.
type TradingPair struct {
	ID          string
	BaseSymbol  string
	QuoteSymbol string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}
