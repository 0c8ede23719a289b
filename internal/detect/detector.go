// Package detect implements the opportunity detection cycle: the pairwise
// price comparison over venue quotes, the executability classifier, and the
// periodic scanner that drives both.
package detect

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// Detector derives candidate opportunities from a quote batch. It is a pure
// computation: no I/O, no stored state beyond the logger.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger.With(slog.String("component", "detector"))}
}

// Detect groups the quote batch by symbol and, for each tracked pair,
// compares every unordered combination of quotes from distinct venues. A
// candidate is emitted only when the margin strictly exceeds minMargin
// (percent). Invalid quotes (non-positive price, blank symbol or venue) are
// rejected individually; one bad quote never aborts the batch.
//
// The venue-pair comparison is O(n^2) per symbol. At a handful of venues
// this is intentional and simple; it does not scale past a small venue count
// without re-indexing by price.
func (d *Detector) Detect(quotes []domain.PriceQuote, pairs []domain.TradingPair, minMargin decimal.Decimal) []domain.Opportunity {
	bySymbol := make(map[string][]domain.PriceQuote)
	invalid := 0
	for _, q := range quotes {
		if err := q.Validate(); err != nil {
			invalid++
			d.logger.Warn("rejecting invalid quote",
				slog.String("symbol", q.Symbol),
				slog.String("venue_id", q.VenueID),
				slog.String("price", q.Price.String()),
			)
			continue
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}
	if invalid > 0 {
		d.logger.Info("invalid quotes skipped", slog.Int("count", invalid))
	}

	now := time.Now().UTC()
	var out []domain.Opportunity
	for _, pair := range pairs {
		group := bySymbol[pair.BaseSymbol]
		if len(group) < 2 {
			continue
		}
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.VenueID == b.VenueID {
					continue
				}
				margin := domain.Margin(a.Price, b.Price)
				if !margin.GreaterThan(minMargin) {
					continue
				}
				out = append(out, domain.Opportunity{
					ID:                  uuid.NewString(),
					TradingPairID:       pair.ID,
					VenueAID:            a.VenueID,
					VenueBID:            b.VenueID,
					PriceA:              a.Price,
					PriceB:              b.Price,
					ProfitMarginPercent: margin.Round(2),
					CreatedAt:           now,
				})
			}
		}
	}
	return out
}
