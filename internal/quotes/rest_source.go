package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"arbwatch/internal/domain"
)

// VenueEndpoint describes one venue's REST ticker endpoint. TickerURL must
// contain a single %s verb that receives the symbol.
type VenueEndpoint struct {
	VenueID   string
	TickerURL string
}

// tickerResponse is the minimal shape expected from a venue ticker endpoint.
// Prices arrive as strings to avoid float rounding at the boundary.
type tickerResponse struct {
	Price string `json:"price"`
}

// RESTSource polls venue ticker endpoints over HTTP, fanning out one request
// per (venue, symbol). Partial venue outages degrade the quote set; only a
// total outage is reported as ErrSourceUnavailable.
type RESTSource struct {
	endpoints []VenueEndpoint
	client    *http.Client
	clock     domain.Clock
	logger    *slog.Logger
}

// NewRESTSource creates a RESTSource. client may be nil, in which case a
// client with a 10 second timeout is used; clock may be nil for UTC wall
// time.
func NewRESTSource(endpoints []VenueEndpoint, client *http.Client, clock domain.Clock, logger *slog.Logger) *RESTSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &RESTSource{
		endpoints: endpoints,
		client:    client,
		clock:     clock,
		logger:    logger.With(slog.String("component", "rest_source")),
	}
}

// FetchQuotes fetches the latest ticker for every symbol on every venue.
// Individual fetch failures are logged and skipped; the call fails with
// ErrSourceUnavailable only when no quote could be fetched at all.
func (s *RESTSource) FetchQuotes(ctx context.Context, symbols []string) ([]domain.PriceQuote, error) {
	var (
		mu     sync.Mutex
		quotes []domain.PriceQuote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, ep := range s.endpoints {
		for _, sym := range symbols {
			ep, sym := ep, sym
			g.Go(func() error {
				q, err := s.fetchOne(gctx, ep, sym)
				if err != nil {
					s.logger.WarnContext(gctx, "ticker fetch failed",
						slog.String("venue", ep.VenueID),
						slog.String("symbol", sym),
						slog.String("error", err.Error()),
					)
					return nil
				}
				mu.Lock()
				quotes = append(quotes, q)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("quotes: fetch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrContextDone
	}
	if len(quotes) == 0 && len(s.endpoints) > 0 && len(symbols) > 0 {
		return nil, fmt.Errorf("quotes: no venue responded: %w", domain.ErrSourceUnavailable)
	}
	return quotes, nil
}

func (s *RESTSource) fetchOne(ctx context.Context, ep VenueEndpoint, symbol string) (domain.PriceQuote, error) {
	url := fmt.Sprintf(ep.TickerURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PriceQuote{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("parse price %q: %w", ticker.Price, err)
	}

	q := domain.PriceQuote{
		Symbol:     symbol,
		VenueID:    ep.VenueID,
		Price:      price,
		ObservedAt: s.clock(),
	}
	if err := q.Validate(); err != nil {
		return domain.PriceQuote{}, err
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteSource = (*RESTSource)(nil)
