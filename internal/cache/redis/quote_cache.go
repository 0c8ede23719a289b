package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis hashes. Each tick is
// stored at key "quote:{symbol}:{venue}" with fields "price" (decimal
// string) and "ts" (Unix nanosecond timestamp), refreshed with a TTL so a
// dead feed cannot serve stale prices forever.
type QuoteCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewQuoteCache creates a QuoteCache backed by the given Client. ttl of zero
// disables expiry.
func NewQuoteCache(c *Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying(), ttl: ttl}
}

func quoteKey(symbol, venueID string) string {
	return "quote:" + symbol + ":" + venueID
}

// SetQuote stores the latest tick for a (symbol, venue) combination.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	key := quoteKey(q.Symbol, q.VenueID)
	fields := map[string]interface{}{
		"price": q.Price.String(),
		"ts":    strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
	}
	if err := qc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	if qc.ttl > 0 {
		if err := qc.rdb.Expire(ctx, key, qc.ttl).Err(); err != nil {
			return fmt.Errorf("redis: expire quote %s: %w", key, err)
		}
	}
	return nil
}

// GetQuote retrieves the latest tick for a (symbol, venue) combination. It
// returns domain.ErrNotFound when no tick is cached.
func (qc *QuoteCache) GetQuote(ctx context.Context, symbol, venueID string) (domain.PriceQuote, error) {
	key := quoteKey(symbol, venueID)
	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	return parseQuoteFields(symbol, venueID, vals)
}

// GetQuotes retrieves the freshest cached tick for every symbol/venue
// combination using a pipeline. Missing entries are omitted.
func (qc *QuoteCache) GetQuotes(ctx context.Context, symbols []string, venueIDs []string) ([]domain.PriceQuote, error) {
	if len(symbols) == 0 || len(venueIDs) == 0 {
		return nil, nil
	}

	type slot struct {
		symbol  string
		venueID string
		cmd     *redis.MapStringStringCmd
	}

	pipe := qc.rdb.Pipeline()
	slots := make([]slot, 0, len(symbols)*len(venueIDs))
	for _, sym := range symbols {
		for _, venue := range venueIDs {
			slots = append(slots, slot{
				symbol:  sym,
				venueID: venue,
				cmd:     pipe.HGetAll(ctx, quoteKey(sym, venue)),
			})
		}
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get quotes pipeline: %w", err)
	}

	var quotes []domain.PriceQuote
	for _, sl := range slots {
		vals, err := sl.cmd.Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, err := parseQuoteFields(sl.symbol, sl.venueID, vals)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func parseQuoteFields(symbol, venueID string, vals map[string]string) (domain.PriceQuote, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote price %q: %w", priceStr, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return domain.PriceQuote{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote ts %q: %w", tsStr, err)
	}

	return domain.PriceQuote{
		Symbol:     symbol,
		VenueID:    venueID,
		Price:      price,
		ObservedAt: time.Unix(0, tsNano).UTC(),
	}, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
