package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"arbwatch/internal/domain"
)

const (
	wsHandshakeTimeout = 15 * time.Second
	wsWriteWait        = 10 * time.Second
	wsPongWait         = 60 * time.Second
	wsPingPeriod       = (wsPongWait * 9) / 10

	wsReconnectDelay    = 2 * time.Second
	wsMaxReconnectDelay = 60 * time.Second
)

// tickMessage is the streaming ticker frame expected from a venue feed.
type tickMessage struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// VenueFeed maintains a streaming connection to one venue's ticker endpoint
// and writes every tick into the quote cache. It reconnects with exponential
// backoff until the context is cancelled, so a venue outage only means stale
// cache entries, never a crashed process.
type VenueFeed struct {
	venueID string
	wsURL   string
	symbols []string
	cache   domain.QuoteCache
	clock   domain.Clock
	logger  *slog.Logger
}

// NewVenueFeed creates a VenueFeed for one venue. clock may be nil for UTC
// wall time.
func NewVenueFeed(venueID, wsURL string, symbols []string, cache domain.QuoteCache, clock domain.Clock, logger *slog.Logger) *VenueFeed {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &VenueFeed{
		venueID: venueID,
		wsURL:   wsURL,
		symbols: symbols,
		cache:   cache,
		clock:   clock,
		logger: logger.With(
			slog.String("component", "venue_feed"),
			slog.String("venue", venueID),
		),
	}
}

// Run connects and consumes ticks until ctx is cancelled. Call in a
// goroutine.
func (f *VenueFeed) Run(ctx context.Context) error {
	delay := wsReconnectDelay
	for {
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.WarnContext(ctx, "feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > wsMaxReconnectDelay {
			delay = wsMaxReconnectDelay
		}
	}
}

// consume dials the feed, subscribes, and pumps ticks into the cache until
// the connection drops. A successful read resets nothing here; backoff reset
// happens implicitly because consume only returns on failure.
func (f *VenueFeed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("quotes: dial %s: %w", f.wsURL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	sub, _ := json.Marshal(map[string]any{
		"type":    "subscribe",
		"symbols": f.symbols,
	})
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("quotes: subscribe: %w", err)
	}

	f.logger.InfoContext(ctx, "feed connected")

	// Close the connection when ctx ends so ReadMessage unblocks, and keep
	// the connection alive with periodic pings.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("quotes: read: %w", err)
		}
		f.handleTick(ctx, raw)
	}
}

// handleTick parses and caches one ticker frame. Malformed or invalid frames
// are dropped with a debug log.
func (f *VenueFeed) handleTick(ctx context.Context, raw []byte) {
	var tick tickMessage
	if err := json.Unmarshal(raw, &tick); err != nil {
		return
	}
	if tick.Symbol == "" || tick.Price == "" {
		return
	}

	price, err := decimal.NewFromString(tick.Price)
	if err != nil {
		f.logger.DebugContext(ctx, "dropping malformed tick",
			slog.String("symbol", tick.Symbol),
			slog.String("price", tick.Price),
		)
		return
	}

	q := domain.PriceQuote{
		Symbol:     tick.Symbol,
		VenueID:    f.venueID,
		Price:      price,
		ObservedAt: f.clock(),
	}
	if err := q.Validate(); err != nil {
		return
	}

	if err := f.cache.SetQuote(ctx, q); err != nil {
		f.logger.WarnContext(ctx, "cache tick failed",
			slog.String("symbol", tick.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
