package quotes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "arbwatch/internal/cache/memory"
	"arbwatch/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestSyntheticSource(t *testing.T) {
	ctx := context.Background()
	venues := []string{"venue_a", "venue_b"}

	t.Run("one quote per symbol and venue", func(t *testing.T) {
		src := NewSyntheticSource(venues, 1, fixedClock)
		quotes, err := src.FetchQuotes(ctx, []string{"BTC", "ETH"})
		require.NoError(t, err)
		require.Len(t, quotes, 4)

		for _, q := range quotes {
			assert.NoError(t, q.Validate())
			assert.Equal(t, fixedNow, q.ObservedAt)
		}
	})

	t.Run("same seed reproduces the same walk", func(t *testing.T) {
		a, err := NewSyntheticSource(venues, 7, fixedClock).FetchQuotes(ctx, []string{"ETH"})
		require.NoError(t, err)
		b, err := NewSyntheticSource(venues, 7, fixedClock).FetchQuotes(ctx, []string{"ETH"})
		require.NoError(t, err)

		require.Len(t, b, len(a))
		for i := range a {
			assert.True(t, a[i].Price.Equal(b[i].Price))
		}
	})

	t.Run("cancelled context refuses", func(t *testing.T) {
		src := NewSyntheticSource(venues, 1, fixedClock)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := src.FetchQuotes(cancelled, []string{"ETH"})
		assert.ErrorIs(t, err, domain.ErrContextDone)
	})
}

func TestCacheSource(t *testing.T) {
	ctx := context.Background()
	venues := []string{"venue_a", "venue_b"}

	seed := func(t *testing.T, cache domain.QuoteCache, venue string, observedAt time.Time) {
		t.Helper()
		require.NoError(t, cache.SetQuote(ctx, domain.PriceQuote{
			Symbol:     "ETH",
			VenueID:    venue,
			Price:      dec("3200"),
			ObservedAt: observedAt,
		}))
	}

	t.Run("returns fresh ticks only", func(t *testing.T) {
		cache := cachemem.NewQuoteCache()
		seed(t, cache, "venue_a", fixedNow.Add(-time.Minute))
		seed(t, cache, "venue_b", fixedNow.Add(-10*time.Minute))

		src := NewCacheSource(cache, venues, 2*time.Minute, fixedClock)
		quotes, err := src.FetchQuotes(ctx, []string{"ETH"})
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, "venue_a", quotes[0].VenueID)
	})

	t.Run("entirely stale cache is a source outage", func(t *testing.T) {
		cache := cachemem.NewQuoteCache()
		seed(t, cache, "venue_a", fixedNow.Add(-time.Hour))

		src := NewCacheSource(cache, venues, 2*time.Minute, fixedClock)
		_, err := src.FetchQuotes(ctx, []string{"ETH"})
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})

	t.Run("empty cache is a source outage", func(t *testing.T) {
		src := NewCacheSource(cachemem.NewQuoteCache(), venues, 2*time.Minute, fixedClock)
		_, err := src.FetchQuotes(ctx, []string{"ETH"})
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})
}

func TestRESTSource(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches every venue and symbol", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"price": "3200.5"}`)
		}))
		defer server.Close()

		src := NewRESTSource([]VenueEndpoint{
			{VenueID: "venue_a", TickerURL: server.URL + "/ticker/a/%s"},
			{VenueID: "venue_b", TickerURL: server.URL + "/ticker/b/%s"},
		}, server.Client(), fixedClock, testLogger())

		quotes, err := src.FetchQuotes(ctx, []string{"ETH", "BTC"})
		require.NoError(t, err)
		assert.Len(t, quotes, 4)
		for _, q := range quotes {
			assert.True(t, q.Price.Equal(dec("3200.5")))
		}
	})

	t.Run("partial outage degrades the batch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/bad/ETH" {
				http.Error(w, "down", http.StatusBadGateway)
				return
			}
			fmt.Fprint(w, `{"price": "3200"}`)
		}))
		defer server.Close()

		src := NewRESTSource([]VenueEndpoint{
			{VenueID: "venue_a", TickerURL: server.URL + "/good/%s"},
			{VenueID: "venue_b", TickerURL: server.URL + "/bad/%s"},
		}, server.Client(), fixedClock, testLogger())

		quotes, err := src.FetchQuotes(ctx, []string{"ETH"})
		require.NoError(t, err)
		require.Len(t, quotes, 1)
		assert.Equal(t, "venue_a", quotes[0].VenueID)
	})

	t.Run("total outage is a source outage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		src := NewRESTSource([]VenueEndpoint{
			{VenueID: "venue_a", TickerURL: server.URL + "/%s"},
		}, server.Client(), fixedClock, testLogger())

		_, err := src.FetchQuotes(ctx, []string{"ETH"})
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	})
}
