package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbwatch/internal/domain"
)

func TestSignalBus(t *testing.T) {
	ctx := context.Background()

	t.Run("fan-out to every subscriber", func(t *testing.T) {
		bus := NewSignalBus()

		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		a, err := bus.Subscribe(subCtx, "opportunities")
		require.NoError(t, err)
		b, err := bus.Subscribe(subCtx, "opportunities")
		require.NoError(t, err)
		other, err := bus.Subscribe(subCtx, "executions")
		require.NoError(t, err)

		require.NoError(t, bus.Publish(ctx, "opportunities", []byte("evt")))

		assert.Equal(t, []byte("evt"), <-a)
		assert.Equal(t, []byte("evt"), <-b)
		select {
		case msg := <-other:
			t.Fatalf("unexpected message on executions channel: %s", msg)
		default:
		}
	})

	t.Run("cancelled subscriber is removed and closed", func(t *testing.T) {
		bus := NewSignalBus()

		subCtx, cancel := context.WithCancel(ctx)
		ch, err := bus.Subscribe(subCtx, "opportunities")
		require.NoError(t, err)

		cancel()
		select {
		case _, open := <-ch:
			assert.False(t, open, "channel must be closed after cancel")
		case <-time.After(time.Second):
			t.Fatal("subscriber channel not closed")
		}

		// Publishing afterwards must not panic or block.
		require.NoError(t, bus.Publish(ctx, "opportunities", []byte("late")))
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		bus := NewSignalBus()
		assert.NoError(t, bus.Publish(ctx, "opportunities", []byte("evt")))
	})
}

func TestQuoteCache(t *testing.T) {
	ctx := context.Background()
	cache := NewQuoteCache()

	q := domain.PriceQuote{
		Symbol:     "ETH",
		VenueID:    "venue_a",
		Price:      decimal.RequireFromString("3200"),
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.SetQuote(ctx, q))

	t.Run("get returns the stored tick", func(t *testing.T) {
		got, err := cache.GetQuote(ctx, "ETH", "venue_a")
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(q.Price))
		assert.Equal(t, q.ObservedAt, got.ObservedAt)
	})

	t.Run("missing slot is not found", func(t *testing.T) {
		_, err := cache.GetQuote(ctx, "ETH", "venue_b")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("newer tick overwrites", func(t *testing.T) {
		newer := q
		newer.Price = decimal.RequireFromString("3210")
		require.NoError(t, cache.SetQuote(ctx, newer))

		got, err := cache.GetQuote(ctx, "ETH", "venue_a")
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(newer.Price))
	})

	t.Run("batch get skips empty slots", func(t *testing.T) {
		got, err := cache.GetQuotes(ctx, []string{"ETH", "BTC"}, []string{"venue_a", "venue_b"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
