package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbwatch/internal/domain"
	"arbwatch/internal/sim"
	"arbwatch/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func txAt(id string, status domain.TxStatus, at time.Time, profit, gas string) domain.Transaction {
	t := domain.Transaction{ID: id, OpportunityID: "opp-" + id, Status: status, ExecutedAt: at}
	if profit != "" {
		p := dec(profit)
		t.ActualProfit = &p
	}
	if gas != "" {
		g := dec(gas)
		t.GasUsed = &g
	}
	return t
}

func TestStatsService_Overview(t *testing.T) {
	ctx := context.Background()

	t.Run("rolling window summary", func(t *testing.T) {
		opps := memory.NewOpportunityStore(time.Hour, fixedClock)
		txs := memory.NewTransactionStore()
		pairs := memory.NewPairStore()

		require.NoError(t, pairs.Upsert(ctx, domain.TradingPair{ID: "p1", DisplayName: "ETH/USDT", Active: true}))
		require.NoError(t, pairs.Upsert(ctx, domain.TradingPair{ID: "p2", DisplayName: "BTC/USDT", Active: true}))
		require.NoError(t, opps.ReplaceGeneration(ctx, []domain.Opportunity{
			{ID: "o1", CreatedAt: fixedNow.Add(-time.Minute)},
		}))

		// Nine successes and one failure inside the window.
		for i := 0; i < 9; i++ {
			require.NoError(t, txs.Insert(ctx, txAt(
				string(rune('a'+i)), domain.TxSuccess, fixedNow.Add(-time.Hour), "10", "2")))
		}
		require.NoError(t, txs.Insert(ctx, txAt("fail", domain.TxFailed, fixedNow.Add(-time.Hour), "", "2")))
		// Pending does not move the success rate.
		require.NoError(t, txs.Insert(ctx, txAt("pend", domain.TxPending, fixedNow.Add(-time.Hour), "", "")))
		// Outside the window.
		require.NoError(t, txs.Insert(ctx, txAt("stale", domain.TxSuccess, fixedNow.Add(-25*time.Hour), "99", "9")))

		svc := NewStatsService(opps, txs, pairs, 24*time.Hour, fixedClock, testLogger())
		overview, err := svc.Overview(ctx)
		require.NoError(t, err)

		assert.True(t, overview.TotalProfit24h.Equal(dec("90")), "profit %s", overview.TotalProfit24h)
		assert.True(t, overview.SuccessRate.Equal(dec("90")), "rate %s", overview.SuccessRate)
		assert.True(t, overview.GasSpent24h.Equal(dec("20")), "gas %s", overview.GasSpent24h)
		assert.Equal(t, 1, overview.ActiveOpportunities)
		assert.Equal(t, 2, overview.ScannedPairs)
	})

	t.Run("empty window yields zero rate", func(t *testing.T) {
		svc := NewStatsService(
			memory.NewOpportunityStore(time.Hour, fixedClock),
			memory.NewTransactionStore(),
			memory.NewPairStore(),
			24*time.Hour, fixedClock, testLogger())

		overview, err := svc.Overview(ctx)
		require.NoError(t, err)
		assert.True(t, overview.SuccessRate.IsZero())
		assert.True(t, overview.TotalProfit24h.IsZero())
	})
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("partial patch keeps unset fields", func(t *testing.T) {
		store := memory.NewSettingsStore(fixedClock)
		svc := NewSettingsService(store, fixedClock, testLogger())

		threshold := dec("2.5")
		auto := true
		got, err := svc.Update(ctx, domain.SettingsPatch{
			MinProfitThreshold: &threshold,
			AutoExecuteEnabled: &auto,
		})
		require.NoError(t, err)

		assert.True(t, got.MinProfitThreshold.Equal(dec("2.5")))
		assert.True(t, got.AutoExecuteEnabled)
		assert.True(t, got.TradeAmount.Equal(dec("1000")), "untouched field keeps its value")
		assert.Equal(t, fixedNow, got.UpdatedAt)
	})

	t.Run("invalid patch rejected without persisting", func(t *testing.T) {
		store := memory.NewSettingsStore(fixedClock)
		svc := NewSettingsService(store, fixedClock, testLogger())

		before, err := svc.Get(ctx)
		require.NoError(t, err)

		bad := dec("-10")
		auto := true
		_, err = svc.Update(ctx, domain.SettingsPatch{
			TradeAmount:        &bad,
			AutoExecuteEnabled: &auto,
		})
		require.ErrorIs(t, err, domain.ErrConfigInvalid)

		after, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after, "a rejected patch must not change any field")
	})

	t.Run("every violation reported at once", func(t *testing.T) {
		svc := NewSettingsService(memory.NewSettingsStore(fixedClock), fixedClock, testLogger())

		negThreshold := dec("-1")
		zeroGas := decimal.Zero
		_, err := svc.Update(ctx, domain.SettingsPatch{
			MinProfitThreshold: &negThreshold,
			MaxGasPrice:        &zeroGas,
		})
		require.ErrorIs(t, err, domain.ErrConfigInvalid)
		assert.Contains(t, err.Error(), "min_profit_threshold")
		assert.Contains(t, err.Error(), "max_gas_price")
	})
}

// recordingNotifier captures alerts sent through the execution service.
type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

type executionFixture struct {
	svc      *ExecutionService
	opps     *memory.OpportunityStore
	txs      *memory.TransactionStore
	settings *memory.SettingsStore
	notifier *recordingNotifier
}

func newExecutionFixture(t *testing.T, outcome sim.Outcome) *executionFixture {
	t.Helper()
	f := &executionFixture{
		opps:     memory.NewOpportunityStore(time.Hour, fixedClock),
		txs:      memory.NewTransactionStore(),
		settings: memory.NewSettingsStore(fixedClock),
		notifier: &recordingNotifier{},
	}
	simulator := sim.NewSimulator(sim.FixedOutcomePolicy{Outcome: outcome}, fixedClock, testLogger())
	f.svc = NewExecutionService(f.opps, f.txs, f.settings, simulator, nil, f.notifier, fixedClock, testLogger())
	return f
}

func TestExecutionService_Execute(t *testing.T) {
	ctx := context.Background()

	live := domain.Opportunity{
		ID:              "opp-live",
		EstimatedProfit: dec("20"),
		EstimatedCost:   dec("5"),
		IsExecutable:    true,
		CreatedAt:       fixedNow,
	}

	t.Run("successful fill is recorded", func(t *testing.T) {
		f := newExecutionFixture(t, sim.Outcome{Success: true, Jitter: dec("1")})
		require.NoError(t, f.opps.ReplaceGeneration(ctx, []domain.Opportunity{live}))

		tx, err := f.svc.Execute(ctx, "opp-live")
		require.NoError(t, err)
		assert.Equal(t, domain.TxSuccess, tx.Status)

		stored, err := f.svc.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ActualProfit)
		assert.True(t, stored.ActualProfit.Equal(dec("20")))
	})

	t.Run("missing opportunity gets a best-effort fill", func(t *testing.T) {
		f := newExecutionFixture(t, sim.Outcome{Success: true, Jitter: dec("1")})

		tx, err := f.svc.Execute(ctx, "opp-expired")
		require.NoError(t, err)
		assert.Equal(t, "opp-expired", tx.OpportunityID)
		require.NotNil(t, tx.ActualProfit)
		// Synthetic fill at the 1.5% threshold over the 1000 trade amount.
		assert.True(t, tx.ActualProfit.Equal(dec("15")), "profit %s", tx.ActualProfit)
	})

	t.Run("failed fill alerts when alerts enabled", func(t *testing.T) {
		f := newExecutionFixture(t, sim.Outcome{Success: false})
		require.NoError(t, f.opps.ReplaceGeneration(ctx, []domain.Opportunity{live}))

		tx, err := f.svc.Execute(ctx, "opp-live")
		require.NoError(t, err)
		assert.Equal(t, domain.TxFailed, tx.Status)
		assert.Equal(t, []string{"execution_failed"}, f.notifier.events)
	})

	t.Run("failed fill stays quiet when alerts disabled", func(t *testing.T) {
		f := newExecutionFixture(t, sim.Outcome{Success: false})
		require.NoError(t, f.opps.ReplaceGeneration(ctx, []domain.Opportunity{live}))

		current, err := f.settings.Get(ctx)
		require.NoError(t, err)
		current.AlertsEnabled = false
		require.NoError(t, f.settings.Update(ctx, current))

		_, err = f.svc.Execute(ctx, "opp-live")
		require.NoError(t, err)
		assert.Empty(t, f.notifier.events)
	})
}

// stubTriggerer counts manual scan requests.
type stubTriggerer struct{ n int }

func (s *stubTriggerer) Trigger() { s.n++ }

func TestOpportunityService(t *testing.T) {
	ctx := context.Background()

	opps := memory.NewOpportunityStore(time.Hour, fixedClock)
	venues := memory.NewVenueStore()
	pairs := memory.NewPairStore()

	require.NoError(t, venues.Upsert(ctx, domain.Venue{ID: "v1", Name: "Binance", Active: true}))
	require.NoError(t, venues.Upsert(ctx, domain.Venue{ID: "v2", Name: "Kraken", Active: true}))
	require.NoError(t, pairs.Upsert(ctx, domain.TradingPair{ID: "p1", DisplayName: "ETH/USDT", Active: true}))
	require.NoError(t, opps.ReplaceGeneration(ctx, []domain.Opportunity{
		{ID: "o1", TradingPairID: "p1", VenueAID: "v1", VenueBID: "v2", CreatedAt: fixedNow},
		{ID: "o2", TradingPairID: "ghost", VenueAID: "v1", VenueBID: "gone", CreatedAt: fixedNow.Add(-time.Minute)},
	}))

	trig := &stubTriggerer{}
	svc := NewOpportunityService(opps, venues, pairs, trig, testLogger())

	t.Run("list joins names", func(t *testing.T) {
		views, err := svc.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "ETH/USDT", views[0].PairName)
		assert.Equal(t, "Binance", views[0].VenueAName)
		assert.Equal(t, "Kraken", views[0].VenueBName)
	})

	t.Run("unknown IDs fall back to the raw ID", func(t *testing.T) {
		view, err := svc.Get(ctx, "o2")
		require.NoError(t, err)
		assert.Equal(t, "ghost", view.PairName)
		assert.Equal(t, "gone", view.VenueBName)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("trigger proxies to the scanner", func(t *testing.T) {
		assert.True(t, svc.TriggerScan(ctx))
		assert.Equal(t, 1, trig.n)
	})

	t.Run("trigger without a scanner reports false", func(t *testing.T) {
		headless := NewOpportunityService(opps, venues, pairs, nil, testLogger())
		assert.False(t, headless.TriggerScan(ctx))
	})
}
