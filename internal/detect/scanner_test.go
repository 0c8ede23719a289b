package detect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbwatch/internal/domain"
	"arbwatch/internal/store/memory"
)

// stubSource returns a fixed quote batch or a fixed error.
type stubSource struct {
	quotes []domain.PriceQuote
	err    error
}

func (s *stubSource) FetchQuotes(context.Context, []string) ([]domain.PriceQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

// recordingExecutor captures every auto-execution request.
type recordingExecutor struct {
	mu  sync.Mutex
	ids []string
}

func (e *recordingExecutor) Execute(_ context.Context, opportunityID string) (domain.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, opportunityID)
	return domain.Transaction{ID: "tx-" + opportunityID, Status: domain.TxSuccess}, nil
}

type scannerFixture struct {
	scanner  *Scanner
	source   *stubSource
	opps     *memory.OpportunityStore
	settings *memory.SettingsStore
	exec     *recordingExecutor
}

func newScannerFixture(t *testing.T, costs domain.CostModel) *scannerFixture {
	t.Helper()

	source := &stubSource{}
	opps := memory.NewOpportunityStore(time.Hour, nil)
	pairs := memory.NewPairStore()
	settings := memory.NewSettingsStore(nil)
	exec := &recordingExecutor{}

	require.NoError(t, pairs.Upsert(context.Background(), ethPair))

	scanner := NewScanner(
		source, pairs, opps, settings,
		NewDetector(testLogger()),
		NewClassifier(costs),
		nil, exec,
		ScannerConfig{MinMargin: dec("0.5")},
		testLogger(),
	)
	return &scannerFixture{scanner: scanner, source: source, opps: opps, settings: settings, exec: exec}
}

func TestScanner_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("stores classified generation", func(t *testing.T) {
		f := newScannerFixture(t, FixedCostModel{Cost: dec("5")})
		f.source.quotes = []domain.PriceQuote{
			quote("ETH", "venue_a", "2000"),
			quote("ETH", "venue_b", "2040"),
		}

		n, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		stored, err := f.opps.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.True(t, stored[0].ProfitMarginPercent.Equal(dec("2")))
		assert.True(t, stored[0].IsExecutable)
	})

	t.Run("source outage leaves prior generation untouched", func(t *testing.T) {
		f := newScannerFixture(t, FixedCostModel{Cost: dec("5")})
		f.source.quotes = []domain.PriceQuote{
			quote("ETH", "venue_a", "2000"),
			quote("ETH", "venue_b", "2040"),
		}
		_, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)

		f.source.err = domain.ErrSourceUnavailable
		_, err = f.scanner.RunCycle(ctx)
		require.ErrorIs(t, err, domain.ErrSourceUnavailable)

		stored, err := f.opps.List(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, stored, 1, "prior generation must survive a skipped cycle")
	})

	t.Run("empty batch replaces generation with nothing", func(t *testing.T) {
		f := newScannerFixture(t, FixedCostModel{Cost: dec("5")})
		f.source.quotes = []domain.PriceQuote{
			quote("ETH", "venue_a", "2000"),
			quote("ETH", "venue_b", "2040"),
		}
		_, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)

		f.source.quotes = nil
		n, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("auto-execute disabled by default", func(t *testing.T) {
		f := newScannerFixture(t, FixedCostModel{Cost: dec("5")})
		f.source.quotes = []domain.PriceQuote{
			quote("ETH", "venue_a", "2000"),
			quote("ETH", "venue_b", "2040"),
		}
		_, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)
		assert.Empty(t, f.exec.ids)
	})

	t.Run("auto-execute fills only executable opportunities", func(t *testing.T) {
		f := newScannerFixture(t, FixedCostModel{Cost: dec("5")})

		current, err := f.settings.Get(ctx)
		require.NoError(t, err)
		current.AutoExecuteEnabled = true
		require.NoError(t, f.settings.Update(ctx, current))

		f.source.quotes = []domain.PriceQuote{
			// 2% margin clears the 1.5% threshold; 1% does not.
			quote("ETH", "venue_a", "2000"),
			quote("ETH", "venue_b", "2040"),
			quote("ETH", "venue_c", "2020"),
		}
		n, err := f.scanner.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Len(t, f.exec.ids, 1, "only the 2%% margin opportunity is executable")
	})
}

func TestScanner_Trigger(t *testing.T) {
	f := newScannerFixture(t, FixedCostModel{Cost: decimal.Zero})

	// Both calls must return immediately even though nothing drains the
	// channel; pending triggers coalesce.
	f.scanner.Trigger()
	f.scanner.Trigger()
}
