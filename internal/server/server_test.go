package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbwatch/internal/domain"
	"arbwatch/internal/server/handler"
	"arbwatch/internal/service"
	"arbwatch/internal/sim"
	"arbwatch/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type apiFixture struct {
	handler http.Handler
	opps    *memory.OpportunityStore
	txs     *memory.TransactionStore
}

// fixtureConfig tweaks the server wiring for individual tests.
type fixtureConfig struct {
	listLimit   int
	exportLimit int
	apiKey      string
}

// newAPIFixture assembles the full route table over in-memory stores with a
// deterministic always-succeed simulator.
func newAPIFixture(t *testing.T) *apiFixture {
	return newAPIFixtureWith(t, fixtureConfig{listLimit: 50, exportLimit: 1000})
}

func newAPIFixtureWith(t *testing.T, fc fixtureConfig) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	opps := memory.NewOpportunityStore(time.Hour, nil)
	txs := memory.NewTransactionStore()
	settings := memory.NewSettingsStore(nil)
	venues := memory.NewVenueStore()
	pairs := memory.NewPairStore()

	require.NoError(t, venues.Upsert(ctx, domain.Venue{ID: "v1", Name: "Binance", Active: true}))
	require.NoError(t, venues.Upsert(ctx, domain.Venue{ID: "v2", Name: "Kraken", Active: true}))
	require.NoError(t, pairs.Upsert(ctx, domain.TradingPair{ID: "p1", DisplayName: "ETH/USDT", Active: true}))

	simulator := sim.NewSimulator(
		sim.FixedOutcomePolicy{Outcome: sim.Outcome{Success: true, Jitter: dec("1")}},
		nil, logger)

	execution := service.NewExecutionService(opps, txs, settings, simulator, nil, nil, nil, logger)
	opportunity := service.NewOpportunityService(opps, venues, pairs, nil, logger)
	settingsSvc := service.NewSettingsService(settings, nil, logger)
	stats := service.NewStatsService(opps, txs, pairs, 24*time.Hour, nil, logger)

	srv := NewServer(Config{Port: 0, APIKey: fc.apiKey}, Handlers{
		Health: handler.NewHealthHandler(logger),
		Status: handler.NewStatusHandler("full", "synthetic"),
		Opportunities: handler.NewOpportunityHandler(
			opportunity, execution, fc.listLimit, fc.exportLimit, logger),
		Transactions: handler.NewTransactionHandler(
			execution, fc.listLimit, fc.exportLimit, logger),
		Stats:    handler.NewStatsHandler(stats, logger),
		Settings: handler.NewSettingsHandler(settingsSvc, logger),
	}, nil, logger)

	return &apiFixture{handler: srv.Handler(), opps: opps, txs: txs}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return f.doWith(t, method, path, body, nil)
}

func (f *apiFixture) doWith(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (f *apiFixture) seedOpportunity(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.opps.ReplaceGeneration(context.Background(), []domain.Opportunity{{
		ID:                  id,
		TradingPairID:       "p1",
		VenueAID:            "v1",
		VenueBID:            "v2",
		PriceA:              dec("2000"),
		PriceB:              dec("2040"),
		ProfitMarginPercent: dec("2"),
		EstimatedProfit:     dec("20"),
		EstimatedCost:       dec("5"),
		IsExecutable:        true,
		CreatedAt:           time.Now().UTC(),
	}}))
}

func (f *apiFixture) seedGeneration(t *testing.T, ids ...string) {
	t.Helper()
	batch := make([]domain.Opportunity, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, domain.Opportunity{
			ID:                  id,
			TradingPairID:       "p1",
			VenueAID:            "v1",
			VenueBID:            "v2",
			PriceA:              dec("2000"),
			PriceB:              dec("2040"),
			ProfitMarginPercent: dec("2"),
			EstimatedProfit:     dec("20"),
			EstimatedCost:       dec("5"),
			IsExecutable:        true,
			CreatedAt:           time.Now().UTC(),
		})
	}
	require.NoError(t, f.opps.ReplaceGeneration(context.Background(), batch))
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)
	rec, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_Status(t *testing.T) {
	f := newAPIFixture(t)
	rec, body := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "full", body["mode"])
	assert.Equal(t, "synthetic", body["quote_source"])
}

func TestAPI_Opportunities(t *testing.T) {
	f := newAPIFixture(t)
	f.seedOpportunity(t, "opp-1")

	t.Run("list includes joined names", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, body["count"])

		items := body["opportunities"].([]any)
		first := items[0].(map[string]any)
		assert.Equal(t, "opp-1", first["id"])
		assert.Equal(t, "ETH/USDT", first["pair_name"])
		assert.Equal(t, "Binance", first["venue_a_name"])
		assert.Equal(t, true, first["is_executable"])
	})

	t.Run("get by id", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities/opp-1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "opp-1", body["id"])
		assert.Equal(t, "2", body["profit_margin_percent"])
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, body["error"], "not found")
	})

	t.Run("trigger without a scanner is 409", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/scan/trigger", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAPI_Execute(t *testing.T) {
	f := newAPIFixture(t)
	f.seedOpportunity(t, "opp-1")

	rec, body := f.do(t, http.MethodPost, "/api/opportunities/opp-1/execute", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "opp-1", body["opportunity_id"])
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "20", body["actual_profit"])

	txID := body["id"].(string)
	rec, body = f.do(t, http.MethodGet, "/api/transactions/"+txID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])

	rec, body = f.do(t, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestAPI_Stats(t *testing.T) {
	f := newAPIFixture(t)
	f.seedOpportunity(t, "opp-1")

	_, _ = f.do(t, http.MethodPost, "/api/opportunities/opp-1/execute", "")

	rec, body := f.do(t, http.MethodGet, "/api/stats/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "20", body["total_profit_24h"])
	assert.Equal(t, "100", body["success_rate"])
	assert.EqualValues(t, 1, body["active_opportunities"])
	assert.EqualValues(t, 1, body["scanned_pairs"])
}

func TestAPI_Settings(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("get installs defaults", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/settings", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1.5", body["min_profit_threshold"])
		assert.Equal(t, false, body["auto_execute_enabled"])
	})

	t.Run("put applies a partial patch", func(t *testing.T) {
		rec, body := f.do(t, http.MethodPut, "/api/settings",
			`{"min_profit_threshold": "2.5", "auto_execute_enabled": true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2.5", body["min_profit_threshold"])
		assert.Equal(t, true, body["auto_execute_enabled"])
		assert.Equal(t, "1000", body["trade_amount"])
	})

	t.Run("invalid field rejects the whole patch", func(t *testing.T) {
		rec, body := f.do(t, http.MethodPut, "/api/settings", `{"trade_amount": "-10"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "trade_amount")

		_, current := f.do(t, http.MethodGet, "/api/settings", "")
		assert.Equal(t, "1000", current["trade_amount"], "rejected patch must not persist")
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPut, "/api/settings", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_ListLimits(t *testing.T) {
	f := newAPIFixtureWith(t, fixtureConfig{listLimit: 2, exportLimit: 3})
	f.seedGeneration(t, "opp-1", "opp-2", "opp-3", "opp-4")

	t.Run("default page size", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 2, body["count"])
	})

	t.Run("explicit limit up to the export cap", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities?limit=3", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, body["count"])
	})

	t.Run("oversized limit clamps to the export cap", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities?limit=100", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, body["count"])
	})
}

func TestAPI_Auth(t *testing.T) {
	f := newAPIFixtureWith(t, fixtureConfig{listLimit: 50, exportLimit: 1000, apiKey: "s3cret"})

	t.Run("missing token is 401", func(t *testing.T) {
		rec, body := f.do(t, http.MethodGet, "/api/opportunities", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, body["error"], "missing")
	})

	t.Run("wrong token is 401", func(t *testing.T) {
		rec, body := f.doWith(t, http.MethodPut, "/api/settings",
			`{"trade_amount": "500"}`, map[string]string{"X-API-Key": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, body["error"], "invalid")
	})

	t.Run("bearer token passes", func(t *testing.T) {
		rec, _ := f.doWith(t, http.MethodGet, "/api/health", "",
			map[string]string{"Authorization": "Bearer s3cret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("x-api-key passes", func(t *testing.T) {
		rec, body := f.doWith(t, http.MethodGet, "/api/settings", "",
			map[string]string{"X-API-Key": "s3cret"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1.5", body["min_profit_threshold"])
	})
}
