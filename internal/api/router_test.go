package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-strategist/internal/agents"
	"option-strategist/internal/models"
	"option-strategist/internal/store"
	"option-strategist/internal/strategy"
)

type stubLLM struct{ response string }

func (s stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}

func (s stubLLM) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return s.response, nil
}

type memoryJournal struct {
	saved []models.Strategy
}

func (m *memoryJournal) SaveStrategies(_ context.Context, _ string, strategies []models.Strategy) ([]string, error) {
	m.saved = append(m.saved, strategies...)
	ids := make([]string, len(strategies))
	for i := range ids {
		ids[i] = "id"
	}
	return ids, nil
}

func (m *memoryJournal) GetStrategies(context.Context, store.StrategyFilter) ([]store.StrategyRecord, error) {
	return nil, nil
}

const batch = `{"strategies": [{
	"name": "Bull Call Spread",
	"legs": [
		{"action": "BUY", "right": "CALL", "strike": 100, "expiration": "2025-01-17"},
		{"action": "SELL", "right": "CALL", "strike": 105, "expiration": "2025-01-17"}
	]}]}`

func newTestRouter(agent *agents.StrategyAgent, journal store.StrategyJournal) http.Handler {
	snap := &store.Snapshot{
		Symbol: "SPY",
		Rows: []models.PricingRow{
			{Strike: decimal.NewFromInt(100), Expiration: "2025-01-17", Call: models.OptionQuote{Price: decimal.RequireFromString("3.00")}},
			{Strike: decimal.NewFromInt(105), Expiration: "2025-01-17", Call: models.OptionQuote{Price: decimal.RequireFromString("1.20")}},
		},
	}
	engine := strategy.NewEngine(strategy.DefaultOptions(), zerolog.Nop())
	return NewRouter(NewHandler(store.NewSnapshotProvider(snap), journal, engine, agent, zerolog.Nop()))
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetChain(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/chains/spy", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var chain models.Chain
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chain))
	assert.Equal(t, "SPY", chain.Symbol)
	assert.Len(t, chain.Strikes, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/chains/QQQ", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidate(t *testing.T) {
	journal := &memoryJournal{}
	router := newTestRouter(nil, journal)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/strategies/SPY/validate?save=true", strings.NewReader(batch)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StrategiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Strategies, 1)
	assert.Equal(t, "320.00", resp.Strategies[0].MaxProfit.String())
	assert.Equal(t, []string{"id"}, resp.JournalIDs)
	assert.Len(t, journal.saved, 1)
}

func TestValidate_GarbageYieldsEmptyList(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/strategies/SPY/validate", strings.NewReader("nope")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"strategies":[]`)
}

func TestValidate_UnknownSymbol(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/strategies/QQQ/validate", strings.NewReader(batch)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggest(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil, nil).ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/strategies/SPY/suggest", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	engine := strategy.NewEngine(strategy.DefaultOptions(), zerolog.Nop())
	agent := agents.NewStrategyAgent(agents.NewStrategyGenerator(stubLLM{response: batch}, "", 0, zerolog.Nop()), engine, zerolog.Nop())

	rec = httptest.NewRecorder()
	newTestRouter(agent, nil).ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/strategies/SPY/suggest",
		strings.NewReader(`{"outlook": "bullish", "spot": 101.5}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StrategiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Strategies, 1)
}
