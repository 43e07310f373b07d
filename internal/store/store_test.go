package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "strategist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func row(strike, expiration, call, put string) models.PricingRow {
	return models.PricingRow{
		Strike:     decimal.RequireFromString(strike),
		Expiration: expiration,
		Call:       models.OptionQuote{Price: decimal.RequireFromString(call)},
		Put:        models.OptionQuote{Price: decimal.RequireFromString(put)},
	}
}

func TestSQLiteStore_UpsertAndChain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SavePricingRows(ctx, "SPY", []models.PricingRow{
		row("100", "2025-01-17", "3.00", "2.00"),
		row("105", "2025-01-17", "1.20", "4.10"),
		row("100", "2025-02-21", "4.00", "3.00"),
	}))
	require.NoError(t, s.SavePricingRows(ctx, "SPY", []models.PricingRow{
		row("100.00", "2025-01-17", "3.10", "2.05"),
	}))

	table, err := s.GetPricingTable(ctx, "SPY")
	require.NoError(t, err)
	assert.Len(t, table, 3)

	r, ok := table.Lookup(decimal.RequireFromString("100"), "2025-01-17")
	require.True(t, ok)
	assert.Equal(t, "3.10", r.Call.Price.StringFixed(2))

	chain, err := s.GetChain(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", chain.Symbol)
	assert.Len(t, chain.Strikes, 2)
	assert.Equal(t, []string{"2025-01-17", "2025-02-21"}, chain.Expirations)

	symbols, err := s.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, symbols)
}

func TestSQLiteStore_MissingSymbol(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetPricingTable(ctx, "QQQ")
	assert.ErrorIs(t, err, apperrors.ErrPricingNotFound)

	_, err = s.GetChain(ctx, "QQQ")
	assert.ErrorIs(t, err, apperrors.ErrChainNotFound)
}

func TestSQLiteStore_Journal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	strategies := []models.Strategy{
		{
			Name:        "Bull Call Spread",
			Direction:   models.DirectionBullish,
			MaxProfit:   models.Amount(decimal.RequireFromString("320")),
			MaxLoss:     models.Amount(decimal.RequireFromString("180")),
			Breakeven:   models.Amount(decimal.RequireFromString("101.80")),
			Probability: 55,
			NetCost:     decimal.RequireFromString("1.80"),
			Legs: []models.Leg{{
				Action:   models.ActionBuy,
				Quantity: 1,
				Contract: models.Contract{Strike: decimal.RequireFromString("100"), Right: models.RightCall, Expiration: "2025-01-17"},
			}},
		},
		{
			Name:      "Short Put",
			Direction: models.DirectionNeutral,
			MaxLoss:   models.Sentinel(models.Unlimited),
		},
	}

	ids, err := s.SaveStrategies(ctx, "SPY", strategies)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	_, err = s.SaveStrategies(ctx, "QQQ", strategies[:1])
	require.NoError(t, err)

	records, err := s.GetStrategies(ctx, StrategyFilter{Symbol: "SPY"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	byName := map[string]StrategyRecord{}
	for _, r := range records {
		byName[r.Strategy.Name] = r
	}
	bull := byName["Bull Call Spread"].Strategy
	assert.Equal(t, "320.00", bull.MaxProfit.String())
	assert.Equal(t, "1.8", bull.NetCost.String())
	require.Len(t, bull.Legs, 1)
	assert.Equal(t, "100", bull.Legs[0].Contract.Strike.String())
	assert.Equal(t, models.Unlimited, byName["Short Put"].Strategy.MaxLoss.String())

	bullish, err := s.GetStrategies(ctx, StrategyFilter{Direction: models.DirectionBullish})
	require.NoError(t, err)
	assert.Len(t, bullish, 2)

	limited, err := s.GetStrategies(ctx, StrategyFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSnapshotProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"symbol": "spy",
		"expirations": ["2025-01-17", "2025-02-21"],
		"rows": [
			{"strike": 100, "expiration": "2025-01-17", "days_to_expiration": 30,
			 "call": {"price": "3.00", "delta": 0.52}, "put": {"price": 2.1}},
			{"strike": "105", "expiration": "2025-01-17",
			 "call": {"price": 1.2}, "put": {"price": 4.4}}
		]
	}`), 0644))

	snap, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "SPY", snap.Symbol)

	provider := NewSnapshotProvider(snap)
	ctx := context.Background()

	chain, err := provider.GetChain(ctx, "spy")
	require.NoError(t, err)
	assert.Len(t, chain.Strikes, 2)
	assert.Equal(t, []string{"2025-01-17", "2025-02-21"}, chain.Expirations)

	table, err := provider.GetPricingTable(ctx, "SPY")
	require.NoError(t, err)
	r, ok := table.Lookup(decimal.RequireFromString("100"), "2025-01-17")
	require.True(t, ok)
	assert.Equal(t, "3.00", r.Call.Price.StringFixed(2))
	assert.InDelta(t, 0.52, r.Call.Delta, 1e-9)

	_, err = provider.GetChain(ctx, "QQQ")
	assert.ErrorIs(t, err, apperrors.ErrChainNotFound)
}

func TestParseSnapshot_Invalid(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{"rows": []}`))
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = ParseSnapshot([]byte(`not json`))
	assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
}
