package strategy

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testChain() models.Chain {
	return models.NewChain("SPY",
		[]decimal.Decimal{dec("90"), dec("95"), dec("100"), dec("105"), dec("110")},
		[]string{"2025-01-17", "2025-02-21"})
}

func testTable() models.PricingTable {
	row := func(strike, call, put string) models.PricingRow {
		return models.PricingRow{
			Strike:           dec(strike),
			Expiration:       "2025-01-17",
			DaysToExpiration: 30,
			Call:             models.OptionQuote{Price: dec(call), Delta: 0.5, Theta: -0.02, Vega: 0.1},
			Put:              models.OptionQuote{Price: dec(put), Delta: -0.5, Theta: -0.02, Vega: 0.1},
		}
	}
	return models.NewPricingTable([]models.PricingRow{
		row("90", "11.00", "1.00"),
		row("95", "7.00", "2.50"),
		row("100", "3.00", "4.00"),
		row("105", "1.20", "6.00"),
		row("110", "0.40", "9.00"),
	})
}

func TestCalculator_VerticalDebit(t *testing.T) {
	calc := NewCalculator(DefaultContractMultiplier)
	legs := []models.Leg{
		pricedLeg(models.ActionBuy, models.RightCall, dec("100"), dec("3.00")),
		pricedLeg(models.ActionSell, models.RightCall, dec("105"), dec("1.20")),
	}

	p, err := calc.Compute(legs)
	require.NoError(t, err)

	assert.Equal(t, ShapeVertical, p.Shape)
	assert.Equal(t, "1.80", p.NetCost.StringFixed(2))
	assert.False(t, p.IsCredit)
	assert.Equal(t, "180.00", p.Premium.StringFixed(2))
	assert.Equal(t, "180.00", p.MaxRisk.String())
	assert.Equal(t, "320.00", p.MaxReward.String())
	assert.Equal(t, "101.80", p.Breakeven.String())
	assert.Contains(t, p.Trace, "Net cost")
}

func TestCalculator_VerticalCredit(t *testing.T) {
	calc := NewCalculator(DefaultContractMultiplier)
	legs := []models.Leg{
		pricedLeg(models.ActionSell, models.RightPut, dec("95"), dec("2.50")),
		pricedLeg(models.ActionBuy, models.RightPut, dec("90"), dec("1.00")),
	}

	p, err := calc.Compute(legs)
	require.NoError(t, err)

	assert.Equal(t, "-1.50", p.NetCost.StringFixed(2))
	assert.True(t, p.IsCredit)
	assert.Equal(t, "150.00", p.Premium.StringFixed(2))
	assert.Equal(t, "150.00", p.MaxReward.String())
	assert.Equal(t, "350.00", p.MaxRisk.String())
	assert.Equal(t, "93.50", p.Breakeven.String())
}

func TestCalculator_SingleLeg(t *testing.T) {
	calc := NewCalculator(DefaultContractMultiplier)

	p, err := calc.Compute([]models.Leg{
		pricedLeg(models.ActionBuy, models.RightCall, dec("50"), dec("2.00")),
	})
	require.NoError(t, err)
	assert.Equal(t, ShapeSingle, p.Shape)
	assert.Equal(t, "200.00", p.MaxRisk.String())
	assert.Equal(t, "52.00", p.Breakeven.String())
	assert.Nil(t, p.MaxReward)

	short, err := calc.Compute([]models.Leg{
		pricedLeg(models.ActionSell, models.RightPut, dec("50"), dec("2.00")),
	})
	require.NoError(t, err)
	assert.True(t, short.IsCredit)
	assert.Equal(t, models.Unlimited, short.MaxRisk.String())
	assert.Equal(t, "48.00", short.Breakeven.String())

	leg := pricedLeg(models.ActionBuy, models.RightCall, dec("50"), dec("2.00"))
	leg.Quantity = 2
	double, err := calc.Compute([]models.Leg{leg})
	require.NoError(t, err)
	assert.Equal(t, "400.00", double.MaxRisk.String())
	assert.Equal(t, "54.00", double.Breakeven.String())
	assert.Contains(t, double.Trace, "50 + 400.00 / 100 = 54.00")
}

func TestCalculator_IrregularShape(t *testing.T) {
	calc := NewCalculator(DefaultContractMultiplier)
	legs := []models.Leg{
		pricedLeg(models.ActionBuy, models.RightCall, dec("95"), dec("7.00")),
		pricedLeg(models.ActionSell, models.RightCall, dec("100"), dec("3.00")),
		pricedLeg(models.ActionSell, models.RightCall, dec("105"), dec("1.20")),
	}

	p, err := calc.Compute(legs)
	require.NoError(t, err)
	assert.Equal(t, ShapeIrregular, p.Shape)
	assert.Equal(t, "2.80", p.NetCost.StringFixed(2))
	assert.Nil(t, p.MaxRisk)
	assert.Nil(t, p.MaxReward)
	assert.Nil(t, p.Breakeven)
	assert.Empty(t, p.Trace)
}

func TestCalculator_RejectsBadInput(t *testing.T) {
	calc := NewCalculator(0)

	_, err := calc.Compute(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyLegs)

	leg := pricedLeg(models.ActionBuy, models.RightCall, dec("100"), dec("1"))
	leg.Quantity = 0
	_, err = calc.Compute([]models.Leg{leg})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
}

func TestSnapStrike_TieGoesToLower(t *testing.T) {
	strikes := []decimal.Decimal{dec("100"), dec("105")}

	got, ok := SnapStrike(dec("102.5"), strikes)
	require.True(t, ok)
	assert.Equal(t, "100", got.String())

	got, ok = SnapStrike(dec("103"), nil)
	assert.False(t, ok)
	assert.Equal(t, "103", got.String())
}

func TestSnapExpiration_Modes(t *testing.T) {
	got, _ := SnapExpiration("2025-02-10", []string{"2025-01-17", "2025-02-21"})
	assert.Equal(t, "2025-02-21", got)

	got, _ = SnapExpiration("12", []string{"7", "14", "30"})
	assert.Equal(t, "14", got)

	got, _ = SnapExpiration("mar", []string{"jan", "feb", "mar-w2"})
	assert.Equal(t, "mar-w2", got)
}

func TestNormalizer_CorrectsAndPrices(t *testing.T) {
	n := NewNormalizer(testChain(), testTable(), zerolog.Nop())

	leg, err := n.Normalize(models.RawLeg{
		"side":       json.RawMessage(`"short"`),
		"type":       json.RawMessage(`"P"`),
		"strike":     json.RawMessage(`"$96.10"`),
		"expiry":     json.RawMessage(`"2025-01-15"`),
		"quantity":   json.RawMessage(`"two"`),
		"irrelevant": json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ActionSell, leg.Action)
	assert.Equal(t, models.RightPut, leg.Contract.Right)
	assert.Equal(t, 1, leg.Quantity)
	assert.Equal(t, "95", leg.Contract.Strike.String())
	assert.Equal(t, "2025-01-17", leg.Contract.Expiration)
	assert.True(t, leg.Corrections.StrikeCorrected)
	assert.True(t, leg.Corrections.ExpirationCorrected)
	assert.Equal(t, "$96.10", leg.Corrections.RequestedStrike)
	require.NotNil(t, leg.Pricing)
	assert.Equal(t, "2.50", leg.Pricing.Price.StringFixed(2))
	assert.Equal(t, 30, leg.Pricing.DaysToExpiration)
}

func TestNormalizer_DefaultsUnknownActionAndRight(t *testing.T) {
	var buf bytes.Buffer
	n := NewNormalizer(testChain(), testTable(), zerolog.New(&buf))

	leg, err := n.Normalize(models.RawLeg{
		"action":     json.RawMessage(`"hold"`),
		"right":      json.RawMessage(`"straddle"`),
		"strike":     json.RawMessage(`100`),
		"expiration": json.RawMessage(`"2025-01-17"`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, leg.Action)
	assert.Equal(t, models.RightCall, leg.Contract.Right)
	require.NotNil(t, leg.Pricing)
	assert.Equal(t, "3.00", leg.Pricing.Price.StringFixed(2))

	logs := buf.String()
	assert.Contains(t, logs, `"event":"leg_defaulted"`)
	assert.Contains(t, logs, `"field":"action","requested":"hold","applied":"BUY"`)
	assert.Contains(t, logs, `"field":"right","requested":"straddle","applied":"CALL"`)
}

func TestNormalizer_RejectsMissingFields(t *testing.T) {
	n := NewNormalizer(testChain(), testTable(), zerolog.Nop())

	cases := []models.RawLeg{
		{"right": json.RawMessage(`"CALL"`), "strike": json.RawMessage(`100`), "expiration": json.RawMessage(`"2025-01-17"`)},
		{"action": json.RawMessage(`"BUY"`), "right": json.RawMessage(`"CALL"`), "expiration": json.RawMessage(`"2025-01-17"`)},
		{"action": json.RawMessage(`"BUY"`), "strike": json.RawMessage(`100`), "expiration": json.RawMessage(`"2025-01-17"`)},
		{"action": json.RawMessage(`"BUY"`), "right": json.RawMessage(`"CALL"`), "strike": json.RawMessage(`100`)},
		{"action": json.RawMessage(`["BUY"]`), "right": json.RawMessage(`"CALL"`), "strike": json.RawMessage(`100`), "expiration": json.RawMessage(`"2025-01-17"`)},
	}
	for i, raw := range cases {
		_, err := n.Normalize(raw)
		assert.ErrorIs(t, err, apperrors.ErrInputValidation, "case %d", i)
	}
}

func TestNormalizer_EmptyChainMarksUnvalidated(t *testing.T) {
	n := NewNormalizer(models.Chain{Symbol: "XYZ"}, models.PricingTable{}, zerolog.Nop())

	leg, err := n.Normalize(models.RawLeg{
		"action":     json.RawMessage(`"BUY"`),
		"right":      json.RawMessage(`"CALL"`),
		"strike":     json.RawMessage(`101.5`),
		"expiration": json.RawMessage(`"2025-01-17"`),
	})
	require.NoError(t, err)
	assert.True(t, leg.Unvalidated)
	assert.False(t, leg.Corrections.StrikeCorrected)
	assert.Equal(t, "101.5", leg.Contract.Strike.String())
	assert.Nil(t, leg.Pricing)
}

func TestEngine_AssembleBatchRecomputesFigures(t *testing.T) {
	engine := NewEngine(DefaultOptions(), zerolog.Nop())
	payload := []byte("Here you go:\n```json\n" + `{
		"strategies": [
			{
				"name": "Bull Call Spread",
				"direction": "bullish",
				"rationale": "Moderate upside",
				"max_profit": "$9,999",
				"max_loss": 1,
				"breakeven": "whatever",
				"probability": "65%",
				"legs": [
					{"action": "BUY", "right": "CALL", "strike": 100, "expiration": "2025-01-17", "quantity": 1},
					{"action": "SELL", "right": "CALL", "strike": 104, "expiration": "2025-01-17", "quantity": 1}
				]
			},
			{"name": "No Legs", "legs": []},
			"not a strategy"
		]
	}` + "\n```")

	out := engine.AssembleBatch(payload, testChain(), testTable())
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, "Bull Call Spread", s.Name)
	assert.Equal(t, models.DirectionBullish, s.Direction)
	assert.Equal(t, 65, s.Probability)
	assert.Equal(t, "180.00", s.MaxLoss.String())
	assert.Equal(t, "320.00", s.MaxProfit.String())
	assert.Equal(t, "101.80", s.Breakeven.String())
	assert.Equal(t, "1.80", s.NetCost.StringFixed(2))
	assert.False(t, s.IsCredit)
	assert.NotEmpty(t, s.Calculation)
	assert.True(t, s.Legs[1].Corrections.StrikeCorrected)
	assert.InDelta(t, 0.0, s.Greeks.Delta, 1e-9)
}

func TestEngine_DefaultsAndIrregularFigures(t *testing.T) {
	engine := NewEngine(DefaultOptions(), zerolog.Nop())
	raw := models.RawStrategy{
		"name":       json.RawMessage(`"Butterfly"`),
		"max_profit": json.RawMessage(`"$350"`),
		"legs": json.RawMessage(`[
			{"action": "BUY", "right": "CALL", "strike": 95, "expiration": "2025-01-17"},
			{"action": "SELL", "right": "CALL", "strike": 100, "expiration": "2025-01-17", "quantity": 2},
			{"action": "BUY", "right": "CALL", "strike": 105, "expiration": "2025-01-17"}
		]`),
	}

	out := engine.Assemble([]models.RawStrategy{raw}, testChain(), testTable())
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, models.DirectionNeutral, s.Direction)
	assert.Equal(t, 50, s.Probability)
	assert.Equal(t, "350.00", s.MaxProfit.String())
	assert.Equal(t, models.NotAvailable, s.MaxLoss.String())
	assert.Equal(t, models.NotAvailable, s.Breakeven.String())
	assert.Equal(t, "2.20", s.NetCost.StringFixed(2))
	assert.Empty(t, s.Calculation)
}

func TestEngine_TruncatesBeforeDropping(t *testing.T) {
	engine := NewEngine(DefaultOptions(), zerolog.Nop())
	good := rawLegJSON("BUY", "CALL", 100, "2025-01-17")

	raws := []models.RawStrategy{
		rawStrategy("A", good),
		{"legs": mustJSON([]json.RawMessage{good})},
		rawStrategy("C", good),
		rawStrategy("D", good),
		rawStrategy("E", good),
	}

	out := engine.Assemble(raws, testChain(), testTable())
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name)
	assert.Equal(t, "C", out[1].Name)
}

func TestEngine_DropsStrategyWhenAllLegsFail(t *testing.T) {
	engine := NewEngine(DefaultOptions(), zerolog.Nop())
	raw := models.RawStrategy{
		"name": json.RawMessage(`"Broken"`),
		"legs": json.RawMessage(`[{"action": "BUY"}, 42]`),
	}

	out := engine.Assemble([]models.RawStrategy{raw}, testChain(), testTable())
	assert.Empty(t, out)
}

func TestEngine_UndecodablePayload(t *testing.T) {
	engine := NewEngine(DefaultOptions(), zerolog.Nop())

	for _, payload := range []string{"", "not json", `{"ideas": []}`, `{"strategies": "none"}`, `[1, 2]`} {
		out := engine.AssembleBatch([]byte(payload), testChain(), testTable())
		assert.NotNil(t, out, payload)
		assert.Empty(t, out, payload)
	}
}

func TestDecodeBatch_PreservesPositions(t *testing.T) {
	batch, err := DecodeBatch([]byte(`{"Strategies": [{"name": "A"}, 7, null, {"name": "B"}]}`))
	require.NoError(t, err)
	require.Len(t, batch.Strategies, 4)
	assert.NotNil(t, batch.Strategies[0])
	assert.Nil(t, batch.Strategies[1])
	assert.Nil(t, batch.Strategies[2])
	assert.NotNil(t, batch.Strategies[3])

	_, err = DecodeBatch([]byte(`{"strategies": {}}`))
	var decodeErr *apperrors.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
}

func TestProbabilityField(t *testing.T) {
	cases := map[string]int{
		`65`:      65,
		`"65%"`:   65,
		`0.7`:     70,
		`150`:     100,
		`-3`:      0,
		`"72.4"`:  72,
		`"$1,00"`: 100,
	}
	for raw, want := range cases {
		got, ok := probabilityField(json.RawMessage(raw))
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := probabilityField(json.RawMessage(`"likely"`))
	assert.False(t, ok)
}

func TestNewEngine_ZeroOptionsUseDefaults(t *testing.T) {
	engine := NewEngine(Options{}, zerolog.Nop())
	assert.Equal(t, DefaultOptions(), engine.Options())

	got := engine.AssembleBatch([]byte(`{"strategies": [{
		"name": "Long Call",
		"legs": [{"action": "BUY", "right": "CALL", "strike": 100, "expiration": "2025-01-17"}]
	}]}`), testChain(), testTable())
	require.Len(t, got, 1)
	assert.Equal(t, 50, got[0].Probability)

	custom := NewEngine(Options{DefaultProbability: 70}, zerolog.Nop())
	assert.Equal(t, 70, custom.Options().DefaultProbability)
}
