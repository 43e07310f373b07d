package strategy

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"option-strategist/internal/models"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return gopter.NewProperties(parameters)
}

// strikeSet builds an ascending strike ladder from a base and step in cents.
func strikeSet(base, step, count int) []decimal.Decimal {
	strikes := make([]decimal.Decimal, count)
	for i := 0; i < count; i++ {
		strikes[i] = decimal.New(int64(base+i*step), -2)
	}
	return strikes
}

// Property: snapping a strike always lands on a chain member and snapping
// the result again returns it unchanged.
func TestProperty_SnapStrikeIdempotent(t *testing.T) {
	properties := newProperties()

	properties.Property("snap result is a member and a fixed point", prop.ForAll(
		func(base, step, count, candidate int) bool {
			strikes := strikeSet(base, step, count)
			c := decimal.New(int64(candidate), -2)

			snapped, ok := SnapStrike(c, strikes)
			if !ok {
				return false
			}
			member := false
			for _, s := range strikes {
				if s.Equal(snapped) {
					member = true
				}
			}
			again, _ := SnapStrike(snapped, strikes)
			return member && again.Equal(snapped)
		},
		gen.IntRange(1000, 50000),
		gen.IntRange(50, 1000),
		gen.IntRange(1, 30),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t)
}

// Property: no chain member is strictly closer to the candidate than the
// snapped strike, and ties resolve to the lower strike.
func TestProperty_SnapStrikeNearest(t *testing.T) {
	properties := newProperties()

	properties.Property("snapped strike minimises distance", prop.ForAll(
		func(base, step, count, candidate int) bool {
			strikes := strikeSet(base, step, count)
			c := decimal.New(int64(candidate), -2)

			snapped, _ := SnapStrike(c, strikes)
			best := snapped.Sub(c).Abs()
			for _, s := range strikes {
				d := s.Sub(c).Abs()
				if d.LessThan(best) {
					return false
				}
				if d.Equal(best) && s.LessThan(snapped) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1000, 50000),
		gen.IntRange(50, 1000),
		gen.IntRange(1, 30),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t)
}

// Property: expiration snapping is idempotent for date, integer and
// free-form identifiers.
func TestProperty_SnapExpirationIdempotent(t *testing.T) {
	properties := newProperties()
	start := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	properties.Property("date expirations", prop.ForAll(
		func(count, offset int) bool {
			exps := make([]string, count)
			for i := range exps {
				exps[i] = start.AddDate(0, 0, 7*i).Format("2006-01-02")
			}
			candidate := start.AddDate(0, 0, offset).Format("2006-01-02")
			snapped, ok := SnapExpiration(candidate, exps)
			again, _ := SnapExpiration(snapped, exps)
			return ok && again == snapped && containsString(exps, snapped)
		},
		gen.IntRange(1, 12),
		gen.IntRange(-30, 120),
	))

	properties.Property("integer expirations", prop.ForAll(
		func(count, candidate int) bool {
			exps := make([]string, count)
			for i := range exps {
				exps[i] = fmt.Sprintf("%d", 7*(i+1))
			}
			snapped, ok := SnapExpiration(fmt.Sprintf("%d", candidate), exps)
			again, _ := SnapExpiration(snapped, exps)
			return ok && again == snapped && containsString(exps, snapped)
		},
		gen.IntRange(1, 12),
		gen.IntRange(0, 120),
	))

	properties.Property("free-form expirations", prop.ForAll(
		func(candidate string) bool {
			exps := []string{"front", "mid", "back", "leap"}
			snapped, ok := SnapExpiration(candidate, exps)
			again, _ := SnapExpiration(snapped, exps)
			return ok && again == snapped && containsString(exps, snapped)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property: every leg that survives normalization has a positive quantity, a
// known action and right, and a contract drawn from the chain.
func TestProperty_NormalizedLegInvariant(t *testing.T) {
	properties := newProperties()
	chain := models.NewChain("SPY",
		strikeSet(9000, 500, 10),
		[]string{"2025-01-17", "2025-02-21", "2025-03-21"})
	normalizer := NewNormalizer(chain, models.PricingTable{}, zerolog.Nop())

	properties.Property("normalized legs stay on the chain", prop.ForAll(
		func(action, right, expiration string, strike float64, qty int) bool {
			raw := models.RawLeg{
				"action":     mustJSON(action),
				"right":      mustJSON(right),
				"strike":     mustJSON(strike),
				"expiration": mustJSON(expiration),
				"quantity":   mustJSON(qty),
			}
			leg, err := normalizer.Normalize(raw)
			if err != nil {
				// Only blank text may be rejected.
				return action == "" || right == "" || expiration == ""
			}
			if leg.Quantity < 1 {
				return false
			}
			if leg.Action != models.ActionBuy && leg.Action != models.ActionSell {
				return false
			}
			if leg.Contract.Right != models.RightCall && leg.Contract.Right != models.RightPut {
				return false
			}
			return chain.HasStrike(leg.Contract.Strike) && chain.HasExpiration(leg.Contract.Expiration)
		},
		gen.OneConstOf("buy", "SELL", "long", "short", "hold", "", "sto"),
		gen.OneConstOf("call", "PUT", "c", "p", "straddle", ""),
		gen.OneConstOf("2025-01-17", "2025-02-14", "2025-12-19", "weekly", "20250301", ""),
		gen.Float64Range(-50, 500),
		gen.IntRange(-5, 20),
	))

	properties.TestingRun(t)
}

// Property: for a priced vertical the risk and reward always add up to the
// spread width times the multiplier, and exactly one of them is the premium.
func TestProperty_VerticalRiskRewardSum(t *testing.T) {
	properties := newProperties()
	calc := NewCalculator(DefaultContractMultiplier)

	properties.Property("risk plus reward equals width times multiplier", prop.ForAll(
		func(lowCents, widthSteps, p1, p2 int, firstBuy bool) bool {
			low := decimal.New(int64(lowCents), -2)
			high := low.Add(decimal.NewFromInt(int64(widthSteps)))
			a1, a2 := models.ActionBuy, models.ActionSell
			if !firstBuy {
				a1, a2 = a2, a1
			}
			legs := []models.Leg{
				pricedLeg(a1, models.RightCall, low, decimal.New(int64(p1), -2)),
				pricedLeg(a2, models.RightCall, high, decimal.New(int64(p2), -2)),
			}
			p, err := calc.Compute(legs)
			if err != nil || p.Shape != ShapeVertical {
				return false
			}
			span := high.Sub(low).Mul(decimal.NewFromInt(DefaultContractMultiplier))
			if !p.MaxRisk.Value.Add(p.MaxReward.Value).Equal(span) {
				return false
			}
			if p.IsCredit {
				return p.MaxReward.Value.Equal(p.Premium)
			}
			return p.MaxRisk.Value.Equal(p.Premium)
		},
		gen.IntRange(1000, 50000),
		gen.IntRange(1, 20),
		gen.IntRange(0, 2000),
		gen.IntRange(0, 2000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property: a batch never yields more strategies than the configured limit,
// and output order follows input order.
func TestProperty_BatchLimit(t *testing.T) {
	properties := newProperties()
	chain := models.NewChain("SPY", strikeSet(10000, 500, 5), []string{"2025-01-17"})

	properties.Property("output is bounded and ordered", prop.ForAll(
		func(count, limit int) bool {
			engine := NewEngine(Options{MaxStrategies: limit}, zerolog.Nop())
			raws := make([]models.RawStrategy, count)
			for i := range raws {
				raws[i] = rawStrategy(fmt.Sprintf("S%d", i), rawLegJSON("BUY", "CALL", 100, "2025-01-17"))
			}
			out := engine.Assemble(raws, chain, models.PricingTable{})
			if len(out) > limit {
				return false
			}
			for i, s := range out {
				if s.Name != fmt.Sprintf("S%d", i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 10),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func pricedLeg(action models.Action, right models.Right, strike, price decimal.Decimal) models.Leg {
	return models.Leg{
		Action:   action,
		Quantity: 1,
		Contract: models.Contract{Strike: strike, Right: right, Expiration: "2025-01-17"},
		Pricing:  &models.LegPricing{OptionQuote: models.OptionQuote{Price: price}},
	}
}

func rawLegJSON(action, right string, strike float64, expiration string) json.RawMessage {
	return mustJSON(map[string]interface{}{
		"action":     action,
		"right":      right,
		"strike":     strike,
		"expiration": expiration,
		"quantity":   1,
	})
}

func rawStrategy(name string, legs ...json.RawMessage) models.RawStrategy {
	list := make([]json.RawMessage, len(legs))
	copy(list, legs)
	return models.RawStrategy{
		"name": mustJSON(name),
		"legs": mustJSON(list),
	}
}
