package strategy

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

// DefaultContractMultiplier is the number of shares per option contract.
const DefaultContractMultiplier = 100

// Shape classifies a strategy for payoff recomputation.
type Shape string

const (
	// ShapeVertical is two legs of quantity one each.
	ShapeVertical Shape = "VERTICAL"
	// ShapeSingle is a single leg.
	ShapeSingle Shape = "SINGLE"
	// ShapeIrregular is anything else; no figures are recomputed.
	ShapeIrregular Shape = "IRREGULAR"
)

// Payoff holds the recomputed figures of a strategy. MaxRisk, MaxReward and
// Breakeven are nil when the shape does not define them.
type Payoff struct {
	Shape     Shape
	NetCost   decimal.Decimal
	IsCredit  bool
	Premium   decimal.Decimal
	MaxRisk   *models.Figure
	MaxReward *models.Figure
	Breakeven *models.Figure
	Trace     string
}

// Calculator recomputes strategy payoffs from leg pricing.
type Calculator struct {
	multiplier decimal.Decimal
}

// NewCalculator creates a calculator. A non-positive multiplier falls back
// to DefaultContractMultiplier.
func NewCalculator(multiplier int64) *Calculator {
	if multiplier <= 0 {
		multiplier = DefaultContractMultiplier
	}
	return &Calculator{multiplier: decimal.NewFromInt(multiplier)}
}

// Compute derives net cost, premium, max risk, max reward and breakeven.
// Legs without pricing contribute a price of zero.
func (c *Calculator) Compute(legs []models.Leg) (Payoff, error) {
	if len(legs) == 0 {
		return Payoff{}, apperrors.ErrEmptyLegs
	}
	for i, l := range legs {
		if l.Quantity < 1 {
			return Payoff{}, fmt.Errorf("%w: leg %d has quantity %d", apperrors.ErrInvalidQuantity, i+1, l.Quantity)
		}
	}

	var trace strings.Builder
	p := Payoff{Shape: classify(legs)}

	net := decimal.Zero
	terms := make([]string, 0, len(legs))
	for _, l := range legs {
		qty := decimal.NewFromInt(int64(l.Quantity))
		net = net.Add(l.Price().Mul(qty).Mul(decimal.NewFromInt(l.Action.Sign())))
		terms = append(terms, fmt.Sprintf("%s %s x%d (%s %s %s)",
			signSymbol(l.Action), l.Price().StringFixed(2), l.Quantity,
			l.Action, l.Contract.Right, l.Contract.Strike))
	}
	p.NetCost = net.Round(2)
	p.IsCredit = p.NetCost.IsNegative()
	absNet := p.NetCost.Abs()
	p.Premium = absNet.Mul(c.multiplier).Round(2)

	fmt.Fprintf(&trace, "Net cost: %s = %s (%s)\n", strings.Join(terms, " "), p.NetCost.StringFixed(2), creditLabel(p.IsCredit))
	fmt.Fprintf(&trace, "Premium: |%s| x %s = %s\n", p.NetCost.StringFixed(2), c.multiplier, p.Premium.StringFixed(2))

	switch p.Shape {
	case ShapeVertical:
		c.vertical(&p, legs, absNet, &trace)
	case ShapeSingle:
		c.single(&p, legs[0], &trace)
	default:
		return p, nil
	}

	p.Trace = strings.TrimRight(trace.String(), "\n")
	return p, nil
}

func classify(legs []models.Leg) Shape {
	switch {
	case len(legs) == 2 && legs[0].Quantity == 1 && legs[1].Quantity == 1:
		return ShapeVertical
	case len(legs) == 1:
		return ShapeSingle
	}
	return ShapeIrregular
}

// vertical applies the two-leg rules. The breakeven uses the lower strike
// plus |net cost| for calls and the higher strike minus |net cost| for puts,
// for debits and credits alike; the first leg's right picks the rule.
func (c *Calculator) vertical(p *Payoff, legs []models.Leg, absNet decimal.Decimal, trace *strings.Builder) {
	s1, s2 := legs[0].Contract.Strike, legs[1].Contract.Strike
	width := s1.Sub(s2).Abs()
	span := width.Mul(c.multiplier)
	fmt.Fprintf(trace, "Width: |%s - %s| = %s\n", s1, s2, width)

	var risk, reward decimal.Decimal
	if p.IsCredit {
		reward = p.Premium
		risk = span.Sub(p.Premium).Round(2)
		fmt.Fprintf(trace, "Max reward: premium = %s\n", reward.StringFixed(2))
		fmt.Fprintf(trace, "Max risk: %s x %s - %s = %s\n", width, c.multiplier, p.Premium.StringFixed(2), risk.StringFixed(2))
	} else {
		risk = p.Premium
		reward = span.Sub(p.Premium).Round(2)
		fmt.Fprintf(trace, "Max risk: premium = %s\n", risk.StringFixed(2))
		fmt.Fprintf(trace, "Max reward: %s x %s - %s = %s\n", width, c.multiplier, p.Premium.StringFixed(2), reward.StringFixed(2))
	}

	var breakeven decimal.Decimal
	if legs[0].Contract.Right == models.RightPut {
		ref := decimal.Max(s1, s2)
		breakeven = ref.Sub(absNet).Round(2)
		fmt.Fprintf(trace, "Breakeven: higher put strike %s - %s = %s\n", ref, absNet.StringFixed(2), breakeven.StringFixed(2))
	} else {
		ref := decimal.Min(s1, s2)
		breakeven = ref.Add(absNet).Round(2)
		fmt.Fprintf(trace, "Breakeven: lower call strike %s + %s = %s\n", ref, absNet.StringFixed(2), breakeven.StringFixed(2))
	}

	p.MaxRisk = figure(models.Amount(risk))
	p.MaxReward = figure(models.Amount(reward))
	p.Breakeven = figure(models.Amount(breakeven))
}

// single applies the one-leg rules. The breakeven moves the strike by the
// premium divided by the contract multiplier.
func (c *Calculator) single(p *Payoff, leg models.Leg, trace *strings.Builder) {
	if leg.Action == models.ActionBuy {
		p.MaxRisk = figure(models.Amount(p.Premium))
		fmt.Fprintf(trace, "Max loss: premium = %s\n", p.Premium.StringFixed(2))
	} else {
		p.MaxRisk = figure(models.Sentinel(models.Unlimited))
		fmt.Fprintf(trace, "Max loss: %s (short option)\n", models.Unlimited)
	}

	perShare := p.Premium.Div(c.multiplier).Round(2)
	strike := leg.Contract.Strike

	var breakeven decimal.Decimal
	if leg.Contract.Right == models.RightPut {
		breakeven = strike.Sub(perShare)
		fmt.Fprintf(trace, "Breakeven: put strike %s - %s / %s = %s\n", strike, p.Premium.StringFixed(2), c.multiplier, breakeven.StringFixed(2))
	} else {
		breakeven = strike.Add(perShare)
		fmt.Fprintf(trace, "Breakeven: call strike %s + %s / %s = %s\n", strike, p.Premium.StringFixed(2), c.multiplier, breakeven.StringFixed(2))
	}
	p.Breakeven = figure(models.Amount(breakeven))
}

func figure(f models.Figure) *models.Figure {
	return &f
}

func signSymbol(a models.Action) string {
	if a == models.ActionSell {
		return "-"
	}
	return "+"
}

func creditLabel(isCredit bool) string {
	if isCredit {
		return "credit"
	}
	return "debit"
}
