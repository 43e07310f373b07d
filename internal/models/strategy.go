package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Figure sentinels.
const (
	NotAvailable = "N/A"
	Unlimited    = "Unlimited"
)

// Figure is a money amount or a sentinel such as "N/A" or "Unlimited".
// It marshals as a JSON number when numeric and as a string otherwise.
type Figure struct {
	Value    decimal.Decimal
	Sentinel string
}

// Amount returns a numeric figure.
func Amount(d decimal.Decimal) Figure {
	return Figure{Value: d}
}

// Sentinel returns a non-numeric figure. An empty text becomes "N/A".
func Sentinel(text string) Figure {
	text = strings.TrimSpace(text)
	if text == "" {
		text = NotAvailable
	}
	return Figure{Sentinel: text}
}

// ParseFigure reads an externally supplied amount such as "320", "$1,250.50"
// or "Unlimited". Unparsable text is kept verbatim as a sentinel.
func ParseFigure(text string) Figure {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if d, err := decimal.NewFromString(strings.TrimSpace(cleaned)); err == nil {
		return Amount(d)
	}
	return Sentinel(text)
}

// IsNumeric returns true if the figure holds an amount.
func (f Figure) IsNumeric() bool {
	return f.Sentinel == ""
}

// String formats amounts with two decimals.
func (f Figure) String() string {
	if f.IsNumeric() {
		return f.Value.StringFixed(2)
	}
	return f.Sentinel
}

// MarshalJSON implements json.Marshaler.
func (f Figure) MarshalJSON() ([]byte, error) {
	if f.IsNumeric() {
		return []byte(f.Value.StringFixed(2)), nil
	}
	return json.Marshal(f.Sentinel)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = Sentinel(NotAvailable)
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = ParseFigure(s)
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	*f = Amount(d)
	return nil
}

// Contract identifies one tradable option.
type Contract struct {
	Strike     decimal.Decimal `json:"strike"`
	Right      Right           `json:"right"`
	Expiration string          `json:"expiration"`
}

// LegPricing is the pricing table side attached to a leg.
type LegPricing struct {
	OptionQuote
	DaysToExpiration int `json:"days_to_expiration"`
}

// Corrections records which contract fields were snapped onto the chain.
type Corrections struct {
	StrikeCorrected     bool   `json:"strike_corrected"`
	ExpirationCorrected bool   `json:"expiration_corrected"`
	RequestedStrike     string `json:"requested_strike,omitempty"`
	RequestedExpiration string `json:"requested_expiration,omitempty"`
}

// Leg is a normalized option leg.
type Leg struct {
	Action      Action      `json:"action"`
	Quantity    int         `json:"quantity"`
	Contract    Contract    `json:"contract"`
	Pricing     *LegPricing `json:"pricing,omitempty"`
	Corrections Corrections `json:"correction_flags"`
	// Unvalidated is set when the chain had no strikes or expirations to
	// snap against.
	Unvalidated bool `json:"unvalidated,omitempty"`
}

// Price returns the leg's per-share price, zero when unpriced.
func (l Leg) Price() decimal.Decimal {
	if l.Pricing == nil {
		return decimal.Zero
	}
	return l.Pricing.Price
}

// Greeks holds aggregate position sensitivities.
type Greeks struct {
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// PositionGreeks sums sign * quantity * greek over priced legs.
func PositionGreeks(legs []Leg) Greeks {
	var g Greeks
	for _, l := range legs {
		if l.Pricing == nil {
			continue
		}
		w := float64(l.Action.Sign() * int64(l.Quantity))
		g.Delta += w * l.Pricing.Delta
		g.Theta += w * l.Pricing.Theta
		g.Vega += w * l.Pricing.Vega
	}
	return g
}

// Strategy is a validated, priced multi-leg option strategy.
type Strategy struct {
	Name        string          `json:"name"`
	Direction   Direction       `json:"direction"`
	Legs        []Leg           `json:"legs"`
	Rationale   string          `json:"rationale"`
	MaxProfit   Figure          `json:"max_profit"`
	MaxLoss     Figure          `json:"max_loss"`
	Breakeven   Figure          `json:"breakeven"`
	Probability int             `json:"probability"`
	NetCost     decimal.Decimal `json:"net_cost"`
	IsCredit    bool            `json:"is_credit"`
	Greeks      Greeks          `json:"greeks"`
	Calculation string          `json:"calculation,omitempty"`
}

// RawLeg is one leg as produced by the generator, values still undecoded.
type RawLeg map[string]json.RawMessage

// RawStrategy is one strategy candidate as produced by the generator.
type RawStrategy map[string]json.RawMessage

// RawBatch is the top-level generator payload.
type RawBatch struct {
	Strategies []RawStrategy `json:"strategies"`
}

// Get returns the raw value for key, matching keys case-insensitively.
func (r RawLeg) Get(key string) (json.RawMessage, bool) {
	return lookupRaw(r, key)
}

// Get returns the raw value for key, matching keys case-insensitively.
func (r RawStrategy) Get(key string) (json.RawMessage, bool) {
	return lookupRaw(r, key)
}

func lookupRaw(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
