package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// expirationLayouts lists the date formats accepted as expiration identifiers.
var expirationLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"Jan 2 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"2-Jan-2006",
}

// ParseExpiration parses an expiration identifier as a calendar date.
func ParseExpiration(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range expirationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExpirationDay returns the expiration as whole days since the Unix epoch.
func ExpirationDay(s string) (int64, bool) {
	t, ok := ParseExpiration(s)
	if !ok {
		return 0, false
	}
	return t.Unix() / 86400, true
}

// ExpirationInt parses an expiration identifier as a plain integer.
func ExpirationInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Chain is the set of tradable strikes and expirations for an underlying.
// Both slices are kept in ascending order without duplicates.
type Chain struct {
	Symbol      string            `json:"symbol"`
	Strikes     []decimal.Decimal `json:"strikes"`
	Expirations []string          `json:"expirations"`
}

// NewChain creates a chain with sorted, de-duplicated strikes and expirations.
func NewChain(symbol string, strikes []decimal.Decimal, expirations []string) Chain {
	return Chain{
		Symbol:      symbol,
		Strikes:     sortStrikes(strikes),
		Expirations: SortExpirations(expirations),
	}
}

// IsEmpty returns true if the chain has neither strikes nor expirations.
func (c Chain) IsEmpty() bool {
	return len(c.Strikes) == 0 && len(c.Expirations) == 0
}

// HasStrike reports whether strike is listed in the chain.
func (c Chain) HasStrike(strike decimal.Decimal) bool {
	for _, s := range c.Strikes {
		if s.Equal(strike) {
			return true
		}
	}
	return false
}

// HasExpiration reports whether expiration is listed in the chain.
func (c Chain) HasExpiration(expiration string) bool {
	for _, e := range c.Expirations {
		if e == expiration {
			return true
		}
	}
	return false
}

func sortStrikes(strikes []decimal.Decimal) []decimal.Decimal {
	seen := make(map[string]bool, len(strikes))
	out := make([]decimal.Decimal, 0, len(strikes))
	for _, s := range strikes {
		key := s.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// SortExpirations de-duplicates and sorts expirations ascending. Dates sort
// chronologically when every identifier parses as a date, integers
// numerically when every identifier is an integer, anything else lexically.
func SortExpirations(expirations []string) []string {
	seen := make(map[string]bool, len(expirations))
	out := make([]string, 0, len(expirations))
	for _, e := range expirations {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}

	if key, ok := orderKeys(out, ExpirationDay); ok {
		sort.SliceStable(out, func(i, j int) bool { return key[out[i]] < key[out[j]] })
		return out
	}
	if key, ok := orderKeys(out, ExpirationInt); ok {
		sort.SliceStable(out, func(i, j int) bool { return key[out[i]] < key[out[j]] })
		return out
	}
	sort.Strings(out)
	return out
}

func orderKeys(values []string, parse func(string) (int64, bool)) (map[string]int64, bool) {
	keys := make(map[string]int64, len(values))
	for _, v := range values {
		n, ok := parse(v)
		if !ok {
			return nil, false
		}
		keys[v] = n
	}
	return keys, true
}

// OptionQuote holds the theoretical price and sensitivities of one contract.
type OptionQuote struct {
	Price decimal.Decimal `json:"price"`
	Delta float64         `json:"delta"`
	Theta float64         `json:"theta"`
	Vega  float64         `json:"vega"`
}

// PricingRow is one precomputed (strike, expiration) row of the pricing table.
type PricingRow struct {
	Strike           decimal.Decimal `json:"strike"`
	Expiration       string          `json:"expiration"`
	DaysToExpiration int             `json:"days_to_expiration"`
	Call             OptionQuote     `json:"call"`
	Put              OptionQuote     `json:"put"`
}

// Quote returns the call or put side of the row.
func (r PricingRow) Quote(right Right) OptionQuote {
	if right == RightPut {
		return r.Put
	}
	return r.Call
}

// PricingKey is the composite key of the pricing table.
// Strike holds the canonical decimal string so 100, 100.0 and 100.00 match.
type PricingKey struct {
	Strike     string
	Expiration string
}

// KeyFor builds the pricing key for a strike and expiration.
func KeyFor(strike decimal.Decimal, expiration string) PricingKey {
	return PricingKey{Strike: strike.String(), Expiration: expiration}
}

// PricingTable maps (strike, expiration) to exactly one row.
type PricingTable map[PricingKey]PricingRow

// NewPricingTable indexes rows by key. A later row replaces an earlier one
// with the same key.
func NewPricingTable(rows []PricingRow) PricingTable {
	table := make(PricingTable, len(rows))
	for _, r := range rows {
		table[KeyFor(r.Strike, r.Expiration)] = r
	}
	return table
}

// Lookup returns the row for strike and expiration.
func (t PricingTable) Lookup(strike decimal.Decimal, expiration string) (PricingRow, bool) {
	row, ok := t[KeyFor(strike, expiration)]
	return row, ok
}

// Rows returns all rows ordered by expiration then strike.
func (t PricingTable) Rows() []PricingRow {
	rows := make([]PricingRow, 0, len(t))
	expirations := make([]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, r)
		expirations = append(expirations, r.Expiration)
	}
	order := make(map[string]int)
	for i, e := range SortExpirations(expirations) {
		order[e] = i
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Expiration != rows[j].Expiration {
			return order[rows[i].Expiration] < order[rows[j].Expiration]
		}
		return rows[i].Strike.LessThan(rows[j].Strike)
	})
	return rows
}

// ChainFromTable derives a chain from the distinct keys of a pricing table.
func ChainFromTable(symbol string, table PricingTable) Chain {
	strikes := make([]decimal.Decimal, 0, len(table))
	expirations := make([]string, 0, len(table))
	for _, r := range table {
		strikes = append(strikes, r.Strike)
		expirations = append(expirations, r.Expiration)
	}
	return NewChain(symbol, strikes, expirations)
}
