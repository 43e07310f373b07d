// Package strategy validates and prices generated option strategies.
//
// Candidate legs are snapped onto a known option chain, priced from a
// precomputed pricing table, and the payoff figures of each strategy are
// recomputed instead of trusting the generator's arithmetic. All functions
// are synchronous and never mutate their chain or table inputs.
package strategy

import (
	"math/big"

	"github.com/shopspring/decimal"

	"option-strategist/internal/models"
)

// Snap returns the member of set nearest to candidate under distance.
// Ties resolve to the earliest member in set order, so ascending sets resolve
// ties to the lower value. With an empty set the candidate is returned
// unchanged and ok is false.
func Snap[T any](candidate T, set []T, distance func(member, candidate T) decimal.Decimal) (nearest T, ok bool) {
	if len(set) == 0 {
		return candidate, false
	}

	nearest = set[0]
	best := distance(set[0], candidate)
	for _, member := range set[1:] {
		if d := distance(member, candidate); d.LessThan(best) {
			best = d
			nearest = member
		}
	}
	return nearest, true
}

// SnapStrike returns the strike nearest to candidate.
func SnapStrike(candidate decimal.Decimal, strikes []decimal.Decimal) (decimal.Decimal, bool) {
	return Snap(candidate, strikes, func(member, c decimal.Decimal) decimal.Decimal {
		return member.Sub(c).Abs()
	})
}

// SnapExpiration returns the expiration nearest to candidate. Distance is
// measured in days when every value is a date, as integers when every value
// is an integer, and lexically otherwise.
func SnapExpiration(candidate string, expirations []string) (string, bool) {
	for _, e := range expirations {
		if e == candidate {
			return e, true
		}
	}
	return Snap(candidate, expirations, expirationDistance(candidate, expirations))
}

func expirationDistance(candidate string, set []string) func(a, b string) decimal.Decimal {
	if allParse(candidate, set, models.ExpirationDay) {
		return integerDistance(models.ExpirationDay)
	}
	if allParse(candidate, set, models.ExpirationInt) {
		return integerDistance(models.ExpirationInt)
	}
	width := len(candidate)
	for _, s := range set {
		width = max(width, len(s))
	}
	return lexicalDistance(width)
}

func allParse(candidate string, set []string, parse func(string) (int64, bool)) bool {
	if _, ok := parse(candidate); !ok {
		return false
	}
	for _, s := range set {
		if _, ok := parse(s); !ok {
			return false
		}
	}
	return true
}

func integerDistance(parse func(string) (int64, bool)) func(a, b string) decimal.Decimal {
	return func(a, b string) decimal.Decimal {
		x, _ := parse(a)
		y, _ := parse(b)
		return decimal.NewFromInt(x).Sub(decimal.NewFromInt(y)).Abs()
	}
}

// lexicalDistance pads strings with NUL bytes to width and measures the
// absolute difference of their base-256 values, which orders the same way
// as byte-wise string comparison. width must cover every compared value.
func lexicalDistance(width int) func(a, b string) decimal.Decimal {
	return func(a, b string) decimal.Decimal {
		x := new(big.Int).SetBytes(padded(a, width))
		y := new(big.Int).SetBytes(padded(b, width))
		diff := new(big.Int).Sub(x, y)
		return decimal.NewFromBigInt(diff.Abs(diff), 0)
	}
}

func padded(s string, n int) []byte {
	buf := make([]byte, n)
	copy(buf, s)
	return buf
}
