package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"option-strategist/internal/models"
)

// FormatUSD formats an amount as dollars with thousands separators.
func FormatUSD(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	str := amount.Abs().StringFixed(2)
	parts := strings.SplitN(str, ".", 2)

	result := "$" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	head := n % 3
	var b strings.Builder
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSignedUSD formats an amount with an explicit sign.
func FormatSignedUSD(amount decimal.Decimal) string {
	formatted := FormatUSD(amount)
	if amount.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatStrike formats a strike without trailing zeros.
func FormatStrike(strike decimal.Decimal) string {
	return strike.String()
}

// FormatPrice formats an option premium.
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}

// FormatLeg formats a leg as "BUY 1 2025-01-17 100 CALL".
func FormatLeg(leg models.Leg) string {
	return fmt.Sprintf("%s %d %s %s %s",
		leg.Action, leg.Quantity, leg.Contract.Expiration, FormatStrike(leg.Contract.Strike), leg.Contract.Right)
}

// FormatProbability formats a probability of profit.
func FormatProbability(p int) string {
	return fmt.Sprintf("%d%%", p)
}

// FormatGreeks formats aggregate position Greeks.
func FormatGreeks(g models.Greeks) string {
	return fmt.Sprintf("Δ: %.4f  Θ: %.4f  ν: %.4f", g.Delta, g.Theta, g.Vega)
}

// FormatDelta formats a per-contract delta.
func FormatDelta(delta float64) string {
	return fmt.Sprintf("%.3f", delta)
}

// FormatDateTime formats a journal timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
