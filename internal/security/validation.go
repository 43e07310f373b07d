// Package security provides input validation and credential masking.
package security

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "option-strategist/internal/errors"
)

// symbolPattern allows uppercase letters, numbers, and limited special chars.
var symbolPattern = regexp.MustCompile(`^[A-Z0-9&.^-]{1,20}$`)

// SanitizeSymbol normalizes a symbol to uppercase and strips characters
// that cannot appear in a ticker.
func SanitizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	var result strings.Builder
	for _, r := range symbol {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '-' || r == '.' || r == '^' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ValidateSymbol sanitizes a symbol and checks its format.
func ValidateSymbol(symbol string) (string, error) {
	clean := SanitizeSymbol(symbol)

	if clean == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if len(clean) > 20 {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol too long (max 20 characters)")
	}
	if !symbolPattern.MatchString(clean) {
		return "", apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}

	return clean, nil
}

// MaskCredential masks a credential value for display.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
