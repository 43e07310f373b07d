package strategy

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"option-strategist/internal/models"
)

// FieldState describes the outcome of parsing one raw field.
type FieldState int

const (
	// FieldMissing means the key was absent, null or an empty string.
	FieldMissing FieldState = iota
	// FieldMalformed means the value was an object or array.
	FieldMalformed
	// FieldUnrecognized means a scalar that could not be reduced; Value
	// holds the lenient default.
	FieldUnrecognized
	// FieldOK means the value parsed cleanly.
	FieldOK
)

func (s FieldState) String() string {
	switch s {
	case FieldMissing:
		return "missing"
	case FieldMalformed:
		return "malformed"
	case FieldUnrecognized:
		return "unrecognized"
	case FieldOK:
		return "ok"
	}
	return "unknown"
}

// Field is the parse result of one raw field. Raw keeps the original text
// for audit logging.
type Field[T any] struct {
	Value T
	State FieldState
	Raw   string
}

// Present returns true unless the field was missing.
func (f Field[T]) Present() bool {
	return f.State != FieldMissing
}

// ParsedLeg holds the per-field parse results of a raw leg.
type ParsedLeg struct {
	Action     Field[models.Action]
	Right      Field[models.Right]
	Strike     Field[decimal.Decimal]
	Expiration Field[string]
	Quantity   Field[int]
}

// ParseLeg parses every field of a raw leg without applying any policy
// beyond the per-field defaults.
func ParseLeg(raw models.RawLeg) ParsedLeg {
	return ParsedLeg{
		Action:     parseAction(lookup(raw, "action", "side")),
		Right:      parseRight(lookup(raw, "right", "type", "option_type")),
		Strike:     parseStrike(lookup(raw, "strike")),
		Expiration: parseExpiration(lookup(raw, "expiration", "expiry")),
		Quantity:   parseQuantity(lookup(raw, "quantity", "qty")),
	}
}

// lookup returns the first key present, trying aliases in order.
func lookup(raw models.RawLeg, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := raw.Get(k); ok {
			return v
		}
	}
	return nil
}

// scalarText converts a raw JSON value into text. Strings are unquoted,
// numbers and booleans keep their literal form.
func scalarText(raw json.RawMessage) (string, FieldState) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", FieldMissing
	}

	switch raw[0] {
	case '{', '[':
		return string(raw), FieldMalformed
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw), FieldMalformed
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", FieldMissing
		}
		return s, FieldOK
	}
	return string(raw), FieldOK
}

func parseAction(raw json.RawMessage) Field[models.Action] {
	text, state := scalarText(raw)
	if state != FieldOK {
		return Field[models.Action]{Value: models.ActionBuy, State: state, Raw: text}
	}
	action, ok := models.ParseAction(text)
	if !ok {
		return Field[models.Action]{Value: models.ActionBuy, State: FieldUnrecognized, Raw: text}
	}
	return Field[models.Action]{Value: action, State: FieldOK, Raw: text}
}

func parseRight(raw json.RawMessage) Field[models.Right] {
	text, state := scalarText(raw)
	if state != FieldOK {
		return Field[models.Right]{Value: models.RightCall, State: state, Raw: text}
	}
	right, ok := models.ParseRight(text)
	if !ok {
		return Field[models.Right]{Value: models.RightCall, State: FieldUnrecognized, Raw: text}
	}
	return Field[models.Right]{Value: right, State: FieldOK, Raw: text}
}

// parseStrike never reports FieldMalformed: anything present that is not a
// number becomes zero so it still snaps onto the chain.
func parseStrike(raw json.RawMessage) Field[decimal.Decimal] {
	text, state := scalarText(raw)
	if state == FieldMissing {
		return Field[decimal.Decimal]{Value: decimal.Zero, State: FieldMissing}
	}
	if state == FieldOK {
		if d, ok := parseNumber(text); ok {
			return Field[decimal.Decimal]{Value: d, State: FieldOK, Raw: text}
		}
	}
	return Field[decimal.Decimal]{Value: decimal.Zero, State: FieldUnrecognized, Raw: text}
}

func parseExpiration(raw json.RawMessage) Field[string] {
	text, state := scalarText(raw)
	return Field[string]{Value: text, State: state, Raw: text}
}

func parseQuantity(raw json.RawMessage) Field[int] {
	text, state := scalarText(raw)
	if state == FieldMissing {
		return Field[int]{Value: 1, State: FieldMissing}
	}
	if state == FieldOK {
		if d, ok := parseNumber(text); ok && d.IsInteger() && d.GreaterThanOrEqual(decimal.NewFromInt(1)) && d.LessThanOrEqual(decimal.NewFromInt(1_000_000)) {
			return Field[int]{Value: int(d.IntPart()), State: FieldOK, Raw: text}
		}
	}
	return Field[int]{Value: 1, State: FieldUnrecognized, Raw: text}
}

// parseNumber accepts plain numbers and money-formatted text like "$1,250.50".
func parseNumber(text string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
