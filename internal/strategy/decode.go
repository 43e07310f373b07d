package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

// DecodeBatch parses a generator payload of the form {"strategies": [...]}.
// The payload may be wrapped in markdown fences or surrounding prose; the
// outermost JSON object is used in that case. Elements of the strategies
// array that are not objects decode to nil entries so candidate positions
// are preserved.
func DecodeBatch(payload []byte) (models.RawBatch, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return models.RawBatch{}, apperrors.NewDecodeError("batch", payload, fmt.Errorf("%w: empty payload", apperrors.ErrDecodeFailed))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		extracted, ok := extractObject(trimmed)
		if !ok {
			return models.RawBatch{}, apperrors.NewDecodeError("batch", payload, fmt.Errorf("%w: %v", apperrors.ErrDecodeFailed, err))
		}
		if err := json.Unmarshal(extracted, &top); err != nil {
			return models.RawBatch{}, apperrors.NewDecodeError("batch", payload, fmt.Errorf("%w: %v", apperrors.ErrDecodeFailed, err))
		}
	}

	rawList, ok := models.RawStrategy(top).Get("strategies")
	if !ok {
		return models.RawBatch{}, apperrors.NewDecodeError("batch", payload, fmt.Errorf("%w: missing strategies key", apperrors.ErrDecodeFailed))
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(rawList, &elements); err != nil {
		return models.RawBatch{}, apperrors.NewDecodeError("batch", payload, fmt.Errorf("%w: strategies is not a list", apperrors.ErrDecodeFailed))
	}

	batch := models.RawBatch{Strategies: make([]models.RawStrategy, len(elements))}
	for i, el := range elements {
		var s models.RawStrategy
		if err := json.Unmarshal(el, &s); err == nil {
			batch.Strategies[i] = s
		}
	}
	return batch, nil
}

// decodeLegs splits a raw legs value into objects. Non-object elements
// decode to nil entries. ok is false when the value is not a list.
func decodeLegs(raw json.RawMessage) ([]models.RawLeg, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil || elements == nil {
		return nil, false
	}
	legs := make([]models.RawLeg, len(elements))
	for i, el := range elements {
		var l models.RawLeg
		if err := json.Unmarshal(el, &l); err == nil {
			legs[i] = l
		}
	}
	return legs, true
}

// extractObject returns the span between the first '{' and the last '}'.
func extractObject(payload []byte) ([]byte, bool) {
	start := bytes.IndexByte(payload, '{')
	end := bytes.LastIndexByte(payload, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return payload[start : end+1], true
}
