// Package models provides domain models for option strategy validation.
package models

import "strings"

// Action represents the side of an option leg.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL.
func (a Action) Sign() int64 {
	if a == ActionSell {
		return -1
	}
	return 1
}

// Right represents the option right of a contract.
type Right string

const (
	RightCall Right = "CALL"
	RightPut  Right = "PUT"
)

// Direction represents the market view of a strategy.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNeutral Direction = "NEUTRAL"
)

// ParseAction reduces free text to a known action.
// The second return value is false when the text is not recognised.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "long", "bto", "buy to open":
		return ActionBuy, true
	case "sell", "s", "short", "write", "sto", "sell to open":
		return ActionSell, true
	}
	return ActionBuy, false
}

// ParseRight reduces free text to a known option right.
func ParseRight(s string) (Right, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "ce", "calls":
		return RightCall, true
	case "put", "p", "pe", "puts":
		return RightPut, true
	}
	return RightCall, false
}

// ParseDirection reduces free text to a known direction.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "long", "up":
		return DirectionBullish, true
	case "bearish", "bear", "short", "down":
		return DirectionBearish, true
	case "neutral", "sideways", "flat", "range", "rangebound":
		return DirectionNeutral, true
	}
	return DirectionNeutral, false
}
