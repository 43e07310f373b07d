// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"option-strategist/internal/models"
)

// ChainProvider supplies the tradable strikes and expirations of a symbol.
type ChainProvider interface {
	GetChain(ctx context.Context, symbol string) (models.Chain, error)
}

// PricingProvider supplies the precomputed pricing table of a symbol.
type PricingProvider interface {
	GetPricingTable(ctx context.Context, symbol string) (models.PricingTable, error)
}

// MarketData combines chain and pricing lookups.
type MarketData interface {
	ChainProvider
	PricingProvider
}

// StrategyJournal records validated strategies.
type StrategyJournal interface {
	SaveStrategies(ctx context.Context, symbol string, strategies []models.Strategy) ([]string, error)
	GetStrategies(ctx context.Context, filter StrategyFilter) ([]StrategyRecord, error)
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	MarketData
	StrategyJournal

	SavePricingRows(ctx context.Context, symbol string, rows []models.PricingRow) error
	ListSymbols(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

// StrategyFilter represents filters for querying the strategy journal.
type StrategyFilter struct {
	Symbol    string
	Direction models.Direction
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// StrategyRecord is one journaled strategy.
type StrategyRecord struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	CreatedAt time.Time       `json:"created_at"`
	Strategy  models.Strategy `json:"strategy"`
}
