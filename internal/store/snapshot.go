package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

// Snapshot is a file-based chain and pricing table for one symbol.
// Strikes and Expirations are optional; when absent they are derived from
// the rows.
type Snapshot struct {
	Symbol      string              `json:"symbol"`
	Strikes     []decimal.Decimal   `json:"strikes,omitempty"`
	Expirations []string            `json:"expirations,omitempty"`
	Rows        []models.PricingRow `json:"rows"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes snapshot JSON.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperrors.NewDecodeError("snapshot", data, fmt.Errorf("%w: %v", apperrors.ErrDecodeFailed, err))
	}
	snap.Symbol = strings.ToUpper(strings.TrimSpace(snap.Symbol))
	if snap.Symbol == "" {
		return nil, apperrors.NewValidationError("symbol", nil, "snapshot has no symbol")
	}
	return &snap, nil
}

// Table indexes the snapshot rows.
func (s *Snapshot) Table() models.PricingTable {
	return models.NewPricingTable(s.Rows)
}

// Chain returns the explicit strikes and expirations, falling back to the
// ones derived from the rows for whichever list is empty.
func (s *Snapshot) Chain() models.Chain {
	derived := models.ChainFromTable(s.Symbol, s.Table())
	strikes, expirations := derived.Strikes, derived.Expirations
	if len(s.Strikes) > 0 {
		strikes = s.Strikes
	}
	if len(s.Expirations) > 0 {
		expirations = s.Expirations
	}
	return models.NewChain(s.Symbol, strikes, expirations)
}

// SnapshotProvider serves loaded snapshots as market data.
type SnapshotProvider struct {
	snapshots map[string]*Snapshot
}

// NewSnapshotProvider indexes snapshots by symbol. A later snapshot of the
// same symbol replaces an earlier one.
func NewSnapshotProvider(snapshots ...*Snapshot) *SnapshotProvider {
	p := &SnapshotProvider{snapshots: make(map[string]*Snapshot, len(snapshots))}
	for _, s := range snapshots {
		p.snapshots[s.Symbol] = s
	}
	return p
}

// GetChain implements ChainProvider.
func (p *SnapshotProvider) GetChain(_ context.Context, symbol string) (models.Chain, error) {
	snap, ok := p.snapshots[strings.ToUpper(symbol)]
	if !ok {
		return models.Chain{}, apperrors.NewDataError("chain", symbol, "not in snapshot", apperrors.ErrChainNotFound)
	}
	return snap.Chain(), nil
}

// GetPricingTable implements PricingProvider.
func (p *SnapshotProvider) GetPricingTable(_ context.Context, symbol string) (models.PricingTable, error) {
	snap, ok := p.snapshots[strings.ToUpper(symbol)]
	if !ok {
		return nil, apperrors.NewDataError("pricing", symbol, "not in snapshot", apperrors.ErrPricingNotFound)
	}
	return snap.Table(), nil
}
