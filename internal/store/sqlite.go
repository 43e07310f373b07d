// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pricing_rows (
		symbol TEXT NOT NULL,
		strike TEXT NOT NULL,
		expiration TEXT NOT NULL,
		dte INTEGER NOT NULL DEFAULT 0,
		call_price TEXT NOT NULL,
		call_delta REAL NOT NULL DEFAULT 0,
		call_theta REAL NOT NULL DEFAULT 0,
		call_vega REAL NOT NULL DEFAULT 0,
		put_price TEXT NOT NULL,
		put_delta REAL NOT NULL DEFAULT 0,
		put_theta REAL NOT NULL DEFAULT 0,
		put_vega REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		UNIQUE(symbol, strike, expiration)
	);

	CREATE TABLE IF NOT EXISTS strategy_journal (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		name TEXT NOT NULL,
		direction TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pricing_symbol ON pricing_rows(symbol);
	CREATE INDEX IF NOT EXISTS idx_journal_symbol ON strategy_journal(symbol);
	CREATE INDEX IF NOT EXISTS idx_journal_created ON strategy_journal(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Pricing Methods
// ============================================================================

// SavePricingRows upserts pricing rows for a symbol. Strikes are stored in
// canonical decimal form so 100 and 100.00 address the same row.
func (s *SQLiteStore) SavePricingRows(ctx context.Context, symbol string, rows []models.PricingRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO pricing_rows (symbol, strike, expiration, dte,
			call_price, call_delta, call_theta, call_vega,
			put_price, put_delta, put_theta, put_vega, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	updatedAt := s.now()
	for _, r := range rows {
		_, err := stmt.ExecContext(ctx, symbol, r.Strike.String(), r.Expiration, r.DaysToExpiration,
			r.Call.Price.String(), r.Call.Delta, r.Call.Theta, r.Call.Vega,
			r.Put.Price.String(), r.Put.Delta, r.Put.Theta, r.Put.Vega, updatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert pricing row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetPricingTable returns all stored rows of a symbol.
func (s *SQLiteStore) GetPricingTable(ctx context.Context, symbol string) (models.PricingTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strike, expiration, dte,
			call_price, call_delta, call_theta, call_vega,
			put_price, put_delta, put_theta, put_vega
		FROM pricing_rows
		WHERE symbol = ?
	`, symbol)
	if err != nil {
		return nil, apperrors.NewDataError("pricing", symbol, "query failed", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
	}
	defer rows.Close()

	var pricing []models.PricingRow
	for rows.Next() {
		var r models.PricingRow
		var strike, callPrice, putPrice string
		if err := rows.Scan(&strike, &r.Expiration, &r.DaysToExpiration,
			&callPrice, &r.Call.Delta, &r.Call.Theta, &r.Call.Vega,
			&putPrice, &r.Put.Delta, &r.Put.Theta, &r.Put.Vega); err != nil {
			return nil, fmt.Errorf("failed to scan pricing row: %w", err)
		}
		if r.Strike, err = decimal.NewFromString(strike); err != nil {
			return nil, fmt.Errorf("invalid stored strike %q: %w", strike, err)
		}
		if r.Call.Price, err = decimal.NewFromString(callPrice); err != nil {
			return nil, fmt.Errorf("invalid stored call price %q: %w", callPrice, err)
		}
		if r.Put.Price, err = decimal.NewFromString(putPrice); err != nil {
			return nil, fmt.Errorf("invalid stored put price %q: %w", putPrice, err)
		}
		pricing = append(pricing, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pricing rows: %w", err)
	}

	if len(pricing) == 0 {
		return nil, apperrors.NewDataError("pricing", symbol, "no rows stored", apperrors.ErrPricingNotFound)
	}
	return models.NewPricingTable(pricing), nil
}

// GetChain derives the chain of a symbol from its stored pricing rows.
func (s *SQLiteStore) GetChain(ctx context.Context, symbol string) (models.Chain, error) {
	table, err := s.GetPricingTable(ctx, symbol)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrPricingNotFound) {
			return models.Chain{}, apperrors.NewDataError("chain", symbol, "no rows stored", apperrors.ErrChainNotFound)
		}
		return models.Chain{}, err
	}
	return models.ChainFromTable(symbol, table), nil
}

// ListSymbols returns every symbol with stored pricing rows.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM pricing_rows ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// ============================================================================
// Journal Methods
// ============================================================================

// SaveStrategies journals strategies and returns their generated IDs.
func (s *SQLiteStore) SaveStrategies(ctx context.Context, symbol string, strategies []models.Strategy) ([]string, error) {
	if len(strategies) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strategy_journal (id, symbol, name, direction, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	createdAt := s.now().UTC()
	ids := make([]string, 0, len(strategies))
	for _, st := range strategies {
		payload, err := json.Marshal(st)
		if err != nil {
			return nil, fmt.Errorf("failed to encode strategy %q: %w", st.Name, err)
		}
		id := uuid.New().String()
		if _, err := stmt.ExecContext(ctx, id, symbol, st.Name, string(st.Direction), string(payload), createdAt); err != nil {
			return nil, fmt.Errorf("failed to journal strategy: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

// GetStrategies retrieves journaled strategies, newest first.
func (s *SQLiteStore) GetStrategies(ctx context.Context, filter StrategyFilter) ([]StrategyRecord, error) {
	query := "SELECT id, symbol, payload, created_at FROM strategy_journal WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Direction != "" {
		query += " AND direction = ?"
		args = append(args, string(filter.Direction))
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var records []StrategyRecord
	for rows.Next() {
		var rec StrategyRecord
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Strategy); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
