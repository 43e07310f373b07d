// Package api exposes the strategy engine over HTTP.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"option-strategist/internal/agents"
	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/models"
	"option-strategist/internal/security"
	"option-strategist/internal/store"
	"option-strategist/internal/strategy"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the strategy endpoints.
type Handler struct {
	data    store.MarketData
	journal store.StrategyJournal
	engine  *strategy.Engine
	agent   *agents.StrategyAgent
	logger  zerolog.Logger
}

// NewHandler creates a handler. journal and agent may be nil; without an
// agent the suggest endpoint reports the generator as unavailable.
func NewHandler(data store.MarketData, journal store.StrategyJournal, engine *strategy.Engine, agent *agents.StrategyAgent, logger zerolog.Logger) *Handler {
	return &Handler{
		data:    data,
		journal: journal,
		engine:  engine,
		agent:   agent,
		logger:  logger,
	}
}

// NewRouter creates and configures the HTTP router.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/chains/{symbol}", h.GetChain).Methods("GET")
	api.HandleFunc("/strategies/{symbol}/validate", h.Validate).Methods("POST")
	api.HandleFunc("/strategies/{symbol}/suggest", h.Suggest).Methods("POST")

	r.Use(loggingMiddleware(h.logger))
	r.Use(recoveryMiddleware(h.logger))

	return r
}

// StrategiesResponse is the body returned by the strategy endpoints.
type StrategiesResponse struct {
	Symbol     string            `json:"symbol"`
	Strategies []models.Strategy `json:"strategies"`
	JournalIDs []string          `json:"journal_ids,omitempty"`
}

// SuggestRequest is the body accepted by the suggest endpoint.
type SuggestRequest struct {
	Outlook string          `json:"outlook"`
	Spot    decimal.Decimal `json:"spot"`
	Save    bool            `json:"save"`
}

// GetChain returns the chain of a symbol.
// GET /api/v1/chains/{symbol}
func (h *Handler) GetChain(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(w, r)
	if !ok {
		return
	}

	chain, err := h.data.GetChain(r.Context(), symbol)
	if err != nil {
		h.respondDataError(w, symbol, err)
		return
	}
	respondJSON(w, http.StatusOK, chain)
}

// Validate normalizes and prices a raw strategy batch.
// POST /api/v1/strategies/{symbol}/validate
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	chain, table, ok := h.marketData(w, r, symbol)
	if !ok {
		return
	}

	strategies := h.engine.AssembleBatch(payload, chain, table)
	h.respondStrategies(w, r, symbol, strategies, r.URL.Query().Get("save") == "true")
}

// Suggest asks the generator for strategies and validates them.
// POST /api/v1/strategies/{symbol}/suggest
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(w, r)
	if !ok {
		return
	}
	if h.agent == nil {
		respondError(w, http.StatusServiceUnavailable, apperrors.ErrGeneratorUnavailable.Error())
		return
	}

	var req SuggestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && err != io.EOF {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	chain, table, ok := h.marketData(w, r, symbol)
	if !ok {
		return
	}

	strategies := h.agent.Suggest(r.Context(), agents.GenerationRequest{
		Symbol:  symbol,
		Spot:    req.Spot,
		Outlook: req.Outlook,
	}, chain, table)
	h.respondStrategies(w, r, symbol, strategies, req.Save)
}

func (h *Handler) marketData(w http.ResponseWriter, r *http.Request, symbol string) (models.Chain, models.PricingTable, bool) {
	chain, err := h.data.GetChain(r.Context(), symbol)
	if err != nil {
		h.respondDataError(w, symbol, err)
		return models.Chain{}, nil, false
	}
	table, err := h.data.GetPricingTable(r.Context(), symbol)
	if err != nil {
		h.respondDataError(w, symbol, err)
		return models.Chain{}, nil, false
	}
	return chain, table, true
}

func (h *Handler) respondStrategies(w http.ResponseWriter, r *http.Request, symbol string, strategies []models.Strategy, save bool) {
	resp := StrategiesResponse{Symbol: symbol, Strategies: strategies}
	if save && h.journal != nil && len(strategies) > 0 {
		ids, err := h.journal.SaveStrategies(r.Context(), symbol, strategies)
		if err != nil {
			h.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to journal strategies")
			respondError(w, http.StatusInternalServerError, "failed to journal strategies")
			return
		}
		resp.JournalIDs = ids
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) respondDataError(w http.ResponseWriter, symbol string, err error) {
	if apperrors.Is(err, apperrors.ErrChainNotFound) || apperrors.Is(err, apperrors.ErrPricingNotFound) {
		respondError(w, http.StatusNotFound, "no market data for "+symbol)
		return
	}
	h.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load market data")
	respondError(w, http.StatusInternalServerError, "failed to load market data")
}

func symbolVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol, err := security.ValidateSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return symbol, true
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "option-strategist",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("error", err).
						Str("path", r.URL.Path).
						Msg("Panic recovered")
					respondError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
