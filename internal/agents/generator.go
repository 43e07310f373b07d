package agents

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/logging"
	"option-strategist/internal/models"
	"option-strategist/internal/resilience"
	"option-strategist/internal/security"
	"option-strategist/internal/strategy"
)

const generatorName = "strategist"

// GenerationRequest describes what strategies to ask the generator for.
type GenerationRequest struct {
	Symbol  string
	Spot    decimal.Decimal
	Outlook string
	Chain   models.Chain
	Count   int
}

// Generator produces a raw strategy payload.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// StrategyGenerator asks an LLM for strategy candidates. Calls are paced by
// a rate limiter, fail fast while the circuit is open, and are never retried.
type StrategyGenerator struct {
	llm           LLMClient
	limiter       *rate.Limiter
	breaker       *resilience.CircuitBreaker
	knowledgeBase string
	logger        zerolog.Logger
}

// NewStrategyGenerator creates a generator. requestsPerMinute <= 0 disables
// pacing.
func NewStrategyGenerator(llm LLMClient, knowledgeBase string, requestsPerMinute int, logger zerolog.Logger) *StrategyGenerator {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	logger = logging.WithAgent(logger, generatorName)
	return &StrategyGenerator{
		llm:           llm,
		limiter:       rate.NewLimiter(limit, 1),
		breaker:       resilience.NewCircuitBreaker(generatorName, resilience.DefaultCircuitBreakerConfig(), logger),
		knowledgeBase: knowledgeBase,
		logger:        logger,
	}
}

// WithCircuitBreaker replaces the generator's circuit breaker.
func (g *StrategyGenerator) WithCircuitBreaker(cb *resilience.CircuitBreaker) *StrategyGenerator {
	g.breaker = cb
	return g
}

// BreakerStats returns the state of the generator's circuit breaker.
func (g *StrategyGenerator) BreakerStats() resilience.CircuitBreakerStats {
	return g.breaker.Stats()
}

// LoadKnowledgeBase reads the knowledge base text. An empty path yields an
// empty knowledge base.
func LoadKnowledgeBase(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read knowledge base: %w", err)
	}
	return string(data), nil
}

// Generate returns the raw generator response for req.
func (g *StrategyGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if g == nil || g.llm == nil {
		return "", apperrors.ErrGeneratorUnavailable
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", apperrors.NewAgentError(generatorName, "rate_limit", err)
	}

	system, prompt := g.systemPrompt(), buildStrategyPrompt(req)
	response, err := resilience.Execute(g.breaker, ctx, func(ctx context.Context) (string, error) {
		start := time.Now()
		response, err := g.llm.CompleteWithSystem(ctx, system, prompt)
		logging.LogAPICall(g.logger, "POST", "chat/completions", time.Since(start), security.MaskError(err))
		return response, err
	})
	if err != nil {
		return "", apperrors.NewAgentError(generatorName, "generate", security.MaskError(err))
	}
	return response, nil
}

func (g *StrategyGenerator) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString(`You are an options strategist. Propose multi-leg option strategies using ONLY the listed strikes and expirations.
Respond with a single JSON object and nothing else, in this exact shape:
{"strategies": [{"name": "...", "direction": "BULLISH|BEARISH|NEUTRAL", "rationale": "...",
  "max_profit": <number or "Unlimited">, "max_loss": <number or "Unlimited">, "breakeven": <number>,
  "probability": <0-100>,
  "legs": [{"action": "BUY|SELL", "right": "CALL|PUT", "strike": <number>, "expiration": "<expiration>", "quantity": <integer>}]}]}`)
	if kb := strings.TrimSpace(g.knowledgeBase); kb != "" {
		sb.WriteString("\n\nReference material:\n")
		sb.WriteString(kb)
	}
	return sb.String()
}

func buildStrategyPrompt(req GenerationRequest) string {
	var sb strings.Builder

	count := req.Count
	if count <= 0 {
		count = strategy.DefaultOptions().MaxStrategies
	}

	sb.WriteString(fmt.Sprintf("Symbol: %s\n", req.Symbol))
	if !req.Spot.IsZero() {
		sb.WriteString(fmt.Sprintf("Spot Price: %s\n", req.Spot.StringFixed(2)))
	}
	outlook := strings.TrimSpace(req.Outlook)
	if outlook == "" {
		outlook = "no preference"
	}
	sb.WriteString(fmt.Sprintf("Outlook: %s\n\n", outlook))

	strikes := make([]string, len(req.Chain.Strikes))
	for i, s := range req.Chain.Strikes {
		strikes[i] = s.String()
	}
	sb.WriteString(fmt.Sprintf("Available Strikes: %s\n", strings.Join(strikes, ", ")))
	sb.WriteString(fmt.Sprintf("Available Expirations: %s\n\n", strings.Join(req.Chain.Expirations, ", ")))
	sb.WriteString(fmt.Sprintf("Propose up to %d strategies.\n", count))

	return sb.String()
}

// StrategyAgent generates strategies and passes them through the engine.
type StrategyAgent struct {
	generator Generator
	engine    *strategy.Engine
	logger    zerolog.Logger
}

// NewStrategyAgent creates a strategy agent.
func NewStrategyAgent(generator Generator, engine *strategy.Engine, logger zerolog.Logger) *StrategyAgent {
	return &StrategyAgent{
		generator: generator,
		engine:    engine,
		logger:    logging.WithAgent(logger, generatorName),
	}
}

// Suggest returns validated and priced strategies for req. Generator
// failures are logged and yield an empty result.
func (a *StrategyAgent) Suggest(ctx context.Context, req GenerationRequest, chain models.Chain, table models.PricingTable) []models.Strategy {
	if req.Count <= 0 {
		req.Count = a.engine.Options().MaxStrategies
	}
	req.Chain = chain

	logger := logging.WithSymbol(a.logger, req.Symbol)
	response, err := a.generator.Generate(ctx, req)
	if err != nil {
		logger.Error().Err(err).Str("event", "generate_failed").Msg("Strategy generation failed")
		return []models.Strategy{}
	}

	strategies := a.engine.AssembleBatch([]byte(response), chain, table)
	logger.Info().
		Int("strategies", len(strategies)).
		Msg("Strategies suggested")
	return strategies
}
