package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/logging"
	"option-strategist/internal/models"
)

// Options configures the strategy engine. Zero values select the defaults.
type Options struct {
	MaxStrategies      int
	ContractMultiplier int64
	DefaultProbability int
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		MaxStrategies:      3,
		ContractMultiplier: DefaultContractMultiplier,
		DefaultProbability: 50,
	}
}

// Engine validates and prices batches of strategy candidates.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	opts   Options
	calc   *Calculator
	logger zerolog.Logger
}

// NewEngine creates an engine. Out-of-range options fall back to defaults.
func NewEngine(opts Options, logger zerolog.Logger) *Engine {
	def := DefaultOptions()
	if opts.MaxStrategies <= 0 {
		opts.MaxStrategies = def.MaxStrategies
	}
	if opts.ContractMultiplier <= 0 {
		opts.ContractMultiplier = def.ContractMultiplier
	}
	if opts.DefaultProbability <= 0 || opts.DefaultProbability > 100 {
		opts.DefaultProbability = def.DefaultProbability
	}
	return &Engine{
		opts:   opts,
		calc:   NewCalculator(opts.ContractMultiplier),
		logger: logging.WithOperation(logger, "assemble"),
	}
}

// Options returns the effective engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// AssembleBatch decodes a generator payload and assembles its strategies.
// A payload that cannot be decoded yields an empty result.
func (e *Engine) AssembleBatch(payload []byte, chain models.Chain, table models.PricingTable) []models.Strategy {
	batch, err := DecodeBatch(payload)
	if err != nil {
		e.logger.Error().Err(err).Str("event", "decode_failed").Msg("Discarding undecodable strategy batch")
		return []models.Strategy{}
	}
	return e.Assemble(batch.Strategies, chain, table)
}

// Assemble validates at most MaxStrategies candidates in order. Candidates
// without a name or legs, or whose legs all fail normalization, are dropped.
func (e *Engine) Assemble(raws []models.RawStrategy, chain models.Chain, table models.PricingTable) []models.Strategy {
	if len(raws) > e.opts.MaxStrategies {
		e.logger.Info().
			Str("event", "batch_truncated").
			Int("received", len(raws)).
			Int("kept", e.opts.MaxStrategies).
			Msg("Truncating strategy batch")
		raws = raws[:e.opts.MaxStrategies]
	}

	out := make([]models.Strategy, 0, len(raws))
	for i, raw := range raws {
		s, err := e.assembleOne(raw, chain, table)
		if err != nil {
			logging.LogStrategyDropped(e.logger, i, s.Name, err.Error())
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Engine) assembleOne(raw models.RawStrategy, chain models.Chain, table models.PricingTable) (models.Strategy, error) {
	var s models.Strategy

	name, state := scalarText(rawValue(raw, "name"))
	if state != FieldOK {
		return s, apperrors.NewValidationError("name", nil, "missing")
	}
	s.Name = name

	rawLegs, ok := decodeLegs(rawValue(raw, "legs"))
	if !ok {
		return s, apperrors.NewValidationError("legs", nil, "missing or not a list")
	}

	logger := logging.WithStrategy(e.logger, name)
	normalizer := NewNormalizer(chain, table, logger)
	for i, rl := range rawLegs {
		if rl == nil {
			logging.LogLegDropped(logger, i, "not an object")
			continue
		}
		leg, err := normalizer.Normalize(rl)
		if err != nil {
			logging.LogLegDropped(logger, i, err.Error())
			continue
		}
		s.Legs = append(s.Legs, leg)
	}
	if len(s.Legs) == 0 {
		return s, fmt.Errorf("%w: all %d legs failed normalization", apperrors.ErrEmptyLegs, len(rawLegs))
	}

	e.fillDefaults(&s, raw)
	s.Greeks = models.PositionGreeks(s.Legs)

	payoff, err := e.calc.Compute(s.Legs)
	if err != nil {
		logger.Warn().Err(err).Str("event", "payoff_failed").Msg("Keeping supplied payoff figures")
		return s, nil
	}
	applyPayoff(&s, payoff)
	logging.LogPayoff(logger, string(payoff.Shape), payoff.NetCost.StringFixed(2),
		s.MaxLoss.String(), s.MaxProfit.String(), s.Breakeven.String())

	return s, nil
}

// fillDefaults copies the optional descriptive fields, defaulting what is
// missing or unusable.
func (e *Engine) fillDefaults(s *models.Strategy, raw models.RawStrategy) {
	s.Direction = models.DirectionNeutral
	if text, state := scalarText(rawValue(raw, "direction")); state == FieldOK {
		s.Direction, _ = models.ParseDirection(text)
	}

	if text, state := scalarText(rawValue(raw, "rationale")); state == FieldOK {
		s.Rationale = text
	}

	s.MaxProfit = figureField(rawValue(raw, "max_profit"))
	s.MaxLoss = figureField(rawValue(raw, "max_loss"))
	s.Breakeven = figureField(rawValue(raw, "breakeven"))

	s.Probability = e.opts.DefaultProbability
	if p, ok := probabilityField(rawValue(raw, "probability")); ok {
		s.Probability = p
	}
}

func applyPayoff(s *models.Strategy, p Payoff) {
	s.NetCost = p.NetCost
	s.IsCredit = p.IsCredit
	if p.MaxReward != nil {
		s.MaxProfit = *p.MaxReward
	}
	if p.MaxRisk != nil {
		s.MaxLoss = *p.MaxRisk
	}
	if p.Breakeven != nil {
		s.Breakeven = *p.Breakeven
	}
	if p.Trace != "" {
		s.Calculation = p.Trace
	}
}

func rawValue(raw models.RawStrategy, key string) json.RawMessage {
	v, _ := raw.Get(key)
	return v
}

func figureField(raw json.RawMessage) models.Figure {
	text, state := scalarText(raw)
	if state != FieldOK {
		return models.Sentinel(models.NotAvailable)
	}
	return models.ParseFigure(text)
}

// probabilityField reads a 0-100 probability such as 65, "65" or "65%".
// Fractions in (0, 1) are read as ratios. Values are clamped to [0, 100].
func probabilityField(raw json.RawMessage) (int, bool) {
	text, state := scalarText(raw)
	if state != FieldOK {
		return 0, false
	}
	d, ok := parseNumber(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if !ok {
		return 0, false
	}
	if d.GreaterThan(decimal.Zero) && d.LessThan(decimal.NewFromInt(1)) {
		d = d.Mul(decimal.NewFromInt(100))
	}
	p := d.Round(0).IntPart()
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return int(p), true
}
