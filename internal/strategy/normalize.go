package strategy

import (
	"github.com/rs/zerolog"

	apperrors "option-strategist/internal/errors"
	"option-strategist/internal/logging"
	"option-strategist/internal/models"
)

// Normalizer coerces raw legs onto tradable contracts of one chain.
type Normalizer struct {
	chain  models.Chain
	table  models.PricingTable
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer for the given chain and pricing table.
func NewNormalizer(chain models.Chain, table models.PricingTable, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		chain:  chain,
		table:  table,
		logger: logger,
	}
}

// Normalize converts a raw leg into a typed leg snapped onto the chain.
//
// A leg is rejected when action, strike, right or expiration is missing, or
// when action, right or expiration is an object or array. Every other defect
// is replaced by a default and logged:
//   - unknown action becomes BUY, unknown right becomes CALL
//   - a missing or non-numeric quantity becomes 1
//   - a non-numeric strike becomes 0 before snapping
func (n *Normalizer) Normalize(raw models.RawLeg) (models.Leg, error) {
	p := ParseLeg(raw)

	if err := requireLegFields(p); err != nil {
		return models.Leg{}, err
	}

	if p.Action.State == FieldUnrecognized {
		logging.LogCorrection(n.logger, "leg_defaulted", "action", p.Action.Raw, string(p.Action.Value))
	}
	if p.Right.State == FieldUnrecognized {
		logging.LogCorrection(n.logger, "leg_defaulted", "right", p.Right.Raw, string(p.Right.Value))
	}
	if p.Quantity.State == FieldUnrecognized {
		logging.LogCorrection(n.logger, "leg_defaulted", "quantity", p.Quantity.Raw, "1")
	}
	if p.Strike.State == FieldUnrecognized {
		logging.LogCorrection(n.logger, "leg_defaulted", "strike", p.Strike.Raw, "0")
	}

	leg := models.Leg{
		Action:   p.Action.Value,
		Quantity: p.Quantity.Value,
		Contract: models.Contract{Right: p.Right.Value},
	}

	strike, snapped := SnapStrike(p.Strike.Value, n.chain.Strikes)
	if !snapped {
		leg.Unvalidated = true
	} else if !strike.Equal(p.Strike.Value) || p.Strike.State != FieldOK {
		leg.Corrections.StrikeCorrected = true
		leg.Corrections.RequestedStrike = p.Strike.Raw
		logging.LogCorrection(n.logger, "strike_snapped", "strike", p.Strike.Raw, strike.String())
	}
	leg.Contract.Strike = strike

	expiration, snapped := SnapExpiration(p.Expiration.Value, n.chain.Expirations)
	if !snapped {
		leg.Unvalidated = true
	} else if expiration != p.Expiration.Value {
		leg.Corrections.ExpirationCorrected = true
		leg.Corrections.RequestedExpiration = p.Expiration.Raw
		logging.LogCorrection(n.logger, "expiration_snapped", "expiration", p.Expiration.Raw, expiration)
	}
	leg.Contract.Expiration = expiration

	if row, ok := n.table.Lookup(leg.Contract.Strike, leg.Contract.Expiration); ok {
		leg.Pricing = &models.LegPricing{
			OptionQuote:      row.Quote(leg.Contract.Right),
			DaysToExpiration: row.DaysToExpiration,
		}
	} else {
		n.logger.Debug().
			Str("event", "pricing_missing").
			Str("strike", leg.Contract.Strike.String()).
			Str("expiration", leg.Contract.Expiration).
			Msg("No pricing row for contract")
	}

	return leg, nil
}

func requireLegFields(p ParsedLeg) error {
	switch {
	case p.Action.State == FieldMissing:
		return apperrors.NewValidationError("action", nil, "missing")
	case p.Strike.State == FieldMissing:
		return apperrors.NewValidationError("strike", nil, "missing")
	case p.Right.State == FieldMissing:
		return apperrors.NewValidationError("right", nil, "missing")
	case p.Expiration.State == FieldMissing:
		return apperrors.NewValidationError("expiration", nil, "missing")
	case p.Action.State == FieldMalformed:
		return apperrors.NewValidationError("action", p.Action.Raw, "not a scalar value")
	case p.Right.State == FieldMalformed:
		return apperrors.NewValidationError("right", p.Right.Raw, "not a scalar value")
	case p.Expiration.State == FieldMalformed:
		return apperrors.NewValidationError("expiration", p.Expiration.Raw, "not a scalar value")
	}
	return nil
}
