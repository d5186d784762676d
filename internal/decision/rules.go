package decision

import (
	"context"
	"fmt"

	"github.com/pattern-lab/formation-trading/internal/pattern"
	"github.com/pattern-lab/formation-trading/internal/types"
)

// RuleBased is a deterministic source that simply follows the
// validator's verdict: buy when a formation was approved, hold
// otherwise. It is the default source and the one every repeatable
// test runs against.
type RuleBased struct{}

// NewRuleBased creates the rule-following source.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Name implements Source.
func (s *RuleBased) Name() string {
	return "rule_based"
}

// Decide buys an approved formation at its validated target, with the
// stop at the formation's natural protective level.
func (s *RuleBased) Decide(_ context.Context, req Request) (types.Decision, error) {
	if req.Formation.IsNone() || req.Validation.IsNone() {
		return types.Hold(), nil
	}

	formation := req.Formation.Unwrap()
	validation := req.Validation.Unwrap()

	target := validation.ApprovedTargetPrice(formation)
	if target.IsNone() {
		return types.Hold(), nil
	}

	confidence := validation.ConservativeHitRate
	if validation.ApprovedTarget == types.TargetAggressive {
		confidence = validation.AggressiveHitRate
	}

	return types.Decision{
		Action:     types.ActionBuy,
		Confidence: confidence,
		StopLoss:   pattern.StopLevel(formation),
		Target:     target.Unwrap(),
		Rationale: fmt.Sprintf("%s approved on %d occurrences at %.0f%% hit rate",
			formation.Kind, validation.OccurrenceCount, confidence*100),
	}, nil
}
