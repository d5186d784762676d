package types

import "github.com/moznion/go-optional"

// TargetTier identifies which of the two candidate targets a validation
// approved, if any.
type TargetTier string

const (
	TargetConservative TargetTier = "conservative"
	TargetAggressive   TargetTier = "aggressive"
	TargetNone         TargetTier = "none"
)

// ValidationResult carries the historical target-hit statistics for one
// formation kind on one instrument at one as-of date. Both tiers' rates are
// exposed so the caller can explain why a pattern was accepted or rejected
// instead of collapsing to a single score.
type ValidationResult struct {
	Kind            FormationKind `yaml:"kind" json:"kind"`
	OccurrenceCount int           `yaml:"occurrence_count" json:"occurrence_count"`
	// ConservativeHitRate is the fraction of prior occurrences whose
	// conservative target was eventually reached, unconstrained by time.
	ConservativeHitRate float64 `yaml:"conservative_hit_rate" json:"conservative_hit_rate"`
	AggressiveHitRate   float64 `yaml:"aggressive_hit_rate" json:"aggressive_hit_rate"`
	// Average gains are computed only over occurrences that hit.
	AvgConservativeGainPct float64 `yaml:"avg_conservative_gain_pct" json:"avg_conservative_gain_pct"`
	AvgAggressiveGainPct   float64 `yaml:"avg_aggressive_gain_pct" json:"avg_aggressive_gain_pct"`
	// RiskRewardRatio is computed on the current formation's levels,
	// not the historical occurrences'.
	RiskRewardRatio float64    `yaml:"risk_reward_ratio" json:"risk_reward_ratio"`
	Approved        bool       `yaml:"approved" json:"approved"`
	ApprovedTarget  TargetTier `yaml:"approved_target" json:"approved_target"`
}

// ApprovedTargetPrice resolves the approved tier against a formation's
// target prices. None when the validation rejected the formation.
func (v ValidationResult) ApprovedTargetPrice(f Formation) optional.Option[float64] {
	if !v.Approved {
		return optional.None[float64]()
	}

	switch v.ApprovedTarget {
	case TargetAggressive:
		return optional.Some(f.AggressiveTarget)
	case TargetConservative:
		return optional.Some(f.ConservativeTarget)
	default:
		return optional.None[float64]()
	}
}
