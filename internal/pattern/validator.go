package pattern

import (
	"context"

	"github.com/pattern-lab/formation-trading/internal/pattern/cache"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Approval thresholds. Aggressive targets are rarely reliable over
// long histories while conservative ones usually are, so the two
// tiers carry different hit-rate bars and the aggressive tier is
// tried first.
const (
	AggressiveHitRateMin   = 0.70
	ConservativeHitRateMin = 0.55
	RiskRewardMin          = 2.0

	// DefaultMinOccurrences is the sample-size gate. Below it the
	// hit rate is noise, so the formation is rejected regardless of
	// how good the rate looks.
	DefaultMinOccurrences = 10

	// DefaultStride is the bar step between candidate window ends in
	// the historical rescan. A smaller stride counts overlapping
	// occurrences of the same base more than once and inflates the
	// sample; a larger one can skip over short-lived formations
	// entirely. Hit-rate estimates move a few points either way, so
	// the stride is configurable rather than fixed.
	DefaultStride = 5
)

// Validator rescans an instrument's full available history for prior
// occurrences of a formation kind and measures how often each target
// tier was eventually hit. Results are memoized through the injected
// cache since they are a pure function of (instrument, as-of, kind).
type Validator struct {
	registry Registry
	cache    cache.Cache
	stride   int
	minCount int
}

// NewValidator creates a validator using the given detector registry
// and result cache. A stride or minCount of 0 takes the default.
func NewValidator(registry Registry, resultCache cache.Cache, stride, minCount int) *Validator {
	if stride <= 0 {
		stride = DefaultStride
	}

	if minCount <= 0 {
		minCount = DefaultMinOccurrences
	}

	return &Validator{
		registry: registry,
		cache:    resultCache,
		stride:   stride,
		minCount: minCount,
	}
}

// Validate computes the historical target-hit statistics for the
// formation against the supplied history. history must contain every
// bar available up to the formation's window end and nothing after
// it.
func (v *Validator) Validate(ctx context.Context, formation types.Formation, history []types.Bar) (types.ValidationResult, error) {
	key := cache.Key(formation.Instrument, formation.WindowEnd, formation.Kind)

	if cached, err := v.cache.Get(ctx, key); err == nil && cached.IsSome() {
		return cached.Unwrap(), nil
	}

	detector, err := v.registry.Get(formation.Kind)
	if err != nil {
		return types.ValidationResult{}, err
	}

	stats, err := v.rescan(detector, history)
	if err != nil {
		return types.ValidationResult{}, err
	}

	result := v.assemble(formation, stats)

	// Failing to memoize is not failing to validate.
	_ = v.cache.Set(ctx, key, result)

	return result, nil
}

// occurrenceStats accumulates the outcome of every prior occurrence
// found in the rescan.
type occurrenceStats struct {
	count               int
	conservativeHits    int
	aggressiveHits      int
	conservativeGainSum float64
	aggressiveGainSum   float64
}

// rescan slides a detection window over the history at the configured
// stride and, for each occurrence, scans every subsequent bar for
// target hits with no holding-period cutoff. Windows ending at the
// last bar are excluded so the formation under validation does not
// count itself as evidence.
func (v *Validator) rescan(detector Detector, history []types.Bar) (occurrenceStats, error) {
	var stats occurrenceStats

	minWindow := detector.MinWindow()

	for end := minWindow; end < len(history); end += v.stride {
		found, err := detector.Detect(history[end-minWindow : end])
		if err != nil {
			if errors.IsInsufficientDataError(err) {
				continue
			}

			return occurrenceStats{}, errors.Wrap(errors.ErrCodeValidationFailed, "historical rescan failed", err)
		}

		if found.IsNone() {
			continue
		}

		prior := found.Unwrap()
		stats.count++

		conservativeHit := false
		aggressiveHit := false

		for i := end; i < len(history); i++ {
			if history[i].High >= prior.ConservativeTarget {
				conservativeHit = true
			}

			if history[i].High >= prior.AggressiveTarget {
				aggressiveHit = true
				break
			}
		}

		if conservativeHit && prior.EntryPrice > 0 {
			stats.conservativeHits++
			stats.conservativeGainSum += (prior.ConservativeTarget - prior.EntryPrice) / prior.EntryPrice * 100
		}

		if aggressiveHit && prior.EntryPrice > 0 {
			stats.aggressiveHits++
			stats.aggressiveGainSum += (prior.AggressiveTarget - prior.EntryPrice) / prior.EntryPrice * 100
		}
	}

	return stats, nil
}

// assemble applies the approval policy to the rescan statistics.
func (v *Validator) assemble(formation types.Formation, stats occurrenceStats) types.ValidationResult {
	result := types.ValidationResult{
		Kind:            formation.Kind,
		OccurrenceCount: stats.count,
		ApprovedTarget:  types.TargetNone,
	}

	if stats.count == 0 {
		return result
	}

	result.ConservativeHitRate = float64(stats.conservativeHits) / float64(stats.count)
	result.AggressiveHitRate = float64(stats.aggressiveHits) / float64(stats.count)

	if stats.conservativeHits > 0 {
		result.AvgConservativeGainPct = stats.conservativeGainSum / float64(stats.conservativeHits)
	}

	if stats.aggressiveHits > 0 {
		result.AvgAggressiveGainPct = stats.aggressiveGainSum / float64(stats.aggressiveHits)
	}

	if stats.count < v.minCount {
		// Insufficient evidence, not proof of failure.
		return result
	}

	stop := StopLevel(formation)
	risk := formation.EntryPrice - stop

	if risk <= 0 {
		return result
	}

	aggressiveRR := (formation.AggressiveTarget - formation.EntryPrice) / risk
	conservativeRR := (formation.ConservativeTarget - formation.EntryPrice) / risk

	switch {
	case result.AggressiveHitRate >= AggressiveHitRateMin && aggressiveRR >= RiskRewardMin:
		result.Approved = true
		result.ApprovedTarget = types.TargetAggressive
		result.RiskRewardRatio = aggressiveRR
	case result.ConservativeHitRate >= ConservativeHitRateMin && conservativeRR >= RiskRewardMin:
		result.Approved = true
		result.ApprovedTarget = types.TargetConservative
		result.RiskRewardRatio = conservativeRR
	default:
		// Report the conservative ratio so rejections are explainable.
		result.RiskRewardRatio = conservativeRR
	}

	return result
}

// StopLevel derives the natural protective stop from a formation's
// levels: the handle low when the pattern has one, otherwise the
// trough, otherwise five percent under the entry.
func StopLevel(f types.Formation) float64 {
	if low, ok := f.Level(types.LevelHandleLow); ok {
		return low
	}

	if trough, ok := f.Level(types.LevelTrough); ok {
		return trough
	}

	return f.EntryPrice * 0.95
}
