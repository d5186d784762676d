package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// FormationKind enumerates the chart patterns the detectors can produce.
type FormationKind string

const (
	FormationCupWithHandle FormationKind = "cup_with_handle"
	FormationRoundedBottom FormationKind = "rounded_bottom"
	FormationGoldenCross   FormationKind = "golden_cross"
)

// Well-known keys for Formation.Levels. Detectors only populate the levels
// that exist for their kind.
const (
	LevelLeftPeak   = "left_peak"
	LevelTrough     = "trough"
	LevelHandleHigh = "handle_high"
	LevelHandleLow  = "handle_low"
	LevelNeckline   = "neckline"
	LevelFastSMA    = "fast_sma"
	LevelSlowSMA    = "slow_sma"
)

// Formation is a detected candidate chart pattern with its geometric
// parameters. It lives for one evaluation unless the validator approves it.
type Formation struct {
	Kind        FormationKind `yaml:"kind" json:"kind" validate:"required"`
	Instrument  string        `yaml:"instrument" json:"instrument" validate:"required"`
	WindowStart time.Time     `yaml:"window_start" json:"window_start" validate:"required"`
	WindowEnd   time.Time     `yaml:"window_end" json:"window_end" validate:"required"`
	// Levels holds the key price levels of the pattern, keyed by the
	// Level* constants above.
	Levels             map[string]float64 `yaml:"levels" json:"levels" validate:"required"`
	EntryPrice         float64            `yaml:"entry_price" json:"entry_price" validate:"required,gt=0"`
	ConservativeTarget float64            `yaml:"conservative_target" json:"conservative_target" validate:"required,gt=0"`
	AggressiveTarget   float64            `yaml:"aggressive_target" json:"aggressive_target" validate:"required,gt=0"`
}

// Validate validates the Formation struct.
func (f *Formation) Validate() error {
	validate := validator.New()
	if err := validate.Struct(f); err != nil {
		return errors.Wrap(errors.ErrCodeDetectionFailed, "invalid formation", err)
	}

	if f.AggressiveTarget < f.ConservativeTarget {
		return errors.Newf(errors.ErrCodeDetectionFailed,
			"aggressive target %.2f below conservative target %.2f",
			f.AggressiveTarget, f.ConservativeTarget)
	}

	return nil
}

// Level returns the named price level and whether it was set by the detector.
func (f *Formation) Level(name string) (float64, bool) {
	v, ok := f.Levels[name]

	return v, ok
}
