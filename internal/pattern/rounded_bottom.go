package pattern

import (
	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// RoundedBottomDetector finds a wide, flat base with a gradual
// recovery. Unlike the cup-with-handle it requires no pullback leg,
// but it does require the base itself to be flat rather than a
// single spike low.
type RoundedBottomDetector struct {
	windowSize int
}

// NewRoundedBottomDetector creates a detector scanning windows of the
// given size.
func NewRoundedBottomDetector(windowSize int) Detector {
	return &RoundedBottomDetector{windowSize: windowSize}
}

// Kind returns the formation kind this detector produces.
func (d *RoundedBottomDetector) Kind() types.FormationKind {
	return types.FormationRoundedBottom
}

// MinWindow returns the minimum number of bars Detect needs.
func (d *RoundedBottomDetector) MinWindow() int {
	return d.windowSize
}

// Detect scans the window for a rounded-bottom shape.
func (d *RoundedBottomDetector) Detect(window []types.Bar) (optional.Option[types.Formation], error) {
	n := len(window)
	if n < d.windowSize {
		return nil, errors.NewInsufficientDataErrorf(d.windowSize, n, instrumentOf(window),
			"rounded bottom needs %d bars, got %d", d.windowSize, n)
	}

	troughStart := int(float64(n) * CupTroughPositionMin)
	troughEnd := int(float64(n) * CupTroughPositionMax)

	troughIdx := troughStart
	for i := troughStart; i < troughEnd; i++ {
		if window[i].Low < window[troughIdx].Low {
			troughIdx = i
		}
	}

	trough := window[troughIdx].Low

	peakIdx := 0
	for i := 1; i < troughIdx; i++ {
		if window[i].High > window[peakIdx].High {
			peakIdx = i
		}
	}

	peak := window[peakIdx].High
	if peak <= trough {
		return optional.None[types.Formation](), nil
	}

	depth := (peak - trough) / peak
	if depth < CupDepthMin || depth > CupDepthMax {
		return optional.None[types.Formation](), nil
	}

	// The middle third of the window must hug the low. This is what
	// separates a wide base from a one-day flush.
	priceRange := peak - trough
	for i := n / 3; i < 2*n/3; i++ {
		if (window[i].Low-trough)/priceRange > BottomFlatnessMax {
			return optional.None[types.Formation](), nil
		}
	}

	// The right side must have recovered at least half the drop.
	entry := window[n-1].Close

	recovery := (entry - trough) / (peak - trough)
	if recovery < RecoveryMin {
		return optional.None[types.Formation](), nil
	}

	conservative := peak
	aggressive := conservative + (peak - trough)

	formation := types.Formation{
		Kind:        types.FormationRoundedBottom,
		Instrument:  window[0].Instrument,
		WindowStart: window[0].Date,
		WindowEnd:   window[n-1].Date,
		Levels: map[string]float64{
			types.LevelLeftPeak: peak,
			types.LevelTrough:   trough,
			types.LevelNeckline: peak,
		},
		EntryPrice:         entry,
		ConservativeTarget: conservative,
		AggressiveTarget:   aggressive,
	}

	return optional.Some(formation), nil
}
