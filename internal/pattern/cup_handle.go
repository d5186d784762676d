package pattern

import (
	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// CupWithHandleDetector finds a rounded base followed by a shallow
// pullback. Peaks are measured on highs and troughs on lows, matching
// how exits are evaluated against intraday extremes.
type CupWithHandleDetector struct {
	windowSize int
}

// NewCupWithHandleDetector creates a detector scanning windows of the
// given size.
func NewCupWithHandleDetector(windowSize int) Detector {
	return &CupWithHandleDetector{windowSize: windowSize}
}

// Kind returns the formation kind this detector produces.
func (d *CupWithHandleDetector) Kind() types.FormationKind {
	return types.FormationCupWithHandle
}

// MinWindow returns the minimum number of bars Detect needs.
func (d *CupWithHandleDetector) MinWindow() int {
	return d.windowSize
}

// Detect scans the window for a cup-with-handle shape.
func (d *CupWithHandleDetector) Detect(window []types.Bar) (optional.Option[types.Formation], error) {
	n := len(window)
	if n < d.windowSize {
		return nil, errors.NewInsufficientDataErrorf(d.windowSize, n, instrumentOf(window),
			"cup-with-handle needs %d bars, got %d", d.windowSize, n)
	}

	// Trough must sit in the middle band of the window.
	troughStart := int(float64(n) * CupTroughPositionMin)
	troughEnd := int(float64(n) * CupTroughPositionMax)

	troughIdx := troughStart
	for i := troughStart; i < troughEnd; i++ {
		if window[i].Low < window[troughIdx].Low {
			troughIdx = i
		}
	}

	trough := window[troughIdx].Low

	// Left peak is the highest high before the trough.
	peakIdx := 0
	for i := 1; i < troughIdx; i++ {
		if window[i].High > window[peakIdx].High {
			peakIdx = i
		}
	}

	leftPeak := window[peakIdx].High
	if leftPeak <= trough {
		return optional.None[types.Formation](), nil
	}

	depth := (leftPeak - trough) / leftPeak
	if depth < CupDepthMin || depth > CupDepthMax {
		return optional.None[types.Formation](), nil
	}

	// Handle high is the recovery high after the trough; the handle
	// low is the deepest pullback from that high through the end of
	// the window.
	handleHighIdx := troughIdx + 1
	for i := troughIdx + 1; i < n; i++ {
		if window[i].High > window[handleHighIdx].High {
			handleHighIdx = i
		}
	}

	if handleHighIdx >= n-1 {
		// No bars left to form a pullback.
		return optional.None[types.Formation](), nil
	}

	handleHigh := window[handleHighIdx].High

	handleLow := window[handleHighIdx+1].Low
	for i := handleHighIdx + 1; i < n; i++ {
		if window[i].Low < handleLow {
			handleLow = window[i].Low
		}
	}

	// Handle must stay in the upper part of the cup's range.
	handlePosition := (handleLow - trough) / (leftPeak - trough)
	if handlePosition < HandleLowPositionMin {
		return optional.None[types.Formation](), nil
	}

	handleDepth := (handleHigh - handleLow) / handleHigh
	if handleDepth > HandleDepthMax {
		return optional.None[types.Formation](), nil
	}

	entry := window[n-1].Close
	conservative := leftPeak
	aggressive := conservative + (leftPeak - trough)

	formation := types.Formation{
		Kind:        types.FormationCupWithHandle,
		Instrument:  window[0].Instrument,
		WindowStart: window[0].Date,
		WindowEnd:   window[n-1].Date,
		Levels: map[string]float64{
			types.LevelLeftPeak:   leftPeak,
			types.LevelTrough:     trough,
			types.LevelHandleHigh: handleHigh,
			types.LevelHandleLow:  handleLow,
		},
		EntryPrice:         entry,
		ConservativeTarget: conservative,
		AggressiveTarget:   aggressive,
	}

	return optional.Some(formation), nil
}

func instrumentOf(window []types.Bar) string {
	if len(window) == 0 {
		return ""
	}

	return window[0].Instrument
}
