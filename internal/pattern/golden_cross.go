package pattern

import (
	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// GoldenCrossDetector fires when the fast simple moving average
// crosses above the slow one within the last few bars of the window.
type GoldenCrossDetector struct {
	fastPeriod int
	slowPeriod int
	lookback   int
}

// NewGoldenCrossDetector creates a detector with the conventional
// 50/200 day pair.
func NewGoldenCrossDetector() Detector {
	return &GoldenCrossDetector{
		fastPeriod: FastSMAPeriod,
		slowPeriod: SlowSMAPeriod,
		lookback:   CrossLookback,
	}
}

// Kind returns the formation kind this detector produces.
func (d *GoldenCrossDetector) Kind() types.FormationKind {
	return types.FormationGoldenCross
}

// MinWindow returns the minimum number of bars Detect needs.
func (d *GoldenCrossDetector) MinWindow() int {
	return d.slowPeriod + d.lookback
}

// Detect scans the window for a recent golden cross.
func (d *GoldenCrossDetector) Detect(window []types.Bar) (optional.Option[types.Formation], error) {
	n := len(window)
	if n < d.MinWindow() {
		return nil, errors.NewInsufficientDataErrorf(d.MinWindow(), n, instrumentOf(window),
			"golden cross needs %d bars, got %d", d.MinWindow(), n)
	}

	crossIdx := -1

	for i := n - d.lookback; i < n; i++ {
		fastPrev := sma(window, i-1, d.fastPeriod)
		slowPrev := sma(window, i-1, d.slowPeriod)
		fast := sma(window, i, d.fastPeriod)
		slow := sma(window, i, d.slowPeriod)

		if fastPrev <= slowPrev && fast > slow {
			crossIdx = i
			break
		}
	}

	if crossIdx < 0 {
		return optional.None[types.Formation](), nil
	}

	fast := sma(window, n-1, d.fastPeriod)
	slow := sma(window, n-1, d.slowPeriod)

	// Targets project from the slow-period trading range: the range
	// high is the first resistance, the range extended by its own
	// height the measured move.
	rangeHigh := window[n-d.slowPeriod].High
	rangeLow := window[n-d.slowPeriod].Low

	for i := n - d.slowPeriod; i < n; i++ {
		if window[i].High > rangeHigh {
			rangeHigh = window[i].High
		}

		if window[i].Low < rangeLow {
			rangeLow = window[i].Low
		}
	}

	entry := window[n-1].Close
	if rangeHigh <= entry {
		// Already trading above the range; no resistance to break.
		return optional.None[types.Formation](), nil
	}

	conservative := rangeHigh
	aggressive := conservative + (rangeHigh - rangeLow)

	formation := types.Formation{
		Kind:        types.FormationGoldenCross,
		Instrument:  window[0].Instrument,
		WindowStart: window[0].Date,
		WindowEnd:   window[n-1].Date,
		Levels: map[string]float64{
			types.LevelFastSMA:  fast,
			types.LevelSlowSMA:  slow,
			types.LevelLeftPeak: rangeHigh,
			types.LevelTrough:   rangeLow,
		},
		EntryPrice:         entry,
		ConservativeTarget: conservative,
		AggressiveTarget:   aggressive,
	}

	return optional.Some(formation), nil
}

// sma averages closes over the period ending at index i inclusive.
func sma(window []types.Bar, i, period int) float64 {
	sum := 0.0
	for j := i - period + 1; j <= i; j++ {
		sum += window[j].Close
	}

	return sum / float64(period)
}
