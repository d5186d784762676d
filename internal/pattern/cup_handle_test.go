package pattern

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

type CupWithHandleTestSuite struct {
	suite.Suite
	detector Detector
}

func TestCupWithHandleSuite(t *testing.T) {
	suite.Run(t, new(CupWithHandleTestSuite))
}

func (suite *CupWithHandleTestSuite) SetupTest() {
	suite.detector = NewCupWithHandleDetector(60)
}

// cupCloses synthesizes a clean cup-with-handle across 60 bars: flat
// at 100, decline to 80 at bar 30, recovery to 98 at bar 50, a shallow
// pullback to 92, and a final push back to 95. The depthScale factor
// stretches or squeezes the cup's drop around the 100 starting level.
func cupCloses(depthScale float64) []float64 {
	closes := make([]float64, 60)

	for i := range closes {
		var v float64

		switch {
		case i <= 5:
			v = 100.0
		case i <= 30:
			v = 100.0 - float64(i-5)*0.8*depthScale
		case i <= 50:
			v = closes[30] + float64(i-30)*0.9*depthScale
		case i <= 55:
			v = closes[50] - float64(i-50)*1.2*depthScale
		default:
			v = closes[55] + float64(i-55)*0.75*depthScale
		}

		closes[i] = v
	}

	return closes
}

func (suite *CupWithHandleTestSuite) TestDetectCleanCup() {
	bars := synthBars("AAPL", cupCloses(1.0))

	found, err := suite.detector.Detect(bars)
	suite.NoError(err)
	suite.True(found.IsSome())

	formation := found.Unwrap()
	suite.Equal(types.FormationCupWithHandle, formation.Kind)
	suite.Equal("AAPL", formation.Instrument)
	suite.Equal(bars[0].Date, formation.WindowStart)
	suite.Equal(bars[59].Date, formation.WindowEnd)

	// Peak 100.5, trough 79.5, handle high 98.5, handle low 91.5.
	peak, ok := formation.Level(types.LevelLeftPeak)
	suite.True(ok)
	suite.InDelta(100.5, peak, 0.01)

	trough, ok := formation.Level(types.LevelTrough)
	suite.True(ok)
	suite.InDelta(79.5, trough, 0.01)

	handleLow, ok := formation.Level(types.LevelHandleLow)
	suite.True(ok)
	suite.InDelta(91.5, handleLow, 0.01)

	suite.InDelta(95.0, formation.EntryPrice, 0.01)
	suite.InDelta(100.5, formation.ConservativeTarget, 0.01)
	// Measured move: conservative plus the cup's height.
	suite.InDelta(121.5, formation.AggressiveTarget, 0.01)

	suite.NoError(formation.Validate())
}

func (suite *CupWithHandleTestSuite) TestRejectsBadGeometry() {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"too shallow", cupCloses(0.1)},   // ~2% depth, under the 8% floor
		{"too deep", cupCloses(2.5)},      // ~50% depth, over the 40% ceiling
		{"flat series", flatCloses(60, 100)},
		{"monotonic rise", rampCloses(60, 80, 0.5)},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			found, err := suite.detector.Detect(synthBars("AAPL", tc.closes))
			suite.NoError(err)
			suite.True(found.IsNone())
		})
	}
}

func (suite *CupWithHandleTestSuite) TestRejectsDeepHandle() {
	// Pull the handle back down near the cup bottom.
	closes := cupCloses(1.0)
	for i := 51; i < 60; i++ {
		closes[i] = 81.0
	}

	found, err := suite.detector.Detect(synthBars("AAPL", closes))
	suite.NoError(err)
	suite.True(found.IsNone())
}

func (suite *CupWithHandleTestSuite) TestShortWindowDeclines() {
	bars := synthBars("AAPL", cupCloses(1.0))[:30]

	_, err := suite.detector.Detect(bars)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))

	var insufficient *errors.InsufficientDataError
	suite.ErrorAs(err, &insufficient)
	suite.Equal(60, insufficient.Required)
	suite.Equal(30, insufficient.Actual)
}

func flatCloses(n int, level float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = level
	}

	return closes
}

func rampCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}

	return closes
}
