package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattern-lab/formation-trading/internal/pattern"
	"github.com/pattern-lab/formation-trading/internal/types"
)

func TestGenerateProducesValidBars(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 250

	bars := gen.Generate(config)
	require.Len(t, bars, 250)

	for i, bar := range bars {
		assert.Equal(t, "TEST", bar.Instrument)
		assert.GreaterOrEqual(t, bar.High, bar.Open)
		assert.GreaterOrEqual(t, bar.High, bar.Close)
		assert.LessOrEqual(t, bar.Low, bar.Open)
		assert.LessOrEqual(t, bar.Low, bar.Close)
		assert.Greater(t, bar.Low, 0.0)
		assert.Greater(t, bar.Volume, 0.0)

		if i > 0 {
			assert.True(t, bars[i-1].Date.Before(bar.Date))
		}
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	config := DefaultConfig()
	config.Count = 100

	first := NewDataGenerator(7).Generate(config)
	second := NewDataGenerator(7).Generate(config)

	assert.Equal(t, first, second)
}

func TestGenerateMultiInstrument(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 50

	bars := gen.GenerateMultiInstrument([]string{"AAPL", "MSFT"}, config)
	require.Len(t, bars, 100)
	assert.Equal(t, "AAPL", bars[0].Instrument)
	assert.Equal(t, "MSFT", bars[50].Instrument)
	assert.NotEqual(t, bars[0].Close, bars[50].Close)
}

func TestGenerateFromCloses(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := GenerateFromCloses("AAPL", start, []float64{100, 101, 99})

	require.Len(t, bars, 3)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 100.0, bars[1].Open)
	assert.Equal(t, 101.5, bars[1].High)
	assert.Equal(t, 98.5, bars[2].Low)
	assert.Equal(t, start.AddDate(0, 0, 2), bars[2].Date)
}

func TestCupClosesFormsDetectableCup(t *testing.T) {
	closes := CupCloses(120, 100)
	bars := GenerateFromCloses("AAPL", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), closes)

	detector := pattern.NewCupWithHandleDetector(120)
	result, err := detector.Detect(bars)
	require.NoError(t, err)
	require.True(t, result.IsSome())

	formation := result.Unwrap()
	assert.Equal(t, types.FormationCupWithHandle, formation.Kind)
	assert.Greater(t, formation.ConservativeTarget, formation.EntryPrice)
}
