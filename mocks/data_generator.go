package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// DataGenerator produces synthetic daily bar series for testing and
// benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bar series are generated.
type GeneratorConfig struct {
	// Instrument is the ticker the bars are attributed to.
	Instrument string
	// StartDate is the first bar's date. Subsequent bars advance one
	// calendar day at a time.
	StartDate time.Time
	// Count is the number of bars to generate.
	Count int
	// InitialPrice is the starting close.
	InitialPrice float64
	// Volatility controls daily price movement (0.01 = 1% typical).
	Volatility float64
	// Trend is the total drift across the whole series
	// (-0.1 to 0.1 for bearish to bullish).
	Trend float64
	// VolumeBase is the average volume per bar.
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0).
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Instrument:     "TEST",
		StartDate:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:          500,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     100000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a bar series following geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentDate := config.StartDate

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal deviate.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Instrument: config.Instrument,
			Date:       currentDate,
			Open:       roundToDecimals(open, 4),
			High:       roundToDecimals(high, 4),
			Low:        roundToDecimals(low, 4),
			Close:      roundToDecimals(close, 4),
			Volume:     roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentDate = currentDate.AddDate(0, 0, 1)
	}

	return bars
}

// GenerateMultiInstrument generates an independent series per instrument,
// with the initial price and volatility varied slightly per instrument.
func (g *DataGenerator) GenerateMultiInstrument(instruments []string, baseConfig GeneratorConfig) []types.Bar {
	var allBars []types.Bar

	for _, instrument := range instruments {
		config := baseConfig
		config.Instrument = instrument
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		allBars = append(allBars, g.Generate(config)...)
	}

	return allBars
}

// GenerateFromCloses builds a deterministic bar series from explicit
// closes. Highs sit half a point above the close and lows half a point
// below, which keeps shaped fixtures (bases, pullbacks, crossovers)
// easy to reason about.
func GenerateFromCloses(instrument string, start time.Time, closes []float64) []types.Bar {
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}

		bars[i] = types.Bar{
			Instrument: instrument,
			Date:       start.AddDate(0, 0, i),
			Open:       open,
			High:       c + 0.5,
			Low:        c - 0.5,
			Close:      c,
			Volume:     100000,
		}
	}

	return bars
}

// CupCloses returns a close series shaped like a cup with a handle:
// a flat left rim, a rounded decline and recovery, then a shallow
// pullback near the rim. The series ends just below the rim so a
// breakout can be staged by appending higher bars.
func CupCloses(count int, rim float64) []float64 {
	if count < 20 {
		count = 20
	}

	closes := make([]float64, count)
	flat := count / 12
	troughIdx := count / 2
	handleStart := count - count/6
	trough := rim * 0.8

	for i := 0; i < count; i++ {
		switch {
		case i < flat:
			closes[i] = rim
		case i < troughIdx:
			frac := float64(i-flat) / float64(troughIdx-flat)
			closes[i] = rim - (rim-trough)*frac
		case i < handleStart:
			frac := float64(i-troughIdx) / float64(handleStart-troughIdx)
			closes[i] = trough + (rim*0.95-trough)*frac
		default:
			frac := float64(i-handleStart) / float64(count-handleStart)
			closes[i] = rim*0.95 - rim*0.03*frac
		}
	}

	return closes
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
