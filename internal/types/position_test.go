package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestCostBasis() {
	tests := []struct {
		name     string
		position Position
		expected float64
	}{
		{
			name:     "simple basis",
			position: Position{Quantity: 10, AvgEntryPrice: 100.5},
			expected: 1005.0,
		},
		{
			name:     "zero quantity",
			position: Position{Quantity: 0, AvgEntryPrice: 100.0},
			expected: 0,
		},
		{
			name:     "fractional price",
			position: Position{Quantity: 3, AvgEntryPrice: 33.33},
			expected: 99.99,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, tc.position.CostBasis(), 1e-9)
		})
	}
}

func (suite *PositionTestSuite) TestMarketValue() {
	p := Position{Quantity: 10, AvgEntryPrice: 100, LastMark: 110, Open: true}
	suite.InDelta(1100.0, p.MarketValue(), 1e-9)

	// Unmarked positions fall back to cost basis.
	unmarked := Position{Quantity: 10, AvgEntryPrice: 100, Open: true}
	suite.InDelta(1000.0, unmarked.MarketValue(), 1e-9)
}

func (suite *PositionTestSuite) TestUnrealizedPnL() {
	tests := []struct {
		name     string
		position Position
		expected float64
	}{
		{
			name:     "gain",
			position: Position{Quantity: 10, AvgEntryPrice: 100, LastMark: 105, Open: true},
			expected: 50,
		},
		{
			name:     "loss",
			position: Position{Quantity: 10, AvgEntryPrice: 100, LastMark: 92.5, Open: true},
			expected: -75,
		},
		{
			name:     "closed position has none",
			position: Position{Quantity: 10, AvgEntryPrice: 100, LastMark: 105, Open: false},
			expected: 0,
		},
		{
			name:     "never marked",
			position: Position{Quantity: 10, AvgEntryPrice: 100, Open: true},
			expected: 0,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, tc.position.UnrealizedPnL(), 1e-9)
		})
	}
}

func (suite *PositionTestSuite) TestTradeNotional() {
	trade := Trade{
		ID:          "t1",
		Instrument:  "AAPL",
		Side:        SideBuy,
		Quantity:    7,
		FilledPrice: 101.25,
		Timestamp:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	suite.InDelta(708.75, trade.Notional(), 1e-9)
}
