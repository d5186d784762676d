package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pattern-lab/formation-trading/internal/costs"
	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	ledger, err := NewLedger(100000, costs.NewZeroModel(), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.ledger = ledger
}

func day(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func entryOrder(instrument string, quantity int64, price float64) OpenOrder {
	return OpenOrder{
		Instrument: instrument,
		Quantity:   quantity,
		Price:      price,
		StopLoss:   price * 0.95,
		Target:     price * 1.10,
		Date:       day(0),
		Reason:     types.Reason{Reason: types.TradeReasonSignalEntry},
	}
}

func (suite *LedgerTestSuite) TestNewLedgerRejectsBadCapital() {
	_, err := NewLedger(0, costs.NewZeroModel(), nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = NewLedger(-5, costs.NewZeroModel(), nil)
	suite.Error(err)
}

func (suite *LedgerTestSuite) TestOpen() {
	trade, err := suite.ledger.Open(entryOrder("AAPL", 100, 150))
	suite.NoError(err)
	suite.Equal(types.SideBuy, trade.Side)
	suite.Equal(int64(100), trade.Quantity)
	suite.InDelta(150, trade.FilledPrice, 0.001)
	suite.NotEmpty(trade.ID)

	suite.InDelta(85000, suite.ledger.Cash(), 0.001)

	position, exists := suite.ledger.Position("AAPL")
	suite.True(exists)
	suite.True(position.Open)
	suite.InDelta(150, position.AvgEntryPrice, 0.001)
	suite.Equal(1, suite.ledger.OpenPositionCount())
}

func (suite *LedgerTestSuite) TestDoubleOpenIsFatal() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 100, 150))
	suite.Require().NoError(err)

	_, err = suite.ledger.Open(entryOrder("AAPL", 10, 151))
	suite.Error(err)
	suite.True(errors.IsInvariantViolation(err))
	suite.Equal(errors.ErrCodeDoubleOpen, errors.GetCode(err))

	var violation *errors.InvariantViolationError
	suite.ErrorAs(err, &violation)
	suite.Contains(violation.StateDump, "AAPL")
}

func (suite *LedgerTestSuite) TestOverdrawIsFatal() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 10000, 150))
	suite.Error(err)
	suite.True(errors.IsInvariantViolation(err))
	suite.Equal(errors.ErrCodeNegativeCash, errors.GetCode(err))
}

func (suite *LedgerTestSuite) TestOpenValidation() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 0, 150))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))

	_, err = suite.ledger.Open(entryOrder("AAPL", 10, -1))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPrice))
}

func (suite *LedgerTestSuite) TestCloseRealizesPnL() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 100, 150))
	suite.Require().NoError(err)

	trade, err := suite.ledger.Close("AAPL", 165, day(10), types.Reason{Reason: types.TradeReasonTarget})
	suite.NoError(err)
	suite.Equal(types.SideSell, trade.Side)
	suite.InDelta(1500, trade.PnL, 0.001)

	suite.InDelta(101500, suite.ledger.Cash(), 0.001)
	suite.Equal(0, suite.ledger.OpenPositionCount())

	_, exists := suite.ledger.Position("AAPL")
	suite.False(exists)
}

func (suite *LedgerTestSuite) TestCloseWithoutOpenIsFatal() {
	_, err := suite.ledger.Close("AAPL", 165, day(10), types.Reason{Reason: types.TradeReasonTarget})
	suite.Error(err)
	suite.True(errors.IsInvariantViolation(err))
	suite.Equal(errors.ErrCodeNoOpenPosition, errors.GetCode(err))
}

func (suite *LedgerTestSuite) TestMarkAndSnapshot() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 100, 150))
	suite.Require().NoError(err)

	suite.ledger.Mark(map[string]float64{"AAPL": 160, "MSFT": 300})

	position, _ := suite.ledger.Position("AAPL")
	suite.InDelta(160, position.LastMark, 0.001)
	suite.InDelta(1000, position.UnrealizedPnL(), 0.001)

	// Marking never moves cash.
	suite.InDelta(85000, suite.ledger.Cash(), 0.001)
	suite.InDelta(101000, suite.ledger.TotalEquity(), 0.001)

	suite.ledger.Snapshot(day(1))

	snapshots := suite.ledger.Snapshots()
	suite.Len(snapshots, 1)
	suite.InDelta(101000, snapshots[0].TotalValue, 0.001)
}

func (suite *LedgerTestSuite) TestConservationWithCosts() {
	ledger, err := NewLedger(100000, costs.NewEquityModel(), logger.NewNopLogger())
	suite.Require().NoError(err)

	suite.NoError(ledger.Reconcile())

	_, err = ledger.Open(entryOrder("AAPL", 100, 150))
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())

	_, err = ledger.Open(entryOrder("MSFT", 50, 300))
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())

	_, err = ledger.Close("AAPL", 165, day(5), types.Reason{Reason: types.TradeReasonTarget})
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())

	_, err = ledger.Close("MSFT", 285, day(7), types.Reason{Reason: types.TradeReasonStopLoss})
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())

	// Slippage and charges both worked against the trader.
	trades := ledger.Trades()
	suite.Len(trades, 4)

	for _, trade := range trades {
		suite.Positive(trade.Cost)

		if trade.Side == types.SideBuy {
			suite.Greater(trade.FilledPrice, trade.RequestedPrice)
		} else {
			suite.Less(trade.FilledPrice, trade.RequestedPrice)
		}
	}
}

func (suite *LedgerTestSuite) TestConservationSurvivesLongMantissaFills() {
	// Slippage on this price produces a decimal with more significant
	// digits than a float64 round-trip preserves. Conservation must
	// hold off the exact fills, not the reported entry price.
	ledger, err := NewLedger(1000000, costs.NewEquityModel(), logger.NewNopLogger())
	suite.Require().NoError(err)

	_, err = ledger.Open(entryOrder("AAPL", 1000, 33.333333333333336))
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())

	ledger.Mark(map[string]float64{"AAPL": 34.1})
	suite.NoError(ledger.Reconcile())

	_, err = ledger.Close("AAPL", 35.714285714285715, day(6), types.Reason{Reason: types.TradeReasonTarget})
	suite.Require().NoError(err)
	suite.NoError(ledger.Reconcile())
}

func (suite *LedgerTestSuite) TestMaxAffordableQuantity() {
	suite.Equal(int64(1000), suite.ledger.MaxAffordableQuantity(100))
	suite.Equal(int64(0), suite.ledger.MaxAffordableQuantity(0))
	suite.Equal(int64(0), suite.ledger.MaxAffordableQuantity(-5))

	_, err := suite.ledger.Open(entryOrder("AAPL", 900, 100))
	suite.Require().NoError(err)
	suite.Equal(int64(100), suite.ledger.MaxAffordableQuantity(100))
}

func (suite *LedgerTestSuite) TestMaxAffordableQuantityCoversCosts() {
	ledger, err := NewLedger(100000, costs.NewEquityModel(), logger.NewNopLogger())
	suite.Require().NoError(err)

	quantity := ledger.MaxAffordableQuantity(150)
	suite.Positive(quantity)

	// The returned size must settle; one share more must not.
	_, err = ledger.Open(entryOrder("AAPL", quantity, 150))
	suite.NoError(err)

	over, err := NewLedger(100000, costs.NewEquityModel(), logger.NewNopLogger())
	suite.Require().NoError(err)

	_, err = over.Open(entryOrder("AAPL", quantity+1, 150))
	suite.Error(err)
	suite.Equal(errors.ErrCodeNegativeCash, errors.GetCode(err))
}

func (suite *LedgerTestSuite) TestClosedPositionsCarryRealizedPnL() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 100, 150))
	suite.Require().NoError(err)
	suite.Empty(suite.ledger.ClosedPositions())

	_, err = suite.ledger.Close("AAPL", 165, day(10), types.Reason{Reason: types.TradeReasonTarget})
	suite.Require().NoError(err)

	closed := suite.ledger.ClosedPositions()
	suite.Require().Len(closed, 1)
	suite.Equal("AAPL", closed[0].Instrument)
	suite.False(closed[0].Open)
	suite.InDelta(1500, closed[0].RealizedPnL, 0.001)
	suite.InDelta(165, closed[0].LastMark, 0.001)
	suite.Zero(closed[0].UnrealizedPnL())
}

func (suite *LedgerTestSuite) TestStats() {
	_, err := suite.ledger.Open(entryOrder("AAPL", 100, 100))
	suite.Require().NoError(err)
	_, err = suite.ledger.Close("AAPL", 110, day(5), types.Reason{Reason: types.TradeReasonTarget})
	suite.Require().NoError(err)

	_, err = suite.ledger.Open(entryOrder("MSFT", 100, 100))
	suite.Require().NoError(err)
	_, err = suite.ledger.Close("MSFT", 95, day(8), types.Reason{Reason: types.TradeReasonStopLoss})
	suite.Require().NoError(err)

	stats := suite.ledger.Stats()
	suite.Equal(2, stats.ClosedTrades)
	suite.Equal(1, stats.WinningTrades)
	suite.Equal(1, stats.LosingTrades)
	suite.InDelta(0.5, stats.WinRate, 0.001)
	suite.InDelta(10, stats.AvgWinPct, 0.001)
	suite.InDelta(-5, stats.AvgLossPct, 0.001)
	suite.InDelta(500, stats.RealizedPnL, 0.001)
	suite.InDelta(0.5, stats.TotalReturnPct, 0.001)
	suite.Zero(stats.TotalCosts)
}

func (suite *LedgerTestSuite) TestDrawdownAndSharpe() {
	// Equity path 100k -> 110k -> 99k -> 104.5k: worst decline is
	// 10% off the 110k peak.
	values := []float64{100000, 110000, 99000, 104500}
	snapshots := make([]types.Snapshot, len(values))

	for i, v := range values {
		snapshots[i] = types.Snapshot{Date: day(i), TotalValue: v}
	}

	suite.InDelta(10, maxDrawdown(snapshots), 0.001)
	suite.NotZero(sharpeRatio(snapshots))

	// A flat equity curve has no variance and no drawdown.
	flat := []types.Snapshot{
		{Date: day(0), TotalValue: 100000},
		{Date: day(1), TotalValue: 100000},
		{Date: day(2), TotalValue: 100000},
	}
	suite.Zero(maxDrawdown(flat))
	suite.Zero(sharpeRatio(flat))
}
