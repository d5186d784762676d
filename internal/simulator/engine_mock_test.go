package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/pattern-lab/formation-trading/internal/decision"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/mocks"
)

type EngineMockTestSuite struct {
	suite.Suite
	base time.Time
	ctrl *gomock.Controller
}

func TestEngineMockTestSuite(t *testing.T) {
	suite.Run(t, new(EngineMockTestSuite))
}

func (suite *EngineMockTestSuite) SetupTest() {
	suite.base = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *EngineMockTestSuite) day(i int) time.Time {
	return suite.base.AddDate(0, 0, i)
}

// An external source that answers "sell" to every held-position check
// must close the position at the day's close on the next scheduled
// signal check, and only then.
func (suite *EngineMockTestSuite) TestExitSignalClosesAtScheduledCheck() {
	store := buildReplayStore(suite.T(), suite.base, false)

	source := mocks.NewMockSource(suite.ctrl)
	source.EXPECT().Name().Return("scripted").AnyTimes()
	source.EXPECT().Decide(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req decision.Request) (types.Decision, error) {
			if req.Formation.IsNone() {
				// Held-position check.
				return types.Decision{Action: types.ActionSell, Rationale: "scripted exit"}, nil
			}

			return types.Decision{
				Action:    types.ActionBuy,
				StopLoss:  95,
				Target:    120,
				Rationale: "scripted entry",
			}, nil
		}).AnyTimes()

	config := TestConfig([]string{"AAPL"}, suite.day(100), suite.day(115))

	engine, err := NewEngine(config, store, source, nil, nil)
	suite.Require().NoError(err)

	for _, kind := range engine.registry.List() {
		suite.Require().NoError(engine.registry.Remove(kind))
	}

	suite.Require().NoError(engine.registry.Register(&breakoutDetector{}))

	report, err := engine.Run(context.Background())
	suite.Require().NoError(err)

	// Entry on day 101, scripted exits on the scheduled checks at
	// days 105, 110 and 115 with same-day re-entries in between.
	suite.Require().Len(report.Trades, 6)

	suite.Equal(suite.day(101), report.Trades[0].Timestamp)
	suite.Equal(types.SideBuy, report.Trades[0].Side)

	for _, idx := range []int{1, 3, 5} {
		suite.Equal(types.SideSell, report.Trades[idx].Side)
		suite.Equal(types.TradeReasonSignalExit, report.Trades[idx].Reason.Reason)
		suite.Equal(100.0, report.Trades[idx].FilledPrice)
	}

	suite.Equal(suite.day(105), report.Trades[1].Timestamp)
	suite.Equal(suite.day(105), report.Trades[2].Timestamp)
	suite.Equal(suite.day(110), report.Trades[3].Timestamp)
	suite.Equal(suite.day(115), report.Trades[5].Timestamp)

	suite.InDelta(100000.0, report.FinalEquity, 1e-9)
}

// A source that keeps failing must degrade to "no action": no entries,
// no exits, no error surfaced from the run.
func (suite *EngineMockTestSuite) TestFailingSourceDegradesToHold() {
	store := buildReplayStore(suite.T(), suite.base, false)

	source := mocks.NewMockSource(suite.ctrl)
	source.EXPECT().Name().Return("broken").AnyTimes()
	source.EXPECT().Decide(gomock.Any(), gomock.Any()).
		Return(types.Decision{}, context.DeadlineExceeded).AnyTimes()

	config := TestConfig([]string{"AAPL"}, suite.day(100), suite.day(115))

	engine, err := NewEngine(config, store, source, nil, nil)
	suite.Require().NoError(err)

	for _, kind := range engine.registry.List() {
		suite.Require().NoError(engine.registry.Remove(kind))
	}

	suite.Require().NoError(engine.registry.Register(&breakoutDetector{}))

	report, err := engine.Run(context.Background())
	suite.Require().NoError(err)
	suite.Empty(report.Trades)
	suite.InDelta(100000.0, report.FinalEquity, 1e-9)
}
