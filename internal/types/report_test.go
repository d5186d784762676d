package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ReportTestSuite struct {
	suite.Suite
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

func (suite *ReportTestSuite) TestWriteReport() {
	dir := suite.T().TempDir()
	path := filepath.Join(dir, "report.yaml")

	report := Report{
		ID:             "run-1",
		Timestamp:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		EngineVersion:  "v1.0.0",
		StartDate:      time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		FinalEquity:    112500,
		Stats: PerformanceStats{
			TotalReturnPct: 12.5,
			SharpeRatio:    1.4,
			MaxDrawdownPct: 6.2,
			WinRate:        0.6,
			ClosedTrades:   10,
		},
		Trades: []Trade{
			{
				ID:          "t1",
				Instrument:  "AAPL",
				Side:        SideBuy,
				Quantity:    10,
				FilledPrice: 100.05,
				Reason:      Reason{Reason: TradeReasonSignalEntry, Message: "approved entry"},
			},
		},
		Snapshots: []Snapshot{
			{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), TotalValue: 100000},
		},
		Formations: []FormationAudit{
			{
				Instrument: "AAPL",
				Date:       time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
				Kind:       FormationCupWithHandle,
				Validation: ValidationResult{
					Kind:                FormationCupWithHandle,
					OccurrenceCount:     20,
					ConservativeHitRate: 0.8,
					Approved:            true,
					ApprovedTarget:      TargetConservative,
				},
				Entered: true,
			},
		},
	}

	suite.NoError(WriteReport(path, report))

	data, err := os.ReadFile(path)
	suite.NoError(err)

	var loaded Report
	suite.NoError(yaml.Unmarshal(data, &loaded))
	suite.Equal(report.ID, loaded.ID)
	suite.Equal(report.FinalEquity, loaded.FinalEquity)
	suite.Len(loaded.Trades, 1)
	suite.Len(loaded.Formations, 1)
	suite.True(loaded.Formations[0].Validation.Approved)
	suite.Equal(TargetConservative, loaded.Formations[0].Validation.ApprovedTarget)
}

func (suite *ReportTestSuite) TestWriteReportBadPath() {
	err := WriteReport(filepath.Join("does", "not", "exist", "report.yaml"), Report{})
	suite.Error(err)
}

func (suite *ReportTestSuite) TestHoldDecision() {
	d := Hold()
	suite.Equal(ActionHold, d.Action)
	suite.Zero(d.Confidence)
}
