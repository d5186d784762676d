package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is the portfolio's total equity at one day's close.
type Snapshot struct {
	Date       time.Time `yaml:"date" json:"date" csv:"date"`
	TotalValue float64   `yaml:"total_value" json:"total_value" csv:"total_value"`
}

// PerformanceStats are the ledger's aggregate metrics, derived at report time.
type PerformanceStats struct {
	TotalReturnPct float64 `yaml:"total_return_pct"`
	// SharpeRatio is annualized from the daily snapshot returns (sqrt 252).
	SharpeRatio    float64 `yaml:"sharpe_ratio"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	WinRate        float64 `yaml:"win_rate"`
	AvgWinPct      float64 `yaml:"avg_win_pct"`
	AvgLossPct     float64 `yaml:"avg_loss_pct"`
	ClosedTrades   int     `yaml:"closed_trades"`
	WinningTrades  int     `yaml:"winning_trades"`
	LosingTrades   int     `yaml:"losing_trades"`
	RealizedPnL    float64 `yaml:"realized_pnl"`
	UnrealizedPnL  float64 `yaml:"unrealized_pnl"`
	TotalCosts     float64 `yaml:"total_costs"`
}

// FormationAudit records every formation that was detected during a run and
// whether it survived validation, with its hit-rate statistics. The audit
// trail exists so a run's entries can be explained after the fact.
type FormationAudit struct {
	Instrument string           `yaml:"instrument" json:"instrument"`
	Date       time.Time        `yaml:"date" json:"date"`
	Kind       FormationKind    `yaml:"kind" json:"kind"`
	Formation  Formation        `yaml:"formation" json:"formation"`
	Validation ValidationResult `yaml:"validation" json:"validation"`
	// Entered is true when the decision source turned the approved
	// formation into an actual position.
	Entered bool `yaml:"entered" json:"entered"`
}

// Report is the structured document a simulation run produces.
type Report struct {
	ID             string           `yaml:"id" json:"id"`
	Timestamp      time.Time        `yaml:"timestamp" json:"timestamp"`
	EngineVersion  string           `yaml:"engine_version" json:"engine_version"`
	StartDate      time.Time        `yaml:"start_date" json:"start_date"`
	EndDate        time.Time        `yaml:"end_date" json:"end_date"`
	InitialCapital float64          `yaml:"initial_capital" json:"initial_capital"`
	FinalEquity    float64          `yaml:"final_equity" json:"final_equity"`
	Stats          PerformanceStats `yaml:"stats" json:"stats"`
	Trades         []Trade          `yaml:"trades" json:"trades"`
	Snapshots      []Snapshot       `yaml:"snapshots" json:"snapshots"`
	Formations     []FormationAudit `yaml:"formations" json:"formations"`
}

// WriteReport marshals the report to YAML and writes it to path.
func WriteReport(path string, report Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to file: %w", err)
	}

	return nil
}
