package risk

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/pattern-lab/formation-trading/internal/portfolio"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Veto reasons reported by CanOpen.
const (
	VetoMaxPositions = "max_positions"
	VetoPositionSize = "position_size"
	VetoRiskPerTrade = "risk_per_trade"
	VetoDrawdown     = "drawdown"
)

// Config holds the portfolio-level risk limits.
type Config struct {
	// MaxConcurrentPositions caps how many instruments may be held at
	// once.
	MaxConcurrentPositions int `yaml:"max_concurrent_positions" json:"max_concurrent_positions" validate:"gt=0"`
	// MaxPositionFraction caps a single position's notional as a
	// fraction of total equity.
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction" validate:"gt=0,lte=1"`
	// MaxRiskPerTrade caps the loss-to-stop of one trade as a
	// fraction of total equity.
	MaxRiskPerTrade float64 `yaml:"max_risk_per_trade" json:"max_risk_per_trade" validate:"gt=0,lte=1"`
	// MaxDrawdownFraction halts new entries once equity has fallen
	// this far from its peak.
	MaxDrawdownFraction float64 `yaml:"max_drawdown_fraction" json:"max_drawdown_fraction" validate:"gt=0,lte=1"`
	// FallbackFraction sizes positions when no trade history exists
	// yet for the Kelly estimate.
	FallbackFraction float64 `yaml:"fallback_fraction" json:"fallback_fraction" validate:"gt=0,lte=1"`
}

// DefaultConfig returns conservative limits.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPositions: 5,
		MaxPositionFraction:    0.20,
		MaxRiskPerTrade:        0.02,
		MaxDrawdownFraction:    0.25,
		FallbackFraction:       0.02,
	}
}

// Proposal describes a candidate entry for the risk checks.
type Proposal struct {
	Instrument string
	Quantity   int64
	EntryPrice float64
	StopLoss   float64
}

// Manager gates proposed entries against portfolio limits and sizes
// positions.
type Manager struct {
	config Config
}

// NewManager creates a manager after validating the config.
func NewManager(config Config) (*Manager, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk config", err)
	}

	return &Manager{config: config}, nil
}

// CanOpen evaluates the four limits independently and reports every
// failing one, so a veto can always be explained.
func (m *Manager) CanOpen(ledger *portfolio.Ledger, proposal Proposal) (bool, []types.Reason) {
	var reasons []types.Reason

	equity := ledger.TotalEquity()

	if ledger.OpenPositionCount() >= m.config.MaxConcurrentPositions {
		reasons = append(reasons, types.Reason{
			Reason: VetoMaxPositions,
			Message: fmt.Sprintf("already holding %d of %d allowed positions",
				ledger.OpenPositionCount(), m.config.MaxConcurrentPositions),
		})
	}

	if equity > 0 {
		notional := float64(proposal.Quantity) * proposal.EntryPrice
		if notional/equity > m.config.MaxPositionFraction {
			reasons = append(reasons, types.Reason{
				Reason: VetoPositionSize,
				Message: fmt.Sprintf("notional %.2f is %.1f%% of equity, limit %.1f%%",
					notional, notional/equity*100, m.config.MaxPositionFraction*100),
			})
		}

		riskAmount := (proposal.EntryPrice - proposal.StopLoss) * float64(proposal.Quantity)
		if riskAmount/equity > m.config.MaxRiskPerTrade {
			reasons = append(reasons, types.Reason{
				Reason: VetoRiskPerTrade,
				Message: fmt.Sprintf("loss to stop %.2f is %.2f%% of equity, limit %.2f%%",
					riskAmount, riskAmount/equity*100, m.config.MaxRiskPerTrade*100),
			})
		}
	}

	if drawdown := currentDrawdown(ledger, equity); drawdown > m.config.MaxDrawdownFraction {
		reasons = append(reasons, types.Reason{
			Reason: VetoDrawdown,
			Message: fmt.Sprintf("equity is %.1f%% off its peak, limit %.1f%%",
				drawdown*100, m.config.MaxDrawdownFraction*100),
		})
	}

	return len(reasons) == 0, reasons
}

// SafeQuantity computes a bounded position size with a half Kelly
// estimate from the run's own closed-trade statistics. With no usable
// history it risks the fallback fraction of equity.
func (m *Manager) SafeQuantity(ledger *portfolio.Ledger, entryPrice float64) int64 {
	if entryPrice <= 0 {
		return 0
	}

	equity := ledger.TotalEquity()
	stats := ledger.Stats()

	fraction := m.config.FallbackFraction

	avgWin := stats.AvgWinPct
	avgLoss := math.Abs(stats.AvgLossPct)

	if stats.ClosedTrades > 0 && avgWin > 0 && avgLoss > 0 {
		kelly := (stats.WinRate*avgWin - (1-stats.WinRate)*avgLoss) / avgWin

		kelly = math.Max(0, math.Min(kelly, m.config.MaxPositionFraction))
		// Half Kelly as a safety margin.
		fraction = kelly / 2
	}

	return int64(math.Floor(fraction * equity / entryPrice))
}

// currentDrawdown measures how far equity sits below its snapshot
// peak, as a fraction.
func currentDrawdown(ledger *portfolio.Ledger, equity float64) float64 {
	peak := equity

	for _, snapshot := range ledger.Snapshots() {
		if snapshot.TotalValue > peak {
			peak = snapshot.TotalValue
		}
	}

	if peak <= 0 {
		return 0
	}

	return (peak - equity) / peak
}
