package portfolio

import (
	"math"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// tradingDaysPerYear annualizes the Sharpe ratio from daily returns.
const tradingDaysPerYear = 252

// Stats derives the run's aggregate performance metrics from the
// trade log, closed-trade outcomes and the snapshot series.
func (l *Ledger) Stats() types.PerformanceStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := types.PerformanceStats{}

	initial, _ := l.initialCapital.Float64()
	equity := l.totalEquityLocked()

	if initial > 0 {
		stats.TotalReturnPct = (equity - initial) / initial * 100
	}

	costs, _ := l.costsPaid.Float64()
	stats.TotalCosts = costs

	for _, position := range l.positions {
		stats.UnrealizedPnL += position.UnrealizedPnL()
	}

	var winPctSum, lossPctSum float64

	for _, outcome := range l.closedOutcomes {
		stats.ClosedTrades++
		stats.RealizedPnL += outcome.pnl

		if outcome.pnl > 0 {
			stats.WinningTrades++
			winPctSum += outcome.pct
		} else {
			stats.LosingTrades++
			lossPctSum += outcome.pct
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.ClosedTrades)
	}

	if stats.WinningTrades > 0 {
		stats.AvgWinPct = winPctSum / float64(stats.WinningTrades)
	}

	if stats.LosingTrades > 0 {
		stats.AvgLossPct = lossPctSum / float64(stats.LosingTrades)
	}

	stats.SharpeRatio = sharpeRatio(l.snapshots)
	stats.MaxDrawdownPct = maxDrawdown(l.snapshots)

	return stats
}

// sharpeRatio annualizes the mean/stddev of daily snapshot returns.
// Zero when there are too few snapshots or the returns never vary.
func sharpeRatio(snapshots []types.Snapshot) float64 {
	if len(snapshots) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(snapshots)-1)

	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev == 0 {
			continue
		}

		returns = append(returns, (snapshots[i].TotalValue-prev)/prev)
	}

	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough equity decline in
// percent.
func maxDrawdown(snapshots []types.Snapshot) float64 {
	peak := 0.0
	worst := 0.0

	for _, snapshot := range snapshots {
		if snapshot.TotalValue > peak {
			peak = snapshot.TotalValue
		}

		if peak == 0 {
			continue
		}

		drawdown := (peak - snapshot.TotalValue) / peak * 100
		if drawdown > worst {
			worst = drawdown
		}
	}

	return worst
}
