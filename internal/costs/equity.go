package costs

import (
	"github.com/shopspring/decimal"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Charge rates for a cash-equity brokerage account. Brokerage applies
// to both sides, the exchange levy only to sells, stamp duty only to
// buys, and tax compounds on top of the fee components.
var (
	brokerageRate = decimal.RequireFromString("0.0003")  // 0.03% of notional, both sides
	levyRate      = decimal.RequireFromString("0.00025") // 0.025% of notional, sell only
	dutyRate      = decimal.RequireFromString("0.00003") // 0.003% of notional, buy only
	taxRate       = decimal.RequireFromString("0.18")    // 18% on brokerage + levy + duty
	slippageRate  = decimal.RequireFromString("0.0005")  // 0.05% adverse price movement
)

// EquityModel implements Model with the charge schedule above.
type EquityModel struct{}

// NewEquityModel creates a cost model for cash-equity trades.
func NewEquityModel() Model {
	return &EquityModel{}
}

// Cost itemizes the charges on a fill of the given notional value.
// The same inputs always produce the same breakdown.
func (m *EquityModel) Cost(notional decimal.Decimal, side types.Side) Breakdown {
	b := Breakdown{
		Brokerage: notional.Mul(brokerageRate),
		Levy:      decimal.Zero,
		Duty:      decimal.Zero,
	}

	switch side {
	case types.SideSell:
		b.Levy = notional.Mul(levyRate)
	case types.SideBuy:
		b.Duty = notional.Mul(dutyRate)
	}

	b.Tax = b.Brokerage.Add(b.Levy).Add(b.Duty).Mul(taxRate)

	return b
}

// FillPrice applies slippage to the requested price.
func (m *EquityModel) FillPrice(requested decimal.Decimal, side types.Side) decimal.Decimal {
	slip := requested.Mul(slippageRate)

	if side == types.SideBuy {
		return requested.Add(slip)
	}

	return requested.Sub(slip)
}
