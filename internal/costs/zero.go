package costs

import (
	"github.com/shopspring/decimal"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// ZeroModel implements Model with no charges and no slippage. Useful
// for isolating strategy performance from execution friction.
type ZeroModel struct{}

// NewZeroModel creates a frictionless cost model.
func NewZeroModel() Model {
	return &ZeroModel{}
}

// Cost returns an empty breakdown for any fill.
func (m *ZeroModel) Cost(notional decimal.Decimal, side types.Side) Breakdown {
	return Breakdown{
		Brokerage: decimal.Zero,
		Levy:      decimal.Zero,
		Duty:      decimal.Zero,
		Tax:       decimal.Zero,
	}
}

// FillPrice returns the requested price unchanged.
func (m *ZeroModel) FillPrice(requested decimal.Decimal, side types.Side) decimal.Decimal {
	return requested
}
