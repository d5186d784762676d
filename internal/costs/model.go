package costs

import (
	"github.com/shopspring/decimal"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Breakdown itemizes the transaction charges on a single fill.
type Breakdown struct {
	Brokerage decimal.Decimal `json:"brokerage" yaml:"brokerage"`
	Levy      decimal.Decimal `json:"levy" yaml:"levy"`
	Duty      decimal.Decimal `json:"duty" yaml:"duty"`
	Tax       decimal.Decimal `json:"tax" yaml:"tax"`
}

// Total returns the sum of all charge components.
func (b Breakdown) Total() decimal.Decimal {
	return b.Brokerage.Add(b.Levy).Add(b.Duty).Add(b.Tax)
}

// Model prices the friction of executing a trade. Cost itemizes the
// charges on a fill of the given notional value, and FillPrice applies
// slippage to the requested price. Buys fill above the requested price
// and sells below it, so slippage always works against the trader.
type Model interface {
	Cost(notional decimal.Decimal, side types.Side) Breakdown
	FillPrice(requested decimal.Decimal, side types.Side) decimal.Decimal
}

type ModelName string

const (
	ModelEquity ModelName = "equity"
	ModelZero   ModelName = "zero"
)

var AllModels = []any{
	ModelEquity,
	ModelZero,
}

// GetModel returns the cost model for the given name. Unknown names
// fall back to the zero model.
func GetModel(name ModelName) Model {
	switch name {
	case ModelEquity:
		return NewEquityModel()
	case ModelZero:
		return NewZeroModel()
	default:
		return NewZeroModel()
	}
}
