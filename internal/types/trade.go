package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade reasons recorded on every fill.
const (
	TradeReasonSignalEntry string = "signal_entry"
	TradeReasonTarget      string = "target"
	TradeReasonStopLoss    string = "stop_loss"
	TradeReasonSignalExit  string = "signal_exit"
	TradeReasonEndOfPeriod string = "end_of_period"
)

// Reason is the machine-readable reason plus a human-readable message
// attached to trades and risk vetoes.
type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// Trade is an immutable record emitted on every fill, open or close.
type Trade struct {
	ID             string    `yaml:"id" json:"id" csv:"id"`
	Instrument     string    `yaml:"instrument" json:"instrument" csv:"instrument"`
	Side           Side      `yaml:"side" json:"side" csv:"side"`
	Quantity       int64     `yaml:"quantity" json:"quantity" csv:"quantity"`
	RequestedPrice float64   `yaml:"requested_price" json:"requested_price" csv:"requested_price"`
	FilledPrice    float64   `yaml:"filled_price" json:"filled_price" csv:"filled_price"`
	// Cost is the total transaction cost charged on the filled notional.
	Cost      float64   `yaml:"cost" json:"cost" csv:"cost"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Reason    Reason    `yaml:"reason" json:"reason" csv:"reason"`
	// PnL is the realized profit and loss for this trade. Zero for opens;
	// for closes it is (filled - entry) * quantity minus the close cost.
	PnL float64 `yaml:"pnl" json:"pnl" csv:"pnl"`
}

// Notional returns quantity * filled price using decimal arithmetic.
func (t Trade) Notional() float64 {
	n, _ := decimal.NewFromInt(t.Quantity).Mul(decimal.NewFromFloat(t.FilledPrice)).Float64()

	return n
}
