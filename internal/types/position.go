package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents one open holding. Quantity is fixed at entry; there
// are no partial fills in this engine. A position is closed exactly once.
type Position struct {
	Instrument    string    `yaml:"instrument" json:"instrument" csv:"instrument"`
	Quantity      int64     `yaml:"quantity" json:"quantity" csv:"quantity"`
	AvgEntryPrice float64   `yaml:"avg_entry_price" json:"avg_entry_price" csv:"avg_entry_price"`
	EntryDate     time.Time `yaml:"entry_date" json:"entry_date" csv:"entry_date"`
	StopLoss      float64   `yaml:"stop_loss" json:"stop_loss" csv:"stop_loss"`
	TargetPrice   float64   `yaml:"target_price" json:"target_price" csv:"target_price"`
	// LastMark is the most recent close this position was marked at.
	LastMark    float64 `yaml:"last_mark" json:"last_mark" csv:"last_mark"`
	RealizedPnL float64 `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	Open        bool    `yaml:"open" json:"open" csv:"open"`
}

// CostBasis returns quantity * average entry price.
func (p *Position) CostBasis() float64 {
	basis, _ := decimal.NewFromInt(p.Quantity).Mul(decimal.NewFromFloat(p.AvgEntryPrice)).Float64()

	return basis
}

// MarketValue returns quantity * last mark. Falls back to cost basis when
// the position has never been marked.
func (p *Position) MarketValue() float64 {
	if p.LastMark == 0 {
		return p.CostBasis()
	}

	value, _ := decimal.NewFromInt(p.Quantity).Mul(decimal.NewFromFloat(p.LastMark)).Float64()

	return value
}

// UnrealizedPnL returns the mark-to-market gain of an open position.
// Zero once the position is closed.
func (p *Position) UnrealizedPnL() float64 {
	if !p.Open || p.LastMark == 0 {
		return 0
	}

	markDec := decimal.NewFromFloat(p.LastMark).Sub(decimal.NewFromFloat(p.AvgEntryPrice))
	pnl, _ := markDec.Mul(decimal.NewFromInt(p.Quantity)).Float64()

	return pnl
}
