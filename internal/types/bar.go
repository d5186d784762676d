package types

import "time"

// Bar is one instrument's daily candle. Bars are immutable once appended to
// the history store and unique by (instrument, date).
type Bar struct {
	Instrument string    `yaml:"instrument" json:"instrument" csv:"instrument"`
	Date       time.Time `yaml:"date" json:"date" csv:"date"`
	Open       float64   `yaml:"open" json:"open" csv:"open"`
	High       float64   `yaml:"high" json:"high" csv:"high"`
	Low        float64   `yaml:"low" json:"low" csv:"low"`
	Close      float64   `yaml:"close" json:"close" csv:"close"`
	Volume     float64   `yaml:"volume" json:"volume" csv:"volume"`
}
