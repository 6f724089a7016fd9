package types

import "time"

// Bar is a single OHLCV price bar. Bars are immutable inputs to a run and
// must be ordered by strictly non-decreasing time.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Open   float64   `csv:"open" yaml:"open" json:"open"`
	High   float64   `csv:"high" yaml:"high" json:"high"`
	Low    float64   `csv:"low" yaml:"low" json:"low"`
	Close  float64   `csv:"close" yaml:"close" json:"close"`
	Volume float64   `csv:"volume" yaml:"volume" json:"volume"`
}
