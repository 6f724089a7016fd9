package types

import "time"

type SignalType string

const (
	// SignalTypeBuy opens a long position when flat, or closes a short one.
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell opens a short position when flat, or closes a long one.
	SignalTypeSell SignalType = "SELL"
	// SignalTypeHold tells the replay to keep the current position.
	SignalTypeHold SignalType = "HOLD"
	// SignalTypeWait tells the replay to stay out of the market.
	SignalTypeWait SignalType = "WAIT"
)

// IsActionable reports whether the signal can open or close a position.
// Everything outside BUY/SELL is treated as ignorable noise.
func (s SignalType) IsActionable() bool {
	return s == SignalTypeBuy || s == SignalTypeSell
}

// RawSignal is a signal record as produced by the external execution engine.
// Field names vary across producers (time/timestamp/t, signal/action), so the
// record stays schemaless until normalization.
type RawSignal map[string]any

// Signal is the canonical signal record all replay logic reads. Only the
// normalizer constructs these.
type Signal struct {
	Time  time.Time  `csv:"time" yaml:"time" json:"time"`
	Type  SignalType `csv:"type" yaml:"type" json:"type"`
	Price float64    `csv:"price" yaml:"price" json:"price"`
	// Valid is false when the raw record had no usable time, type or price.
	// Invalid signals are carried through so the converter can apply one
	// uniform skip policy and count them.
	Valid bool `csv:"-" yaml:"-" json:"-"`
	// Raw is the record this signal was normalized from, kept for skip
	// reporting. Nil for signals constructed in code.
	Raw RawSignal `csv:"-" yaml:"-" json:"-"`
}
