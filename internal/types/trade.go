package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Position is the single open position during a replay. It never outlives
// the converter pass that created it: a position still open when the signal
// stream ends is discarded without producing a trade.
type Position struct {
	Direction Direction
	// EntryPrice is already slippage-adjusted.
	EntryPrice    float64
	EntryTime     time.Time
	EntryBarIndex int
}

// Trade is a completed round trip. Immutable once emitted.
type Trade struct {
	Direction     Direction `csv:"direction" yaml:"direction" json:"direction"`
	EntryTime     time.Time `csv:"entry_time" yaml:"entry_time" json:"entry_time"`
	ExitTime      time.Time `csv:"exit_time" yaml:"exit_time" json:"exit_time"`
	EntryPrice    float64   `csv:"entry_price" yaml:"entry_price" json:"entry_price"`
	ExitPrice     float64   `csv:"exit_price" yaml:"exit_price" json:"exit_price"`
	EntryBarIndex int       `csv:"entry_bar_index" yaml:"entry_bar_index" json:"entry_bar_index"`
	ExitBarIndex  int       `csv:"exit_bar_index" yaml:"exit_bar_index" json:"exit_bar_index"`
	// GrossProfit is the price move in the trade's favor before fees.
	GrossProfit float64 `csv:"gross_profit" yaml:"gross_profit" json:"gross_profit"`
	// NetProfit is GrossProfit minus Fee.
	NetProfit float64 `csv:"net_profit" yaml:"net_profit" json:"net_profit"`
	// ProfitPercent is NetProfit relative to the entry price, in percent.
	ProfitPercent float64 `csv:"profit_percent" yaml:"profit_percent" json:"profit_percent"`
	// HoldingTime is ExitTime minus EntryTime.
	HoldingTime time.Duration `csv:"holding_time" yaml:"holding_time" json:"holding_time"`
	Fee         float64       `csv:"fee" yaml:"fee" json:"fee"`
	// MAE is the maximum adverse excursion: the worst unrealized loss the
	// trade saw before exit.
	MAE float64 `csv:"mae" yaml:"mae" json:"mae"`
	// MFE is the maximum favorable excursion: the best unrealized gain the
	// trade saw before exit.
	MFE float64 `csv:"mfe" yaml:"mfe" json:"mfe"`
}

// IsWin reports whether the trade closed with a positive net profit.
func (t *Trade) IsWin() bool {
	return t.NetProfit > 0
}

// IsLoss reports whether the trade closed with a negative net profit.
func (t *Trade) IsLoss() bool {
	return t.NetProfit < 0
}

// CalculateEconomics fills the profit fields of a trade from its prices and
// the fee rate. Decimal arithmetic keeps the fee and net figures exact for
// prices with many fractional digits.
func (t *Trade) CalculateEconomics(feeRate float64) {
	entryDec := decimal.NewFromFloat(t.EntryPrice)
	exitDec := decimal.NewFromFloat(t.ExitPrice)

	var grossDec decimal.Decimal
	if t.Direction == DirectionShort {
		grossDec = entryDec.Sub(exitDec)
	} else {
		grossDec = exitDec.Sub(entryDec)
	}

	feeDec := entryDec.Add(exitDec).Mul(decimal.NewFromFloat(feeRate))
	netDec := grossDec.Sub(feeDec)

	t.GrossProfit, _ = grossDec.Float64()
	t.Fee, _ = feeDec.Float64()
	t.NetProfit, _ = netDec.Float64()

	if t.EntryPrice != 0 {
		percentDec := netDec.Div(entryDec).Mul(decimal.NewFromInt(100))
		t.ProfitPercent, _ = percentDec.Float64()
	}

	t.HoldingTime = t.ExitTime.Sub(t.EntryTime)
}
