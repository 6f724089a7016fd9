package engine

import (
	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// CalculateExcursion scans every bar in the trade's entry..exit span and
// returns the maximum adverse and favorable excursions against the
// slippage-adjusted entry price. Both start at zero, so a trade that never
// moved against (or for) the entry reports 0.
func CalculateExcursion(trade types.Trade, bars []types.Bar) (mae float64, mfe float64) {
	start := trade.EntryBarIndex
	end := trade.ExitBarIndex

	if start < 0 {
		start = 0
	}

	if end >= len(bars) {
		end = len(bars) - 1
	}

	for i := start; i <= end; i++ {
		var adverse, favorable float64

		if trade.Direction == types.DirectionShort {
			adverse = bars[i].High - trade.EntryPrice
			favorable = trade.EntryPrice - bars[i].Low
		} else {
			adverse = trade.EntryPrice - bars[i].Low
			favorable = bars[i].High - trade.EntryPrice
		}

		if adverse > mae {
			mae = adverse
		}

		if favorable > mfe {
			mfe = favorable
		}
	}

	return mae, mfe
}

// ApplyExcursions fills MAE/MFE on every trade in place. Cost is O(span) per
// trade, O(N*T) overall, which is fine for batch runs but worth revisiting if
// bar counts grow past tens of millions.
func ApplyExcursions(trades []types.Trade, bars []types.Bar) {
	for i := range trades {
		trades[i].MAE, trades[i].MFE = CalculateExcursion(trades[i], bars)
	}
}
