package engine

import (
	"time"

	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// BuildEquityCurve produces the running-capital series: an anchor at the
// first bar's time holding the starting capital, then one point per trade at
// its exit time. The curve therefore always has len(trades)+1 points.
func BuildEquityCurve(trades []types.Trade, startingCapital float64, firstBarTime time.Time) []types.EquityPoint {
	curve := make([]types.EquityPoint, 0, len(trades)+1)

	curve = append(curve, types.EquityPoint{
		Time:   firstBarTime,
		Equity: startingCapital,
	})

	equity := startingCapital
	for _, trade := range trades {
		equity += trade.NetProfit
		curve = append(curve, types.EquityPoint{
			Time:   trade.ExitTime,
			Equity: equity,
		})
	}

	return curve
}

// CalculateDrawdown walks the equity curve once, tracking the running peak,
// and returns the peak-relative drawdown at every point plus the maximum.
// Values are always >= 0 and exactly 0 at the anchor.
func CalculateDrawdown(curve []types.EquityPoint) types.DrawdownResult {
	result := types.DrawdownResult{
		Series: make([]types.DrawdownPoint, 0, len(curve)),
	}

	var peak float64

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		drawdown := peak - point.Equity

		// Unreachable while the curve starts at a positive capital, guarded
		// so a zero peak cannot divide.
		percent := 0.0
		if peak > 0 {
			percent = drawdown / peak * 100
		}

		result.Series = append(result.Series, types.DrawdownPoint{
			Time:            point.Time,
			Drawdown:        drawdown,
			DrawdownPercent: percent,
		})

		if drawdown > result.MaxDrawdown {
			result.MaxDrawdown = drawdown
			result.MaxDrawdownPercent = percent
		}
	}

	return result
}
