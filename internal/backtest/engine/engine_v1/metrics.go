package engine

import (
	"math"

	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// CalculateMetrics aggregates the full trade list into a MetricsRecord. It
// is a pure function recomputed from scratch on every call; nothing is
// accumulated across runs. An empty trade list yields an all-zero record.
func CalculateMetrics(trades []types.Trade, startingCapital float64) types.MetricsRecord {
	record := types.MetricsRecord{}

	if len(trades) == 0 {
		return record
	}

	var (
		grossWinSum  float64
		grossLossSum float64
		returns      []float64
	)

	record.TotalTrades = len(trades)
	returns = make([]float64, 0, len(trades))

	for _, trade := range trades {
		record.TotalNetProfit += trade.NetProfit
		record.TotalFees += trade.Fee
		returns = append(returns, trade.ProfitPercent)

		switch {
		case trade.IsWin():
			record.WinningTrades++
			grossWinSum += trade.NetProfit
		case trade.IsLoss():
			record.LosingTrades++
			grossLossSum += -trade.NetProfit
		}

		if trade.NetProfit > record.MaxWin {
			record.MaxWin = trade.NetProfit
		}

		if trade.NetProfit < record.MaxLoss {
			record.MaxLoss = trade.NetProfit
		}
	}

	record.WinRate = float64(record.WinningTrades) / float64(record.TotalTrades) * 100
	record.LossRate = 100 - record.WinRate

	if record.WinningTrades > 0 {
		record.AvgWin = grossWinSum / float64(record.WinningTrades)
	}

	if record.LosingTrades > 0 {
		record.AvgLoss = grossLossSum / float64(record.LosingTrades)
	}

	record.ProfitFactor = profitFactor(grossWinSum, grossLossSum)
	record.Expectancy = record.WinRate/100*record.AvgWin - record.LossRate/100*record.AvgLoss
	record.SharpeRatio = sharpeRatio(returns)

	if startingCapital > 0 {
		record.TotalReturnPercent = record.TotalNetProfit / startingCapital * 100
	}

	record.TradesPerDay = tradesPerDay(trades)
	record.HoldingTime = holdingTimeStats(trades)

	return record
}

// profitFactor is gross wins over gross losses. With wins and no losses the
// factor is +Inf rather than a division error; with neither it is 0.
func profitFactor(grossWinSum float64, grossLossSum float64) float64 {
	if grossLossSum == 0 {
		if grossWinSum > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return grossWinSum / grossLossSum
}

// sharpeRatio is the mean over the population standard deviation of
// per-trade percentage returns. This is a per-trade simplification of the
// textbook time-weighted ratio. Zero variance yields 0, never NaN.
func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	return mean / stddev
}

// tradesPerDay divides the trade count by the calendar-day span between the
// first entry and the last exit. Sub-day spans count as one day; a zero span
// yields 0.
func tradesPerDay(trades []types.Trade) float64 {
	firstEntry := trades[0].EntryTime
	lastExit := trades[len(trades)-1].ExitTime

	span := lastExit.Sub(firstEntry)
	if span <= 0 {
		return 0
	}

	days := math.Ceil(span.Hours() / 24)

	return float64(len(trades)) / days
}

func holdingTimeStats(trades []types.Trade) types.TradeHoldingTime {
	stats := types.TradeHoldingTime{}

	minTime := int(trades[0].HoldingTime.Seconds())
	maxTime := minTime
	totalTime := 0

	for _, trade := range trades {
		seconds := int(trade.HoldingTime.Seconds())
		totalTime += seconds

		if seconds < minTime {
			minTime = seconds
		}

		if seconds > maxTime {
			maxTime = seconds
		}
	}

	stats.Min = minTime
	stats.Max = maxTime
	stats.Avg = totalTime / len(trades)

	return stats
}
