package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type TradeHoldingTime struct {
	// Minimum holding time of a trade in seconds
	Min int `yaml:"min" json:"min"`
	// Maximum holding time of a trade in seconds
	Max int `yaml:"max" json:"max"`
	// Average holding time of a trade in seconds
	Avg int `yaml:"avg" json:"avg"`
}

// MetricsRecord is the aggregate view over the completed trades of one run.
// It is recomputed from scratch on every call, never updated incrementally,
// so repeated runs on identical inputs cannot drift apart.
//
// An empty trade list produces an all-zero record, never a nil one.
type MetricsRecord struct {
	TotalTrades   int `yaml:"total_trades" json:"total_trades"`
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int `yaml:"losing_trades" json:"losing_trades"`
	// WinRate and LossRate are percentages summing to 100 when trades exist.
	WinRate  float64 `yaml:"win_rate" json:"win_rate"`
	LossRate float64 `yaml:"loss_rate" json:"loss_rate"`
	// AvgWin is the mean net profit of winning trades, AvgLoss the mean
	// absolute net loss of losing trades. Zero when the set is empty.
	AvgWin  float64 `yaml:"avg_win" json:"avg_win"`
	AvgLoss float64 `yaml:"avg_loss" json:"avg_loss"`
	// MaxWin and MaxLoss are the best and worst single-trade net profits.
	MaxWin  float64 `yaml:"max_win" json:"max_win"`
	MaxLoss float64 `yaml:"max_loss" json:"max_loss"`
	// ProfitFactor is gross wins over gross losses. +Inf when there are wins
	// but no losses, 0 when there are neither.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
	// Expectancy is the expected net profit per trade given the historical
	// win rate and average win/loss size.
	Expectancy float64 `yaml:"expectancy" json:"expectancy"`
	// SharpeRatio is mean over standard deviation of per-trade percentage
	// returns. This is a per-trade simplification, not a time-weighted
	// textbook Sharpe ratio. Zero when the deviation is zero.
	SharpeRatio    float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	TotalNetProfit float64 `yaml:"total_net_profit" json:"total_net_profit"`
	TotalFees      float64 `yaml:"total_fees" json:"total_fees"`
	// TotalReturnPercent is TotalNetProfit relative to the starting capital.
	TotalReturnPercent float64          `yaml:"total_return_percent" json:"total_return_percent"`
	TradesPerDay       float64          `yaml:"trades_per_day" json:"trades_per_day"`
	HoldingTime        TradeHoldingTime `yaml:"holding_time" json:"holding_time"`
}

// EquityPoint is one point of the running-capital series.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Equity float64   `yaml:"equity" json:"equity"`
}

// DrawdownPoint is the decline from the running equity peak at one point of
// the equity curve.
type DrawdownPoint struct {
	Time            time.Time `yaml:"time" json:"time"`
	Drawdown        float64   `yaml:"drawdown" json:"drawdown"`
	DrawdownPercent float64   `yaml:"drawdown_percent" json:"drawdown_percent"`
}

// DrawdownResult is the drawdown series plus its extremes.
type DrawdownResult struct {
	Series             []DrawdownPoint `yaml:"series" json:"series"`
	MaxDrawdown        float64         `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownPercent float64         `yaml:"max_drawdown_percent" json:"max_drawdown_percent"`
}

// Result is the complete output of one backtest run.
type Result struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp   time.Time      `yaml:"timestamp" json:"timestamp"`
	Trades      []Trade        `yaml:"trades" json:"trades"`
	Metrics     MetricsRecord  `yaml:"metrics" json:"metrics"`
	EquityCurve []EquityPoint  `yaml:"equity_curve" json:"equity_curve"`
	Drawdown    DrawdownResult `yaml:"drawdown" json:"drawdown"`
	// SkippedSignals counts raw signal records that were tolerated but not
	// replayed: malformed records and non-positive prices.
	SkippedSignals int `yaml:"skipped_signals" json:"skipped_signals"`
	// SkippedRecords holds the raw records behind SkippedSignals so callers
	// can inspect what was dropped instead of trusting a log line.
	SkippedRecords []RawSignal `yaml:"skipped_records,omitempty" json:"skipped_records,omitempty"`
}

// WriteResult writes a run result to a YAML file.
func WriteResult(path string, result Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result to file: %w", err)
	}

	return nil
}

// ReadResult reads a run result from a YAML file.
func ReadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read result file: %w", err)
	}

	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return result, nil
}
