package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	backtest "github.com/rxtech-lab/signal-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/signal-backtest/internal/types"
	"github.com/rxtech-lab/signal-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BacktestV1TestSuite struct {
	suite.Suite
}

func TestBacktestV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestV1TestSuite))
}

func rawSignal(minute int, signalType string, price float64) types.RawSignal {
	return types.RawSignal{
		"time":   float64(testBase.Add(time.Duration(minute) * time.Minute).UnixMilli()),
		"signal": signalType,
		"price":  price,
	}
}

func (suite *BacktestV1TestSuite) TestRunParamsValidation() {
	validBars := testBars(100)

	tests := []struct {
		name         string
		params       RunParams
		expectedCode errors.ErrorCode
	}{
		{
			name:         "zero capital",
			params:       RunParams{StartingCapital: 0, Bars: validBars},
			expectedCode: errors.ErrCodeInvalidCapital,
		},
		{
			name:         "negative capital",
			params:       RunParams{StartingCapital: -100, Bars: validBars},
			expectedCode: errors.ErrCodeInvalidCapital,
		},
		{
			name:         "negative fee rate",
			params:       RunParams{StartingCapital: 10000, FeeRate: -0.01, Bars: validBars},
			expectedCode: errors.ErrCodeInvalidFeeRate,
		},
		{
			name:         "negative slippage rate",
			params:       RunParams{StartingCapital: 10000, SlippageRate: -0.01, Bars: validBars},
			expectedCode: errors.ErrCodeInvalidSlippageRate,
		},
		{
			name:         "empty bars",
			params:       RunParams{StartingCapital: 10000, Bars: nil},
			expectedCode: errors.ErrCodeEmptyPriceSeries,
		},
		{
			name: "unordered bars",
			params: RunParams{
				StartingCapital: 10000,
				Bars: []types.Bar{
					{Time: testBase.Add(time.Minute)},
					{Time: testBase},
				},
			},
			expectedCode: errors.ErrCodeUnorderedPriceSeries,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := RunBacktest(tc.params, optional.None[backtest.OnProcessSignalCallback]())
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.expectedCode))
		})
	}
}

func (suite *BacktestV1TestSuite) TestRunBacktestFullPipeline() {
	params := RunParams{
		StartingCapital: 10000,
		Signals: []types.RawSignal{
			rawSignal(0, "BUY", 100),
			rawSignal(1, "SELL", 110),
			rawSignal(2, "SELL", 120),
			rawSignal(3, "BUY", 90),
		},
		Bars: testBars(100, 110, 120, 90),
	}

	result, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)
	suite.NotEmpty(result.ID)

	suite.Len(result.Trades, 2)
	suite.InDelta(10.0, result.Trades[0].NetProfit, 1e-9)
	suite.InDelta(30.0, result.Trades[1].NetProfit, 1e-9)

	suite.Equal(2, result.Metrics.TotalTrades)
	suite.InDelta(100.0, result.Metrics.WinRate, 1e-9)
	suite.InDelta(40.0, result.Metrics.TotalNetProfit, 1e-9)

	suite.Len(result.EquityCurve, len(result.Trades)+1)
	suite.InDelta(10000.0, result.EquityCurve[0].Equity, 1e-9)
	suite.InDelta(10040.0, result.EquityCurve[2].Equity, 1e-9)

	suite.Len(result.Drawdown.Series, len(result.EquityCurve))
	suite.Zero(result.Drawdown.MaxDrawdown)
	suite.Zero(result.SkippedSignals)
}

func (suite *BacktestV1TestSuite) TestRunBacktestEmptySignals() {
	params := RunParams{
		StartingCapital: 10000,
		Signals:         nil,
		Bars:            testBars(100),
	}

	result, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(0, result.Metrics.TotalTrades)
	suite.Zero(result.Metrics.WinRate)
	suite.Len(result.EquityCurve, 1)
	suite.Equal(testBase, result.EquityCurve[0].Time)
	suite.InDelta(10000.0, result.EquityCurve[0].Equity, 1e-9)
	suite.Len(result.Drawdown.Series, 1)
	suite.Zero(result.Drawdown.Series[0].Drawdown)
}

func (suite *BacktestV1TestSuite) TestRunBacktestSkipReporting() {
	params := RunParams{
		StartingCapital: 10000,
		Signals: []types.RawSignal{
			rawSignal(0, "BUY", 100),
			{"signal": "SELL"}, // no usable time or price
			rawSignal(1, "SELL", 110),
			{"time": float64(testBase.Add(2 * time.Minute).UnixMilli()), "signal": "BUY", "price": -1.0},
		},
		Bars:               testBars(100, 110, 100),
		KeepSkippedRecords: true,
	}

	result, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)

	suite.Len(result.Trades, 1)
	suite.Equal(2, result.SkippedSignals)
	suite.Len(result.SkippedRecords, 2)
}

func (suite *BacktestV1TestSuite) TestRunBacktestWindowFiltering() {
	params := RunParams{
		StartingCapital: 10000,
		Signals: []types.RawSignal{
			rawSignal(0, "BUY", 100),
			rawSignal(1, "SELL", 110),
			rawSignal(10, "BUY", 100),
			rawSignal(11, "SELL", 105),
		},
		Bars:      testBars(100, 110, 100, 100, 100, 100, 100, 100, 100, 100, 100, 105),
		StartTime: optional.Some(testBase.Add(10 * time.Minute)),
	}

	result, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)

	// Only the second pair falls inside the window.
	suite.Len(result.Trades, 1)
	suite.InDelta(5.0, result.Trades[0].NetProfit, 1e-9)
}

func (suite *BacktestV1TestSuite) TestRunBacktestDeterministicTrades() {
	params := RunParams{
		StartingCapital: 10000,
		FeeRate:         0.001,
		SlippageRate:    0.002,
		Signals: []types.RawSignal{
			rawSignal(0, "BUY", 100),
			rawSignal(1, "SELL", 110),
		},
		Bars: testBars(100, 110),
	}

	first, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)

	second, err := RunBacktest(params, optional.None[backtest.OnProcessSignalCallback]())
	suite.NoError(err)

	suite.Equal(first.Trades, second.Trades)
	suite.Equal(first.Metrics, second.Metrics)
	suite.Equal(first.EquityCurve, second.EquityCurve)
}

func (suite *BacktestV1TestSuite) writeBarsCSV(bars []types.Bar) string {
	var builder strings.Builder

	builder.WriteString("time,open,high,low,close,volume\n")

	for _, bar := range bars {
		builder.WriteString(fmt.Sprintf("%s,%f,%f,%f,%f,%f\n",
			bar.Time.Format("2006-01-02 15:04:05"),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		))
	}

	path := filepath.Join(suite.T().TempDir(), "bars.csv")
	suite.NoError(os.WriteFile(path, []byte(builder.String()), 0644))

	return path
}

func (suite *BacktestV1TestSuite) writeSignalsJSON(signals []types.RawSignal) string {
	var builder strings.Builder

	builder.WriteString("[")

	for i, signal := range signals {
		if i > 0 {
			builder.WriteString(",")
		}

		builder.WriteString(fmt.Sprintf(
			`{"time": %d, "signal": %q, "price": %f}`,
			int64(signal["time"].(float64)), signal["signal"], signal["price"],
		))
	}

	builder.WriteString("]")

	path := filepath.Join(suite.T().TempDir(), "signals.json")
	suite.NoError(os.WriteFile(path, []byte(builder.String()), 0644))

	return path
}

func (suite *BacktestV1TestSuite) TestEngineEndToEnd() {
	bars := testBars(100, 110, 120, 90)
	barsPath := suite.writeBarsCSV(bars)
	signalsPath := suite.writeSignalsJSON([]types.RawSignal{
		rawSignal(0, "BUY", 100),
		rawSignal(1, "SELL", 110),
		rawSignal(2, "SELL", 120),
		rawSignal(3, "BUY", 90),
	})
	resultsFolder := suite.T().TempDir()

	backtester := NewBacktestEngineV1()
	suite.NoError(backtester.Initialize("starting_capital: 10000\nfee_rate: 0\nslippage_rate: 0\n"))
	defer backtester.Close()

	suite.NoError(backtester.SetDataPath(barsPath))
	suite.NoError(backtester.LoadSignalsFromFile(signalsPath))
	suite.NoError(backtester.SetResultsFolder(resultsFolder))

	processed := 0

	var onProcessSignal backtest.OnProcessSignalCallback = func(current int, total int) error {
		processed++

		return nil
	}

	result, err := backtester.Run(optional.Some(onProcessSignal))
	suite.NoError(err)
	suite.Equal(4, processed)
	suite.Len(result.Trades, 2)
	suite.InDelta(40.0, result.Metrics.TotalNetProfit, 1e-9)

	// Run artifacts are written under the run ID.
	runFolder := filepath.Join(resultsFolder, result.ID)
	suite.FileExists(filepath.Join(runFolder, "result.yaml"))
	suite.FileExists(filepath.Join(runFolder, "trades.csv"))

	loaded, err := types.ReadResult(filepath.Join(runFolder, "result.yaml"))
	suite.NoError(err)
	suite.Equal(result.ID, loaded.ID)
	suite.Equal(2, loaded.Metrics.TotalTrades)
}

func (suite *BacktestV1TestSuite) TestEngineRejectsInvalidConfig() {
	backtester := NewBacktestEngineV1()

	err := backtester.Initialize("starting_capital: -5\n")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *BacktestV1TestSuite) TestEngineRunRequiresSetup() {
	backtester := NewBacktestEngineV1()

	_, err := backtester.Run(optional.None[backtest.OnProcessSignalCallback]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStateNotInitialized))

	suite.NoError(backtester.Initialize("starting_capital: 10000\n"))
	defer backtester.Close()

	_, err = backtester.Run(optional.None[backtest.OnProcessSignalCallback]())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *BacktestV1TestSuite) TestGetConfigSchema() {
	backtester := NewBacktestEngineV1()

	schema, err := backtester.GetConfigSchema()
	suite.NoError(err)
	suite.Contains(schema, "starting_capital")
	suite.Contains(schema, "fee_rate")
	suite.Contains(schema, "slippage_rate")
}
