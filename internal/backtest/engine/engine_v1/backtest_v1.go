package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	backtest "github.com/rxtech-lab/signal-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/signal-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/signal-backtest/internal/logger"
	"github.com/rxtech-lab/signal-backtest/internal/types"
	"github.com/rxtech-lab/signal-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// RunParams is the complete input of one backtest run. The core holds no
// state between runs: everything a replay needs arrives here, nothing is
// read from the environment.
type RunParams struct {
	StartingCapital float64
	// FeeRate is a fraction of entry plus exit price (0.001 = 0.1%).
	FeeRate float64
	// SlippageRate is the price penalty fraction applied at entry and exit.
	SlippageRate float64
	Signals      []types.RawSignal
	Bars         []types.Bar
	// StartTime and EndTime optionally restrict which signals are replayed.
	StartTime optional.Option[time.Time]
	EndTime   optional.Option[time.Time]
	// KeepSkippedRecords includes the raw skipped records in the result.
	KeepSkippedRecords bool
}

// Validate fails fast on structurally invalid input, before any computation.
// Signal-level data quality is not checked here: malformed signals are
// tolerated and skipped during the replay.
func (p *RunParams) Validate() error {
	if p.StartingCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCapital, "starting capital must be positive, got %f", p.StartingCapital)
	}

	if p.FeeRate < 0 {
		return errors.Newf(errors.ErrCodeInvalidFeeRate, "fee rate must not be negative, got %f", p.FeeRate)
	}

	if p.SlippageRate < 0 {
		return errors.Newf(errors.ErrCodeInvalidSlippageRate, "slippage rate must not be negative, got %f", p.SlippageRate)
	}

	if len(p.Bars) == 0 {
		return errors.New(errors.ErrCodeEmptyPriceSeries, "price bars must not be empty")
	}

	for i := 1; i < len(p.Bars); i++ {
		if p.Bars[i].Time.Before(p.Bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeUnorderedPriceSeries, "bar %d precedes bar %d in time", i, i-1)
		}
	}

	return nil
}

// RunBacktest replays one closed batch of signals against price bars and
// returns trades, metrics, the equity curve and the drawdown series. It is
// deterministic and reentrant: identical inputs yield identical results, and
// independent runs may execute concurrently as long as inputs are not
// mutated mid-run.
func RunBacktest(params RunParams, onProcessSignal optional.Option[backtest.OnProcessSignalCallback]) (*types.Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	signals := NormalizeSignals(params.Signals)
	signals = filterWindow(signals, params.StartTime, params.EndTime)

	var onProcess func(current int, total int) error
	if onProcessSignal.IsSome() {
		onProcess = onProcessSignal.Unwrap()
	}

	converted, err := ConvertSignalsToTrades(signals, params.Bars, params.FeeRate, params.SlippageRate, onProcess)
	if err != nil {
		return nil, err
	}

	ApplyExcursions(converted.Trades, params.Bars)

	equityCurve := BuildEquityCurve(converted.Trades, params.StartingCapital, params.Bars[0].Time)

	result := &types.Result{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		Trades:         converted.Trades,
		Metrics:        CalculateMetrics(converted.Trades, params.StartingCapital),
		EquityCurve:    equityCurve,
		Drawdown:       CalculateDrawdown(equityCurve),
		SkippedSignals: len(converted.Skipped),
	}

	if params.KeepSkippedRecords {
		result.SkippedRecords = converted.Skipped
	}

	return result, nil
}

// filterWindow drops valid signals outside the replay window. Malformed
// signals carry no reliable time, so they always pass through and stay
// visible in the skip report.
func filterWindow(signals []types.Signal, start optional.Option[time.Time], end optional.Option[time.Time]) []types.Signal {
	if start.IsNone() && end.IsNone() {
		return signals
	}

	filtered := make([]types.Signal, 0, len(signals))

	for _, signal := range signals {
		if signal.Valid {
			if start.IsSome() && signal.Time.Before(start.Unwrap()) {
				continue
			}

			if end.IsSome() && signal.Time.After(end.Unwrap()) {
				continue
			}
		}

		filtered = append(filtered, signal)
	}

	return filtered
}

// BacktestEngineV1 wires the replay core to a bar file, a signal file and a
// results folder.
type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	log           *logger.Logger
	store         *ResultStore
	dataPath      string
	signals       []types.RawSignal
	signalsSet    bool
	resultsFolder string
}

// NewBacktestEngineV1 creates an uninitialized engine.
func NewBacktestEngineV1() backtest.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		log:           nil,
		store:         nil,
		dataPath:      "",
		signals:       nil,
		signalsSet:    false,
		resultsFolder: "",
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine configuration", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	store, err := NewResultStore(b.log)
	if err != nil {
		return err
	}

	if err := store.Initialize(); err != nil {
		return err
	}

	b.store = store

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	b.dataPath = path

	return nil
}

// SetSignals implements engine.Engine.
func (b *BacktestEngineV1) SetSignals(signals []types.RawSignal) error {
	b.signals = signals
	b.signalsSet = true

	return nil
}

// LoadSignalsFromFile implements engine.Engine.
func (b *BacktestEngineV1) LoadSignalsFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSignalFileFailed, err, "failed to read signal file %s", path)
	}

	var signals []types.RawSignal
	if err := json.Unmarshal(data, &signals); err != nil {
		return errors.Wrapf(errors.ErrCodeSignalFileFailed, err, "failed to parse signal file %s", path)
	}

	b.signals = signals
	b.signalsSet = true

	if b.log != nil {
		b.log.Debug("Signals loaded",
			zap.String("path", path),
			zap.Int("count", len(signals)),
		)
	}

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(onProcessSignal optional.Option[backtest.OnProcessSignalCallback]) (*types.Result, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	bars, err := b.loadBars()
	if err != nil {
		return nil, err
	}

	params := RunParams{
		StartingCapital:    b.config.StartingCapital,
		FeeRate:            b.config.FeeRate,
		SlippageRate:       b.config.SlippageRate,
		Signals:            b.signals,
		Bars:               bars,
		StartTime:          b.config.StartTime,
		EndTime:            b.config.EndTime,
		KeepSkippedRecords: b.config.KeepSkippedRecords,
	}

	result, err := RunBacktest(params, onProcessSignal)
	if err != nil {
		b.log.Error("Backtest run failed",
			zap.Error(err),
		)

		return nil, err
	}

	if err := b.store.SaveTrades(result.ID, result.Trades); err != nil {
		return nil, err
	}

	if b.resultsFolder != "" {
		if err := b.writeResults(result); err != nil {
			return nil, err
		}
	}

	b.log.Info("Backtest run completed",
		zap.String("run_id", result.ID),
		zap.Int("trades", result.Metrics.TotalTrades),
		zap.Int("skipped_signals", result.SkippedSignals),
		zap.Float64("net_profit", result.Metrics.TotalNetProfit),
	)

	return result, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	schema, err := b.config.GenerateSchema()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Close releases the engine's results store.
func (b *BacktestEngineV1) Close() error {
	if b.store != nil {
		return b.store.Close()
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.store == nil {
		return errors.New(errors.ErrCodeStateNotInitialized, "engine is not initialized")
	}

	if b.dataPath == "" {
		return errors.New(errors.ErrCodeDataNotFound, "data path is not set")
	}

	if !b.signalsSet {
		return errors.New(errors.ErrCodeDataNotFound, "signals are not set")
	}

	return nil
}

func (b *BacktestEngineV1) loadBars() ([]types.Bar, error) {
	source, err := datasource.NewDataSource(b.log)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	if err := source.Initialize(b.dataPath); err != nil {
		return nil, err
	}

	return source.ReadAll(b.config.StartTime, b.config.EndTime)
}

func (b *BacktestEngineV1) writeResults(result *types.Result) error {
	runFolder := filepath.Join(b.resultsFolder, result.ID)
	if err := os.MkdirAll(runFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create results folder", err)
	}

	if err := types.WriteResult(filepath.Join(runFolder, "result.yaml"), *result); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to write result YAML", err)
	}

	if err := b.store.ExportTrades(result.ID, filepath.Join(runFolder, "trades.csv"), ExportFormatCSV); err != nil {
		return err
	}

	b.log.Info("Results written",
		zap.String("folder", runFolder),
	)

	return nil
}
