package engine

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// OnProcessSignalCallback is called for each normalized signal processed
// during a run. Returning an error aborts the run.
type OnProcessSignalCallback func(current int, total int) error

// Engine replays a batch of trading signals against historical price bars
// and produces trades, metrics, an equity curve and a drawdown series.
type Engine interface {
	// Initialize the engine with the given YAML configuration content.
	Initialize(config string) error
	// SetDataPath sets the path to the price bar CSV file.
	SetDataPath(path string) error
	// SetSignals sets the raw signal records to replay.
	SetSignals(signals []types.RawSignal) error
	// LoadSignalsFromFile loads raw signal records from a JSON file.
	LoadSignalsFromFile(path string) error
	// SetResultsFolder sets the folder run artifacts are written to.
	// Optional; when unset, Run returns the result without writing files.
	SetResultsFolder(folder string) error
	// Run replays the loaded signals and returns the run result.
	Run(onProcessSignal optional.Option[OnProcessSignalCallback]) (*types.Result, error)
	// GetConfigSchema returns the JSON schema for the engine configuration.
	GetConfigSchema() (string, error)
	// Close releases the engine's resources.
	Close() error
}
