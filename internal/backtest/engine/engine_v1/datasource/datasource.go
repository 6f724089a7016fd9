package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/signal-backtest/internal/types"
)

// DataSource supplies the ordered price bar batch for a run.
type DataSource interface {
	// Initialize points the data source at the given bar file.
	Initialize(path string) error
	// ReadAll returns every bar in the optional time window, ordered
	// ascending by time.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error)
	// Count returns the number of bars in the optional time window.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the data source.
	Close() error
}
