package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/signal-backtest/internal/logger"
	"github.com/rxtech-lab/signal-backtest/internal/types"
	"github.com/rxtech-lab/signal-backtest/pkg/errors"
	"go.uber.org/zap"
)

// ExportFormat selects the trade export file format.
type ExportFormat string

const (
	ExportFormatCSV     ExportFormat = "csv"
	ExportFormatJSON    ExportFormat = "json"
	ExportFormatParquet ExportFormat = "parquet"
)

// ResultStore persists the trades of completed runs in an in-memory DuckDB
// table so they can be queried back and exported without touching the
// in-memory result value.
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewResultStore opens an in-memory DuckDB database for run results.
func NewResultStore(log *logger.Logger) (*ResultStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreFailed, "failed to open results database", err)
	}

	return &ResultStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades table.
func (s *ResultStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			direction TEXT,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			entry_bar_index INTEGER,
			exit_bar_index INTEGER,
			gross_profit DOUBLE,
			net_profit DOUBLE,
			profit_percent DOUBLE,
			holding_time_ms BIGINT,
			fee DOUBLE,
			mae DOUBLE,
			mfe DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to create trades table", err)
	}

	return nil
}

// SaveTrades persists the trades of one run inside a single transaction.
func (s *ResultStore) SaveTrades(runID string, trades []types.Trade) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to begin transaction", err)
	}

	for _, trade := range trades {
		query, args, buildErr := s.sq.
			Insert("trades").
			Columns(
				"run_id",
				"direction",
				"entry_time",
				"exit_time",
				"entry_price",
				"exit_price",
				"entry_bar_index",
				"exit_bar_index",
				"gross_profit",
				"net_profit",
				"profit_percent",
				"holding_time_ms",
				"fee",
				"mae",
				"mfe",
			).
			Values(
				runID,
				string(trade.Direction),
				trade.EntryTime,
				trade.ExitTime,
				trade.EntryPrice,
				trade.ExitPrice,
				trade.EntryBarIndex,
				trade.ExitBarIndex,
				trade.GrossProfit,
				trade.NetProfit,
				trade.ProfitPercent,
				trade.HoldingTime.Milliseconds(),
				trade.Fee,
				trade.MAE,
				trade.MFE,
			).
			ToSql()
		if buildErr != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreFailed, "failed to build insert query", buildErr)
		}

		if _, err := tx.Exec(query, args...); err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeStoreFailed, "failed to insert trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to commit trades", err)
	}

	s.logger.Debug("Trades persisted",
		zap.String("run_id", runID),
		zap.Int("count", len(trades)),
	)

	return nil
}

// GetTrades returns the persisted trades of a run ordered by exit time.
func (s *ResultStore) GetTrades(runID string) ([]types.Trade, error) {
	query, args, err := s.sq.
		Select(
			"direction",
			"entry_time",
			"exit_time",
			"entry_price",
			"exit_price",
			"entry_bar_index",
			"exit_bar_index",
			"gross_profit",
			"net_profit",
			"profit_percent",
			"holding_time_ms",
			"fee",
			"mae",
			"mfe",
		).
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("exit_time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build trades query", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	trades := make([]types.Trade, 0)

	for rows.Next() {
		var (
			trade         types.Trade
			direction     string
			holdingTimeMs int64
		)

		err := rows.Scan(
			&direction,
			&trade.EntryTime,
			&trade.ExitTime,
			&trade.EntryPrice,
			&trade.ExitPrice,
			&trade.EntryBarIndex,
			&trade.ExitBarIndex,
			&trade.GrossProfit,
			&trade.NetProfit,
			&trade.ProfitPercent,
			&holdingTimeMs,
			&trade.Fee,
			&trade.MAE,
			&trade.MFE,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade row", err)
		}

		trade.Direction = types.Direction(direction)
		trade.HoldingTime = time.Duration(holdingTimeMs) * time.Millisecond
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate trade rows", err)
	}

	return trades, nil
}

// ExportTrades writes the trades of a run to a file in the given format.
func (s *ResultStore) ExportTrades(runID string, path string, format ExportFormat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to create export directory", err)
	}

	var options string

	switch format {
	case ExportFormatCSV:
		options = "FORMAT CSV, HEADER"
	case ExportFormatJSON:
		options = "FORMAT JSON, ARRAY true"
	case ExportFormatParquet:
		options = "FORMAT PARQUET"
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported export format: %s", format)
	}

	// Raw SQL as Squirrel doesn't support COPY. DuckDB rejects bound
	// parameters inside COPY targets, so the path is inlined.
	query := fmt.Sprintf(
		`COPY (SELECT * EXCLUDE (run_id) FROM trades WHERE run_id = '%s' ORDER BY exit_time ASC) TO '%s' (%s)`,
		runID, path, options,
	)

	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeExportFailed, "failed to export trades", err)
	}

	s.logger.Info("Trades exported",
		zap.String("run_id", runID),
		zap.String("path", path),
		zap.String("format", string(format)),
	)

	return nil
}

// Cleanup removes all persisted trades.
func (s *ResultStore) Cleanup() error {
	if _, err := s.db.Exec(`DELETE FROM trades`); err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailed, "failed to clean up trades", err)
	}

	return nil
}

// Close releases the underlying database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
