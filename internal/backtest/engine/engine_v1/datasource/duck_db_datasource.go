package datasource

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/signal-backtest/internal/logger"
	"github.com/rxtech-lab/signal-backtest/internal/types"
	"github.com/rxtech-lab/signal-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBDataSource reads price bars from a CSV or Parquet file through an
// in-memory DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDataSource creates a new DuckDB-backed bar data source.
func NewDataSource(log *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS price_bars;`)
	if err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	reader := "read_csv_auto"
	if strings.HasSuffix(path, ".parquet") {
		reader = "read_parquet"
	}

	// Raw SQL as view creation cannot be parameterized.
	query := fmt.Sprintf(`
		CREATE VIEW price_bars AS
		SELECT time, open, high, low, close, volume FROM %s('%s');
	`, reader, path)

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to create view over %s", path)
	}

	return nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, params := buildWindowQuery("SELECT COUNT(*) FROM price_bars", start, end, "")

	var count int
	if err := d.db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	query, params := buildWindowQuery(
		"SELECT time, open, high, low, close, volume FROM price_bars",
		start, end,
		" ORDER BY time ASC",
	)

	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0)

	for rows.Next() {
		var bar types.Bar

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar row", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bar rows", err)
	}

	return bars, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

// buildWindowQuery appends optional time-window conditions to a base query.
func buildWindowQuery(base string, start optional.Option[time.Time], end optional.Option[time.Time], suffix string) (string, []interface{}) {
	var conditions []string

	var params []interface{}

	paramCount := 0

	if start.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time >= $%d", paramCount))
		params = append(params, start.Unwrap())
	}

	if end.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time <= $%d", paramCount))
		params = append(params, end.Unwrap())
	}

	query := base
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	return query + suffix, params
}
