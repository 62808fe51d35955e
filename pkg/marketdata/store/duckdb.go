package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/logger"
	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

const tableName = "market_data"

// DuckDBStore writes series through an in-memory DuckDB table exported with COPY ... (FORMAT PARQUET)
// and reads them back with read_parquet.
type DuckDBStore struct {
	compression Compression
	logger      *logger.Logger
	sq          squirrel.StatementBuilderType
}

// DuckDBOption configures a DuckDBStore.
type DuckDBOption func(*DuckDBStore)

// WithCompression selects the Parquet codec.
func WithCompression(compression Compression) DuckDBOption {
	return func(s *DuckDBStore) {
		s.compression = compression
	}
}

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) DuckDBOption {
	return func(s *DuckDBStore) {
		s.logger = l
	}
}

// NewDuckDBStore creates a store. The default codec is snappy.
func NewDuckDBStore(options ...DuckDBOption) (*DuckDBStore, error) {
	s := &DuckDBStore{
		compression: DefaultCompression,
		logger:      logger.NewNopLogger(),
		sq:          squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	for _, option := range options {
		option(s)
	}

	if _, err := ParseCompression(string(s.compression)); err != nil {
		return nil, err
	}

	return s, nil
}

// Compression returns the configured codec.
func (s *DuckDBStore) Compression() Compression {
	return s.compression
}

// Exists implements Store.
func (s *DuckDBStore) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}

	if stderrors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, errors.Wrapf(errors.ErrCodeMarketDataReadFailed, err, "failed to stat %s", path)
}

// Save implements Store. Rows are exported to a temporary file in the destination
// directory which is then renamed over path.
func (s *DuckDBStore) Save(ctx context.Context, series types.PriceSeries, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create directory %s", dir)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL()); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create table", err)
	}

	if err := s.insert(ctx, db, series); err != nil {
		return err
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))

	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	copySQL := fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET, COMPRESSION '%s')`,
		tableName, escapeLiteral(tmpPath), s.compression)
	if _, err = db.ExecContext(ctx, copySQL); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to export parquet to %s", path)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to move parquet into %s", path)
	}

	s.logger.Debug("Saved price series",
		zap.String("path", path),
		zap.Int("rows", series.Len()),
		zap.String("compression", string(s.compression)),
	)

	return nil
}

func (s *DuckDBStore) insert(ctx context.Context, db *sql.DB, series types.PriceSeries) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction", err)
	}

	query, _, err := s.sq.Insert(tableName).
		Columns(quotedColumns()...).
		Values(make([]any, len(types.CanonicalColumns))...).
		ToSql()
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to build insert statement", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to prepare statement", err)
	}
	defer stmt.Close()

	for _, bar := range series.Bars {
		_, err := stmt.ExecContext(ctx,
			bar.Date.UTC(),
			nullable(bar.Open),
			nullable(bar.High),
			nullable(bar.Low),
			nullable(bar.Close),
			nullable(bar.AdjClose),
			nullable(bar.Volume),
			nullable(bar.Ticker),
		)
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to insert bar", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to commit transaction", err)
	}

	return nil
}

// Load implements Store.
func (s *DuckDBStore) Load(ctx context.Context, path string) (types.PriceSeries, error) {
	exists, err := s.Exists(path)
	if err != nil {
		return types.PriceSeries{}, err
	}

	if !exists {
		return types.PriceSeries{}, errors.Newf(errors.ErrCodeDataNotFound, "no parquet file at %s", path)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeMarketDataReadFailed, "failed to open DuckDB connection", err)
	}
	defer db.Close()

	query, args, err := s.sq.Select(quotedColumns()...).
		From(fmt.Sprintf("read_parquet('%s')", escapeLiteral(path))).
		ToSql()
	if err != nil {
		return types.PriceSeries{}, errors.Wrap(errors.ErrCodeMarketDataReadFailed, "failed to build select statement", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeMarketDataReadFailed, err, "failed to read parquet %s", path)
	}
	defer rows.Close()

	series := types.PriceSeries{}

	for rows.Next() {
		var (
			date    sql.NullTime
			numeric [6]sql.NullFloat64
			ticker  sql.NullString
		)

		if err := rows.Scan(&date, &numeric[0], &numeric[1], &numeric[2], &numeric[3], &numeric[4], &numeric[5], &ticker); err != nil {
			return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeMarketDataReadFailed, err, "failed to scan row of %s", path)
		}

		bar := types.PriceBar{}
		if date.Valid {
			bar.Date = date.Time.UTC()
		}

		for i, column := range types.NumericColumns {
			value := optional.None[float64]()
			if numeric[i].Valid {
				value = optional.Some(numeric[i].Float64)
			}

			bar.SetNumeric(column, value)
		}

		bar.Ticker = optional.None[string]()
		if ticker.Valid {
			bar.Ticker = optional.Some(ticker.String)
		}

		series.Bars = append(series.Bars, bar)
	}

	if err := rows.Err(); err != nil {
		return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeMarketDataReadFailed, err, "failed to iterate %s", path)
	}

	s.logger.Debug("Loaded price series", zap.String("path", path), zap.Int("rows", series.Len()))

	return series, nil
}

func createTableSQL() string {
	return fmt.Sprintf(`
		CREATE TABLE %s (
			"date" TIMESTAMP,
			"open" DOUBLE,
			"high" DOUBLE,
			"low" DOUBLE,
			"close" DOUBLE,
			"adj_close" DOUBLE,
			"volume" DOUBLE,
			"ticker" VARCHAR
		)
	`, tableName)
}

func quotedColumns() []string {
	columns := make([]string, len(types.CanonicalColumns))
	for i, column := range types.CanonicalColumns {
		columns[i] = `"` + column + `"`
	}

	return columns
}

// nullable maps None to a SQL NULL.
func nullable[T any](value optional.Option[T]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
