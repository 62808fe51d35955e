// Package report writes the per-run summary table.
package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// FileName is the summary file written into the output directory.
const FileName = "summary.csv"

// Row is one line of the summary CSV. Missing values are empty cells.
type Row struct {
	Ticker    string `csv:"ticker"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Rows      int    `csv:"rows"`
}

// NewRow converts a summary record.
func NewRow(record types.SummaryRecord) Row {
	return Row{
		Ticker:    record.Ticker.TakeOr(""),
		StartDate: record.StartDate.TakeOr(""),
		EndDate:   record.EndDate.TakeOr(""),
		Rows:      record.Rows,
	}
}

// Write encodes records as CSV, in the given order, with a header line.
func Write(w io.Writer, records []types.SummaryRecord) error {
	rows := make([]Row, len(records))
	for i, record := range records {
		rows[i] = NewRow(record)
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to encode summary", err)
	}

	return nil
}

// WriteFile writes records to path, creating the parent directory.
func WriteFile(path string, records []types.SummaryRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create directory for %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create %s", path)
	}

	if err := Write(file, records); err != nil {
		file.Close()

		return err
	}

	if err := file.Close(); err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to close %s", path)
	}

	return nil
}

// ReadFile decodes a summary CSV written by WriteFile.
func ReadFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open %s", path)
	}
	defer file.Close()

	var rows []Row
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to decode %s", path)
	}

	return rows, nil
}
