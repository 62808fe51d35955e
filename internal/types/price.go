package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Canonical column names of a normalized price series, in storage order.
const (
	ColumnDate     = "date"
	ColumnOpen     = "open"
	ColumnHigh     = "high"
	ColumnLow      = "low"
	ColumnClose    = "close"
	ColumnAdjClose = "adj_close"
	ColumnVolume   = "volume"
	ColumnTicker   = "ticker"
)

// DatePrecision is the resolution of PriceBar.Date. Parquet files store microseconds.
const DatePrecision = time.Microsecond

// CanonicalColumns is the fixed column order of every PriceSeries.
var CanonicalColumns = []string{
	ColumnDate,
	ColumnOpen,
	ColumnHigh,
	ColumnLow,
	ColumnClose,
	ColumnAdjClose,
	ColumnVolume,
	ColumnTicker,
}

// NumericColumns lists the six canonical columns that hold floating point values.
var NumericColumns = []string{
	ColumnOpen,
	ColumnHigh,
	ColumnLow,
	ColumnClose,
	ColumnAdjClose,
	ColumnVolume,
}

// PriceBar is one row of a normalized price series.
// Missing values are represented as optional.None, never as zero.
type PriceBar struct {
	// Date is the bar timestamp in UTC wall-clock time, truncated to DatePrecision.
	Date     time.Time
	Open     optional.Option[float64]
	High     optional.Option[float64]
	Low      optional.Option[float64]
	Close    optional.Option[float64]
	AdjClose optional.Option[float64]
	Volume   optional.Option[float64]
	// Ticker is the symbol the bar belongs to.
	Ticker optional.Option[string]
}

// Numeric returns the value of one of the six numeric canonical columns.
// The second return value is false when column is not a numeric column.
func (b PriceBar) Numeric(column string) (optional.Option[float64], bool) {
	switch column {
	case ColumnOpen:
		return b.Open, true
	case ColumnHigh:
		return b.High, true
	case ColumnLow:
		return b.Low, true
	case ColumnClose:
		return b.Close, true
	case ColumnAdjClose:
		return b.AdjClose, true
	case ColumnVolume:
		return b.Volume, true
	default:
		return optional.None[float64](), false
	}
}

// SetNumeric assigns one of the six numeric canonical columns.
// Unknown column names are ignored.
func (b *PriceBar) SetNumeric(column string, value optional.Option[float64]) {
	switch column {
	case ColumnOpen:
		b.Open = value
	case ColumnHigh:
		b.High = value
	case ColumnLow:
		b.Low = value
	case ColumnClose:
		b.Close = value
	case ColumnAdjClose:
		b.AdjClose = value
	case ColumnVolume:
		b.Volume = value
	}
}

// PriceSeries is an ordered sequence of bars for one ticker, one date range and one interval.
type PriceSeries struct {
	Bars []PriceBar
}

// Len returns the number of bars in the series.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// IsEmpty reports whether the series has no bars.
func (s PriceSeries) IsEmpty() bool {
	return len(s.Bars) == 0
}

// Columns returns the column names of the series. It is always CanonicalColumns.
func (s PriceSeries) Columns() []string {
	columns := make([]string, len(CanonicalColumns))
	copy(columns, CanonicalColumns)

	return columns
}
