// Package normalizer turns provider-native raw tables into price series with the
// canonical schema: date, open, high, low, close, adj_close, volume, ticker.
package normalizer

import (
	"github.com/moznion/go-optional"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
)

// Normalizer applies a rules table to raw tables. It performs no I/O and never fails:
// missing columns and unparseable cells become None.
type Normalizer struct {
	rules []Rule
}

// New creates a Normalizer. Without rules DefaultRules is used.
func New(rules ...Rule) *Normalizer {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	return &Normalizer{rules: rules}
}

// Normalize converts raw with the default rules.
func Normalize(raw *types.RawTable, ticker string) types.PriceSeries {
	return New().Normalize(raw, ticker)
}

// column reads one cell of a renamed raw column.
type column func(row int) any

// Normalize converts raw into a PriceSeries for ticker.
func (n *Normalizer) Normalize(raw *types.RawTable, ticker string) types.PriceSeries {
	rows := raw.Len()
	if rows == 0 {
		return types.PriceSeries{}
	}

	columns := n.canonicalColumns(raw)

	// adj_close falls back to close
	if _, ok := columns[types.ColumnAdjClose]; !ok {
		if closeColumn, ok := columns[types.ColumnClose]; ok {
			columns[types.ColumnAdjClose] = closeColumn
		}
	}

	bars := make([]types.PriceBar, rows)
	dateColumn, hasDate := columns[types.ColumnDate]

	for row := 0; row < rows; row++ {
		bar := types.PriceBar{Ticker: optional.Some(ticker)}

		if hasDate {
			bar.Date = toTime(dateColumn(row)).Truncate(types.DatePrecision)
		}

		for _, name := range types.NumericColumns {
			value := optional.None[float64]()
			if c, ok := columns[name]; ok {
				value = toFloat(c(row))
			}

			bar.SetNumeric(name, value)
		}

		bars[row] = bar
	}

	return types.PriceSeries{Bars: bars}
}

// canonicalColumns collapses multi-level headers, moves the index into the date column
// and renames everything known. Unknown columns are dropped; the first column claiming a
// canonical name wins.
func (n *Normalizer) canonicalColumns(raw *types.RawTable) map[string]column {
	columns := make(map[string]column)

	// the index always holds timestamps, whatever it is called
	if len(raw.Index) > 0 {
		index := raw.Index
		columns[types.ColumnDate] = func(row int) any {
			if row >= len(index) {
				return nil
			}

			return index[row]
		}
	}

	for _, rawColumn := range raw.Columns {
		name, ok := resolve(n.rules, fieldName(rawColumn.Header, raw.FieldLevel))
		if !ok {
			continue
		}

		if _, taken := columns[name]; taken {
			continue
		}

		columns[name] = rawColumn.Value
	}

	return columns
}

// fieldName picks the header level that carries the field name.
func fieldName(header []string, level int) string {
	if len(header) == 0 {
		return ""
	}

	if level < 0 || level >= len(header) {
		level = 0
	}

	return header[level]
}
