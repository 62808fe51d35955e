package types

import "time"

// RawTable is a price table in the shape an upstream provider returned it.
// Column headers keep their provider-native names and may carry one or two levels,
// for example ("Close") or ("Close", "AAPL").
type RawTable struct {
	// IndexName is the provider name of the time index, e.g. "Date" or "Datetime".
	// Empty when the table has no index.
	IndexName string
	// Index holds one timestamp per row. Timestamps may carry any location.
	Index []time.Time
	// FieldLevel is the header level that holds the field name when headers have
	// more than one level. The other level is the ticker and gets dropped.
	FieldLevel int
	// Columns are the provider columns in provider order.
	Columns []RawColumn
}

// RawColumn is one provider column. Values are whatever the provider decoded:
// float64, int64, json.Number, string, nil, time.Time, ...
type RawColumn struct {
	Header []string
	Values []any
}

// Len returns the number of rows in the table.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}

	if len(t.IndexName) > 0 || len(t.Index) > 0 {
		return len(t.Index)
	}

	rows := 0
	for _, column := range t.Columns {
		if len(column.Values) > rows {
			rows = len(column.Values)
		}
	}

	return rows
}

// IsEmpty reports whether the table is nil, has no rows or has no columns.
func (t *RawTable) IsEmpty() bool {
	return t.Len() == 0 || len(t.Columns) == 0
}

// IsMultiLevel reports whether any column header has more than one level.
func (t *RawTable) IsMultiLevel() bool {
	for _, column := range t.Columns {
		if len(column.Header) > 1 {
			return true
		}
	}

	return false
}

// Value returns the value at row, or nil when the column is shorter than the table.
func (c RawColumn) Value(row int) any {
	if row < 0 || row >= len(c.Values) {
		return nil
	}

	return c.Values[row]
}
