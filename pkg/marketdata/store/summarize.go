package store

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Summarize describes a series. It is total: the empty series yields no ticker, no dates
// and zero rows.
func Summarize(series types.PriceSeries) types.SummaryRecord {
	if series.IsEmpty() {
		return types.SummaryRecord{
			Ticker:    optional.None[string](),
			StartDate: optional.None[string](),
			EndDate:   optional.None[string](),
			Rows:      0,
		}
	}

	start := series.Bars[0].Date
	end := start

	for _, bar := range series.Bars[1:] {
		if bar.Date.Before(start) {
			start = bar.Date
		}

		if bar.Date.After(end) {
			end = bar.Date
		}
	}

	return types.SummaryRecord{
		Ticker:    series.Bars[0].Ticker,
		StartDate: optional.Some(FormatDate(start)),
		EndDate:   optional.Some(FormatDate(end)),
		Rows:      series.Len(),
	}
}

// FormatDate renders a bar date as YYYY-MM-DD at midnight and YYYY-MM-DD HH:MM:SS otherwise.
func FormatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}

	return t.Format(dateTimeLayout)
}
