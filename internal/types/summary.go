package types

import "github.com/moznion/go-optional"

// SummaryRecord is the per-ticker line of a run report.
// It is derived from a PriceSeries and never persisted on its own.
type SummaryRecord struct {
	Ticker    optional.Option[string]
	StartDate optional.Option[string]
	EndDate   optional.Option[string]
	Rows      int
}
