package normalizer

import (
	"strings"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
)

// Rule maps the provider-native names of one column to its canonical name.
// Aliases are matched exactly first and case-insensitively second.
type Rule struct {
	Canonical string
	Aliases   []string
}

// DefaultRules covers the yahoo chart, polygon aggregate and binance kline shapes.
// A new provider quirk is supported by appending aliases here.
var DefaultRules = []Rule{
	{Canonical: types.ColumnDate, Aliases: []string{"Date", "Datetime", "index", "timestamp", "t", "Open time"}},
	{Canonical: types.ColumnOpen, Aliases: []string{"Open", "o"}},
	{Canonical: types.ColumnHigh, Aliases: []string{"High", "h"}},
	{Canonical: types.ColumnLow, Aliases: []string{"Low", "l"}},
	{Canonical: types.ColumnClose, Aliases: []string{"Close", "c"}},
	{Canonical: types.ColumnAdjClose, Aliases: []string{"Adj Close", "AdjClose", "adjclose"}},
	{Canonical: types.ColumnVolume, Aliases: []string{"Volume", "v"}},
}

// resolve returns the canonical name for a native column name.
func resolve(rules []Rule, name string) (string, bool) {
	for _, rule := range rules {
		if name == rule.Canonical {
			return rule.Canonical, true
		}

		for _, alias := range rule.Aliases {
			if name == alias {
				return rule.Canonical, true
			}
		}
	}

	for _, rule := range rules {
		if strings.EqualFold(name, rule.Canonical) {
			return rule.Canonical, true
		}

		for _, alias := range rule.Aliases {
			if strings.EqualFold(name, alias) {
				return rule.Canonical, true
			}
		}
	}

	return "", false
}
