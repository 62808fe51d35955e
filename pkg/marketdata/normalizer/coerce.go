package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// toFloat coerces a raw cell to a float. Anything that is not a number, or a string
// holding one, becomes None.
func toFloat(value any) optional.Option[float64] {
	switch v := value.(type) {
	case nil:
		return optional.None[float64]()
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return optional.Some(float64(v))
	case int8:
		return optional.Some(float64(v))
	case int16:
		return optional.Some(float64(v))
	case int32:
		return optional.Some(float64(v))
	case int64:
		return optional.Some(float64(v))
	case uint:
		return optional.Some(float64(v))
	case uint8:
		return optional.Some(float64(v))
	case uint16:
		return optional.Some(float64(v))
	case uint32:
		return optional.Some(float64(v))
	case uint64:
		return optional.Some(float64(v))
	case *float64:
		if v == nil {
			return optional.None[float64]()
		}

		return finite(*v)
	case decimal.Decimal:
		return finite(v.InexactFloat64())
	case json.Number:
		return parseNumber(string(v))
	case string:
		return parseNumber(v)
	case []byte:
		return parseNumber(string(v))
	default:
		return optional.None[float64]()
	}
}

// finite treats NaN and both infinities as missing.
func finite(v float64) optional.Option[float64] {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return optional.None[float64]()
	}

	return optional.Some(v)
}

func parseNumber(text string) optional.Option[float64] {
	text = strings.TrimSpace(text)
	if text == "" {
		return optional.None[float64]()
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return optional.None[float64]()
	}

	return finite(d.InexactFloat64())
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// toTime coerces a raw date cell to a UTC time. Integer values are unix milliseconds,
// the convention of the polygon and binance APIs. Unparseable cells give the zero time.
func toTime(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case *time.Time:
		if v == nil {
			return time.Time{}
		}

		return v.UTC()
	case int64:
		return time.UnixMilli(v).UTC()
	case int:
		return time.UnixMilli(int64(v)).UTC()
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}
		}

		return time.UnixMilli(int64(v)).UTC()
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms).UTC()
		}

		return time.Time{}
	case string:
		return parseTime(v)
	default:
		return time.Time{}
	}
}

func parseTime(text string) time.Time {
	text = strings.TrimSpace(text)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}

	if ms, err := strconv.ParseInt(text, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}

	return time.Time{}
}
