package provider

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// IntervalUnit is the unit part of an interval token.
type IntervalUnit string

const (
	UnitSecond IntervalUnit = "second"
	UnitMinute IntervalUnit = "minute"
	UnitHour   IntervalUnit = "hour"
	UnitDay    IntervalUnit = "day"
	UnitWeek   IntervalUnit = "week"
	UnitMonth  IntervalUnit = "month"
)

// Interval is a parsed sampling granularity such as "1d", "15m", "1wk" or "3mo".
// Token keeps the original text so providers that accept it verbatim can pass it through.
type Interval struct {
	Token      string
	Multiplier int
	Unit       IntervalUnit
}

var intervalPattern = regexp.MustCompile(`^([1-9][0-9]*)(s|m|h|d|w|wk|mo|M)$`)

var intervalUnits = map[string]IntervalUnit{
	"s":  UnitSecond,
	"m":  UnitMinute,
	"h":  UnitHour,
	"d":  UnitDay,
	"w":  UnitWeek,
	"wk": UnitWeek,
	"mo": UnitMonth,
	"M":  UnitMonth,
}

// ParseInterval parses an interval token. Both yahoo style ("1wk", "1mo", "60m") and
// exchange style ("1w", "1M") tokens are accepted.
func ParseInterval(token string) (Interval, error) {
	match := intervalPattern.FindStringSubmatch(token)
	if match == nil {
		return Interval{}, errors.Newf(errors.ErrCodeInvalidTimespan, "invalid interval %q", token)
	}

	multiplier, err := strconv.Atoi(match[1])
	if err != nil {
		return Interval{}, errors.Wrapf(errors.ErrCodeInvalidTimespan, err, "invalid interval multiplier %q", match[1])
	}

	return Interval{
		Token:      token,
		Multiplier: multiplier,
		Unit:       intervalUnits[match[2]],
	}, nil
}

// IsIntraday reports whether bars are shorter than one day.
func (i Interval) IsIntraday() bool {
	switch i.Unit {
	case UnitSecond, UnitMinute, UnitHour:
		return true
	default:
		return false
	}
}

// PolygonTimespan returns the polygon aggregate timespan for the interval unit.
func (i Interval) PolygonTimespan() models.Timespan {
	switch i.Unit {
	case UnitSecond:
		return models.Second
	case UnitMinute:
		return models.Minute
	case UnitHour:
		return models.Hour
	case UnitDay:
		return models.Day
	case UnitWeek:
		return models.Week
	case UnitMonth:
		return models.Month
	default:
		return models.Day
	}
}

var binanceIntervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// BinanceInterval returns the kline interval string Binance expects.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func (i Interval) BinanceInterval() (string, error) {
	var interval string

	switch i.Unit {
	case UnitSecond:
		interval = fmt.Sprintf("%ds", i.Multiplier)
	case UnitMinute:
		if i.Multiplier%60 == 0 {
			interval = fmt.Sprintf("%dh", i.Multiplier/60)
		} else {
			interval = fmt.Sprintf("%dm", i.Multiplier)
		}
	case UnitHour:
		interval = fmt.Sprintf("%dh", i.Multiplier)
	case UnitDay:
		interval = fmt.Sprintf("%dd", i.Multiplier)
	case UnitWeek:
		interval = fmt.Sprintf("%dw", i.Multiplier)
	case UnitMonth:
		interval = fmt.Sprintf("%dM", i.Multiplier)
	}

	if !binanceIntervals[interval] {
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported interval for Binance: %s", i.Token)
	}

	return interval, nil
}

func (i Interval) String() string {
	return i.Token
}
