package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"

	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// Layout decides the file name of a ticker under the output directory.
type Layout string

const (
	// LayoutTicker stores one file per ticker: <out_dir>/<ticker>.parquet.
	// An existing file is reused regardless of the requested range or interval.
	LayoutTicker Layout = "ticker"
	// LayoutRange keys the file by ticker, interval and range:
	// <out_dir>/<ticker>_<interval>_<start>_<end>.parquet.
	LayoutRange Layout = "range"
)

// FileExtension is the extension of every persisted series.
const FileExtension = ".parquet"

// PathKey identifies one requested series.
type PathKey struct {
	Ticker   string
	Interval string
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
}

// ParseLayout validates a layout name. An empty name selects LayoutTicker.
func ParseLayout(name string) (Layout, error) {
	switch Layout(name) {
	case "":
		return LayoutTicker, nil
	case LayoutTicker, LayoutRange:
		return Layout(name), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported layout %q, expected ticker or range", name)
	}
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", string(filepath.Separator), "_")

// Path returns the deterministic file path for key under outDir.
func (l Layout) Path(outDir string, key PathKey) string {
	ticker := fileNameReplacer.Replace(key.Ticker)

	switch l {
	case LayoutRange:
		name := fmt.Sprintf("%s_%s_%s_%s%s",
			ticker,
			fileNameReplacer.Replace(key.Interval),
			boundName(key.Start),
			boundName(key.End),
			FileExtension,
		)

		return filepath.Join(outDir, name)
	default:
		return filepath.Join(outDir, ticker+FileExtension)
	}
}

// ChecksRange reports whether a file found under this layout is known to match the request.
func (l Layout) ChecksRange() bool {
	return l == LayoutRange
}

func boundName(bound optional.Option[time.Time]) string {
	if bound.IsNone() {
		return "all"
	}

	return bound.Unwrap().Format("2006-01-02")
}
