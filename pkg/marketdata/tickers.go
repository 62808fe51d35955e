package marketdata

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// ReadTickers reads one symbol per line. Surrounding whitespace is trimmed and blank lines are skipped.
func ReadTickers(r io.Reader) ([]string, error) {
	var tickers []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		ticker := strings.TrimSpace(scanner.Text())
		if ticker == "" {
			continue
		}

		tickers = append(tickers, ticker)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to read tickers", err)
	}

	return tickers, nil
}

// ReadTickersFile reads a ticker list file.
func ReadTickersFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to open tickers file %s", path)
	}
	defer file.Close()

	return ReadTickers(file)
}
