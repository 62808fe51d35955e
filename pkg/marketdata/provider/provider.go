package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/moznion/go-optional"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderYahoo   ProviderType = "yahoo"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// HistoryRequest describes one historical download for one ticker.
// Start and End are optional calendar bounds; their inclusiveness follows the upstream provider.
type HistoryRequest struct {
	Ticker   string `validate:"required"`
	Start    optional.Option[time.Time]
	End      optional.Option[time.Time]
	Interval string `validate:"required"`
}

// Provider is an upstream historical price source.
type Provider interface {
	// Name returns the provider identifier used in logs.
	Name() string
	// History issues one upstream request for the given ticker and returns the table in the
	// provider's native shape. A successful call may return an empty table; deciding whether
	// that is a failure is up to the caller.
	// example:
	// History(ctx, HistoryRequest{Ticker: "AAPL", Start: optional.Some(start), Interval: "1d"})
	History(ctx context.Context, req HistoryRequest) (*types.RawTable, error)
}

// HTTPClient is the subset of *http.Client used by HTTP based providers.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the settings needed to build any provider.
type Config struct {
	PolygonApiKey string
	// HTTPClient overrides the HTTP client of the Yahoo provider.
	HTTPClient HTTPClient
	// YahooBaseURL overrides the Yahoo chart endpoint host.
	YahooBaseURL string
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, config Config) (Provider, error) {
	switch providerType {
	case ProviderYahoo:
		options := []YahooOption{}
		if config.HTTPClient != nil {
			options = append(options, WithHTTPClient(config.HTTPClient))
		}

		if config.YahooBaseURL != "" {
			options = append(options, WithBaseURL(config.YahooBaseURL))
		}

		return NewYahooClient(options...), nil
	case ProviderPolygon:
		return NewPolygonClient(config.PolygonApiKey)
	case ProviderBinance:
		return NewBinanceClient()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
