package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/logger"
	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/fetcher"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/normalizer"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store"
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=yahoo polygon binance"`
	WriterType    WriterType            `validate:"required,oneof=duckdb"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
	Interval      string                `validate:"required"`
	Start         optional.Option[time.Time]
	End           optional.Option[time.Time]
	Force         bool
	// Concurrency is the number of tickers processed at once. Zero means one.
	Concurrency int               `validate:"min=0"`
	Layout      store.Layout      `validate:"omitempty,oneof=ticker range"`
	Compression store.Compression `validate:"omitempty,oneof=snappy zstd gzip uncompressed"`
	Retry       fetcher.RetryPolicy
}

// Action is what the client did for one ticker.
type Action string

const (
	// ActionSkip means an existing file was loaded instead of fetching.
	ActionSkip Action = "skip"
	// ActionFetch means the ticker was downloaded and saved.
	ActionFetch Action = "fetch"
)

// TickerResult is the outcome for one ticker. Summary is only meaningful when Err is nil.
type TickerResult struct {
	Ticker  string
	Path    string
	Action  Action
	Summary types.SummaryRecord
	Err     error
}

// OnTickerDone is called after each ticker finishes. With concurrency above one
// it is called from several goroutines.
type OnTickerDone func(result TickerResult)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider replaces the provider built from the configuration.
func WithProvider(p provider.Provider) ClientOption {
	return func(c *Client) {
		c.provider = p
	}
}

// WithStore replaces the DuckDB store.
func WithStore(s store.Store) ClientOption {
	return func(c *Client) {
		c.store = s
	}
}

// WithRetryTimer replaces the backoff timer of the fetcher.
func WithRetryTimer(timer backoff.Timer) ClientOption {
	return func(c *Client) {
		c.timer = timer
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithOnTickerDone registers a per-ticker callback, e.g. to drive a progress bar.
func WithOnTickerDone(fn OnTickerDone) ClientOption {
	return func(c *Client) {
		c.onTickerDone = fn
	}
}

// Client runs the fetch, normalize, save and summarize pipeline for a list of tickers.
type Client struct {
	config       ClientConfig
	provider     provider.Provider
	store        store.Store
	fetcher      *fetcher.Fetcher
	normalizer   *normalizer.Normalizer
	timer        backoff.Timer
	logger       *logger.Logger
	onTickerDone OnTickerDone
	pathLocks    sync.Map
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, options ...ClientOption) (*Client, error) {
	if config.Layout == "" {
		config.Layout = store.LayoutTicker
	}

	if config.Compression == "" {
		config.Compression = store.DefaultCompression
	}

	if config.Concurrency == 0 {
		config.Concurrency = 1
	}

	if config.Retry == (fetcher.RetryPolicy{}) {
		config.Retry = fetcher.DefaultRetryPolicy()
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	if _, err := provider.ParseInterval(config.Interval); err != nil {
		return nil, err
	}

	client := &Client{
		config:     config,
		normalizer: normalizer.New(),
		logger:     logger.NewNopLogger(),
	}

	for _, option := range options {
		option(client)
	}

	if client.provider == nil {
		p, err := provider.NewMarketDataProvider(config.ProviderType, provider.Config{PolygonApiKey: config.PolygonApiKey})
		if err != nil {
			return nil, err
		}

		client.provider = p
	}

	if client.store == nil {
		s, err := store.NewDuckDBStore(
			store.WithCompression(config.Compression),
			store.WithLogger(client.logger.Named("store")),
		)
		if err != nil {
			return nil, err
		}

		client.store = s
	}

	f, err := fetcher.New(client.provider, config.Retry,
		fetcher.WithTimer(client.timer),
		fetcher.WithLogger(client.logger.Named("fetcher")),
	)
	if err != nil {
		return nil, err
	}

	client.fetcher = f

	return client, nil
}

// Path returns the file the client uses for ticker.
func (c *Client) Path(ticker string) string {
	return c.config.Layout.Path(c.config.DataPath, store.PathKey{
		Ticker:   ticker,
		Interval: c.config.Interval,
		Start:    c.config.Start,
		End:      c.config.End,
	})
}

// Fetch downloads and normalizes one ticker without touching the store.
func (c *Client) Fetch(ctx context.Context, ticker string) (types.PriceSeries, error) {
	raw, err := c.fetcher.Fetch(ctx, provider.HistoryRequest{
		Ticker:   ticker,
		Start:    c.config.Start,
		End:      c.config.End,
		Interval: c.config.Interval,
	})
	if err != nil {
		return types.PriceSeries{}, err
	}

	return c.normalizer.Normalize(raw, ticker), nil
}

// Run processes tickers and returns one result per ticker in input order.
// A failing ticker is recorded in its result and does not stop the others.
func (c *Client) Run(ctx context.Context, tickers []string) []TickerResult {
	results := make([]TickerResult, len(tickers))

	var group errgroup.Group
	group.SetLimit(c.config.Concurrency)

	for i, ticker := range tickers {
		group.Go(func() error {
			results[i] = c.processTicker(ctx, ticker)

			if c.onTickerDone != nil {
				c.onTickerDone(results[i])
			}

			return nil
		})
	}

	_ = group.Wait()

	return results
}

func (c *Client) processTicker(ctx context.Context, ticker string) TickerResult {
	path := c.Path(ticker)
	result := TickerResult{Ticker: ticker, Path: path}

	// duplicate tickers share a path
	unlock := c.lockPath(path)
	defer unlock()

	if err := ctx.Err(); err != nil {
		result.Err = err

		return result
	}

	exists, err := c.store.Exists(path)
	if err != nil {
		result.Err = err

		return result
	}

	if exists && !c.config.Force {
		result.Action = ActionSkip
		c.logger.Info("[skip] file exists", zap.String("ticker", ticker), zap.String("path", path))

		if !c.config.Layout.ChecksRange() {
			c.logger.Warn("Existing file is not checked against the requested range or interval",
				zap.String("ticker", ticker),
				zap.String("path", path),
				zap.String("start", formatOptionalDate(c.config.Start)),
				zap.String("end", formatOptionalDate(c.config.End)),
				zap.String("interval", c.config.Interval),
			)
		}

		series, err := c.store.Load(ctx, path)
		if err != nil {
			result.Err = err

			return result
		}

		result.Summary = store.Summarize(series)

		return result
	}

	result.Action = ActionFetch
	c.logger.Info("[fetch]",
		zap.String("ticker", ticker),
		zap.String("start", formatOptionalDate(c.config.Start)),
		zap.String("end", formatOptionalDate(c.config.End)),
		zap.String("interval", c.config.Interval),
	)

	series, err := c.Fetch(ctx, ticker)
	if err != nil {
		c.logger.Error("Ticker failed", zap.String("ticker", ticker), zap.Error(err))
		result.Err = err

		return result
	}

	if err := c.store.Save(ctx, series, path); err != nil {
		c.logger.Error("Ticker failed", zap.String("ticker", ticker), zap.Error(err))
		result.Err = err

		return result
	}

	c.logger.Info("[saved]", zap.String("path", path), zap.Int("rows", series.Len()))
	result.Summary = store.Summarize(series)

	return result
}

func (c *Client) lockPath(path string) func() {
	value, _ := c.pathLocks.LoadOrStore(path, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

// Summaries returns the summary records of successful results, in order.
func Summaries(results []TickerResult) []types.SummaryRecord {
	records := make([]types.SummaryRecord, 0, len(results))
	for _, result := range results {
		if result.Err == nil {
			records = append(records, result.Summary)
		}
	}

	return records
}

// Failures returns the failed results, in order.
func Failures(results []TickerResult) []TickerResult {
	var failed []TickerResult

	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}

	return failed
}

func formatOptionalDate(value optional.Option[time.Time]) string {
	if value.IsNone() {
		return "None"
	}

	return value.Unwrap().Format(DateLayout)
}
