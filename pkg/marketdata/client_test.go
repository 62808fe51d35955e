package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/mocks"
	fetcherrors "github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/fetcher"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store"
)

// instantTimer fires every backoff wait immediately.
type instantTimer struct {
	c chan time.Time
}

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	tempDir      string
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// SetupTest runs before each test
func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	suite.tempDir = suite.T().TempDir()
}

// TearDownTest runs after each test
func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ClientTestSuite) config() ClientConfig {
	return ClientConfig{
		ProviderType: provider.ProviderYahoo,
		WriterType:   WriterDuckDB,
		DataPath:     suite.tempDir,
		Interval:     "1d",
		Start:        optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		End:          optional.Some(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)),
		Retry:        fetcher.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: time.Second},
	}
}

func (suite *ClientTestSuite) newClient(config ClientConfig, options ...ClientOption) *Client {
	options = append([]ClientOption{WithProvider(suite.mockProvider), WithRetryTimer(&instantTimer{})}, options...)

	client, err := NewClient(config, options...)
	suite.Require().NoError(err)

	return client
}

func generatedTable(count int) *types.RawTable {
	config := mocks.DefaultConfig()
	config.Count = count

	return mocks.NewDataGenerator(7).Generate(config)
}

func (suite *ClientTestSuite) expectHistory(ticker string, times int) {
	suite.mockProvider.EXPECT().
		History(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.HistoryRequest) (*types.RawTable, error) {
			suite.Equal(ticker, req.Ticker)
			suite.Equal("1d", req.Interval)

			return generatedTable(5), nil
		}).
		Times(times)
}

func (suite *ClientTestSuite) TestRunFetchesAndSaves() {
	suite.expectHistory("AAPL", 1)
	client := suite.newClient(suite.config())

	results := client.Run(context.Background(), []string{"AAPL"})
	suite.Require().Len(results, 1)

	result := results[0]
	suite.Require().NoError(result.Err)
	suite.Equal(ActionFetch, result.Action)
	suite.Equal(filepath.Join(suite.tempDir, "AAPL.parquet"), result.Path)
	suite.Equal("AAPL", result.Summary.Ticker.Unwrap())
	suite.Equal(5, result.Summary.Rows)
	suite.Equal("2024-01-02 05:00:00", result.Summary.StartDate.Unwrap())
	suite.FileExists(result.Path)
}

func (suite *ClientTestSuite) TestSecondRunSkipsWithoutNetworkCall() {
	suite.expectHistory("AAPL", 1)
	client := suite.newClient(suite.config())

	first := client.Run(context.Background(), []string{"AAPL"})
	second := client.Run(context.Background(), []string{"AAPL"})

	suite.Require().NoError(first[0].Err)
	suite.Require().NoError(second[0].Err)
	suite.Equal(ActionFetch, first[0].Action)
	suite.Equal(ActionSkip, second[0].Action)
	suite.Equal(first[0].Summary, second[0].Summary)
}

func (suite *ClientTestSuite) TestForceFetchesAgain() {
	suite.expectHistory("AAPL", 2)
	config := suite.config()
	config.Force = true
	client := suite.newClient(config)

	first := client.Run(context.Background(), []string{"AAPL"})
	second := client.Run(context.Background(), []string{"AAPL"})

	suite.Equal(ActionFetch, first[0].Action)
	suite.Equal(ActionFetch, second[0].Action)
	suite.NoError(second[0].Err)
}

func (suite *ClientTestSuite) TestFailingTickerDoesNotStopOthers() {
	suite.mockProvider.EXPECT().
		History(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req provider.HistoryRequest) (*types.RawTable, error) {
			if req.Ticker == "BAD" {
				return nil, errors.New("connection refused")
			}

			return generatedTable(3), nil
		}).
		Times(3)

	client := suite.newClient(suite.config())
	results := client.Run(context.Background(), []string{"BAD", "GOOD"})

	suite.Require().Len(results, 2)
	suite.Equal("BAD", results[0].Ticker)
	suite.True(fetcherrors.IsFetchFailedError(results[0].Err))
	suite.NoFileExists(results[0].Path)

	suite.Equal("GOOD", results[1].Ticker)
	suite.NoError(results[1].Err)
	suite.FileExists(results[1].Path)

	suite.Len(Summaries(results), 1)
	suite.Equal("GOOD", Summaries(results)[0].Ticker.Unwrap())
	suite.Len(Failures(results), 1)
}

func (suite *ClientTestSuite) TestRunKeepsInputOrderWithConcurrency() {
	suite.mockProvider.EXPECT().
		History(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, provider.HistoryRequest) (*types.RawTable, error) {
			return generatedTable(2), nil
		}).
		Times(5)

	config := suite.config()
	config.Concurrency = 4
	client := suite.newClient(config)

	tickers := []string{"A", "B", "C", "D", "E", "A"}

	var done int

	doneCh := make(chan struct{}, len(tickers))
	client.onTickerDone = func(TickerResult) { doneCh <- struct{}{} }

	results := client.Run(context.Background(), tickers)
	close(doneCh)

	for range doneCh {
		done++
	}

	suite.Equal(len(tickers), done)

	for i, result := range results {
		suite.Equal(tickers[i], result.Ticker)
		suite.NoError(result.Err)
	}

	var skips int

	for _, result := range results {
		if result.Action == ActionSkip {
			skips++
		}
	}

	suite.Equal(1, skips)
}

func (suite *ClientTestSuite) TestSaveFailureIsRecorded() {
	suite.expectHistory("AAPL", 1)

	mockStore := mocks.NewMockStore(suite.ctrl)
	path := filepath.Join(suite.tempDir, "AAPL.parquet")
	mockStore.EXPECT().Exists(path).Return(false, nil)
	mockStore.EXPECT().Save(gomock.Any(), gomock.Any(), path).
		Return(fetcherrors.New(fetcherrors.ErrCodeMarketDataWriteFailed, "disk full"))

	client := suite.newClient(suite.config(), WithStore(mockStore))
	results := client.Run(context.Background(), []string{"AAPL"})

	suite.True(fetcherrors.HasCode(results[0].Err, fetcherrors.ErrCodeMarketDataWriteFailed))
	suite.Empty(Summaries(results))
}

func (suite *ClientTestSuite) TestSkipLoadFailureIsRecorded() {
	mockStore := mocks.NewMockStore(suite.ctrl)
	path := filepath.Join(suite.tempDir, "AAPL.parquet")
	mockStore.EXPECT().Exists(path).Return(true, nil)
	mockStore.EXPECT().Load(gomock.Any(), path).
		Return(types.PriceSeries{}, fetcherrors.New(fetcherrors.ErrCodeMarketDataReadFailed, "corrupt"))

	client := suite.newClient(suite.config(), WithStore(mockStore))
	results := client.Run(context.Background(), []string{"AAPL"})

	suite.Equal(ActionSkip, results[0].Action)
	suite.True(fetcherrors.HasCode(results[0].Err, fetcherrors.ErrCodeMarketDataReadFailed))
}

func (suite *ClientTestSuite) TestRangeLayoutKeysFileByRequest() {
	config := suite.config()
	config.Layout = store.LayoutRange
	client := suite.newClient(config)

	suite.Equal(filepath.Join(suite.tempDir, "AAPL_1d_2024-01-02_2024-01-09.parquet"), client.Path("AAPL"))
}

func (suite *ClientTestSuite) TestCancelledContext() {
	client := suite.newClient(suite.config())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := client.Run(ctx, []string{"AAPL", "MSFT"})
	for _, result := range results {
		suite.ErrorIs(result.Err, context.Canceled)
	}

	entries, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Empty(entries)
}

func (suite *ClientTestSuite) TestFetchNormalizes() {
	suite.expectHistory("AAPL", 1)
	client := suite.newClient(suite.config())

	series, err := client.Fetch(context.Background(), "AAPL")
	suite.Require().NoError(err)
	suite.Equal(5, series.Len())
	suite.Equal(types.CanonicalColumns, series.Columns())
	suite.Equal("AAPL", series.Bars[0].Ticker.Unwrap())
}

func (suite *ClientTestSuite) TestNewClientValidation() {
	testCases := []struct {
		name   string
		mutate func(*ClientConfig)
		code   fetcherrors.ErrorCode
	}{
		{"missing data path", func(c *ClientConfig) { c.DataPath = "" }, fetcherrors.ErrCodeInvalidConfiguration},
		{"unknown provider", func(c *ClientConfig) { c.ProviderType = "bloomberg" }, fetcherrors.ErrCodeInvalidConfiguration},
		{"polygon without key", func(c *ClientConfig) { c.ProviderType = provider.ProviderPolygon }, fetcherrors.ErrCodeInvalidConfiguration},
		{"bad interval", func(c *ClientConfig) { c.Interval = "daily" }, fetcherrors.ErrCodeInvalidTimespan},
		{"bad layout", func(c *ClientConfig) { c.Layout = "flat" }, fetcherrors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			config := suite.config()
			tc.mutate(&config)

			_, err := NewClient(config)
			suite.Error(err)
			suite.True(fetcherrors.HasCode(err, tc.code), err.Error())
		})
	}
}

func (suite *ClientTestSuite) TestNewClientDefaults() {
	config := suite.config()
	config.Retry = fetcher.RetryPolicy{}

	client, err := NewClient(config, WithProvider(suite.mockProvider))
	suite.Require().NoError(err)
	suite.Equal(store.LayoutTicker, client.config.Layout)
	suite.Equal(store.CompressionSnappy, client.config.Compression)
	suite.Equal(1, client.config.Concurrency)
	suite.Equal(fetcher.DefaultRetryPolicy(), client.fetcher.Policy())
}
