package provider

import (
	"context"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// binancePageLimit is the maximum number of klines Binance returns per request.
const binancePageLimit = 1000

// BinanceKlinesService is the chained kline request builder.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context, opts ...binance.RequestOption) ([]*binance.Kline, error)
}

// BinanceAPIClient is the subset of the Binance client used for downloads.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceRestClient struct {
	client *binance.Client
}

func (c *binanceRestClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: c.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context, opts ...binance.RequestOption) ([]*binance.Kline, error) {
	return s.service.Do(ctx, opts...)
}

// BinanceClient downloads klines from the Binance public market data API.
type BinanceClient struct {
	apiClient BinanceAPIClient
}

// NewBinanceClient creates a Binance provider. Public market data needs no credentials.
func NewBinanceClient() (Provider, error) {
	return NewBinanceClientWithAPI(&binanceRestClient{client: binance.NewClient("", "")}), nil
}

// NewBinanceClientWithAPI creates a Binance provider on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{apiClient: apiClient}
}

func (c *BinanceClient) Name() string { return string(ProviderBinance) }

// History implements Provider. Pages through klines until the end of the range.
// Prices and volumes stay as the decimal strings Binance sends.
func (c *BinanceClient) History(ctx context.Context, req HistoryRequest) (*types.RawTable, error) {
	parsed, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	interval, err := parsed.BinanceInterval()
	if err != nil {
		return nil, err
	}

	table := &types.RawTable{IndexName: "Open time"}
	columns := map[string]*types.RawColumn{}
	names := []string{"Open", "High", "Low", "Close", "Volume", "Quote asset volume", "Number of trades"}

	for _, name := range names {
		columns[name] = &types.RawColumn{Header: []string{name}}
	}

	var currentStartTime int64
	if req.Start.IsSome() {
		currentStartTime = req.Start.Unwrap().UnixMilli()
	}

	for {
		service := c.apiClient.NewKlinesService().
			Symbol(req.Ticker).
			Interval(interval).
			Limit(binancePageLimit)

		if req.Start.IsSome() {
			service = service.StartTime(currentStartTime)
		}

		if req.End.IsSome() {
			service = service.EndTime(req.End.Unwrap().UnixMilli())
		}

		klines, err := service.Do(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch klines from Binance", err)
		}

		for _, k := range klines {
			table.Index = append(table.Index, time.UnixMilli(k.OpenTime).UTC())
			columns["Open"].Values = append(columns["Open"].Values, k.Open)
			columns["High"].Values = append(columns["High"].Values, k.High)
			columns["Low"].Values = append(columns["Low"].Values, k.Low)
			columns["Close"].Values = append(columns["Close"].Values, k.Close)
			columns["Volume"].Values = append(columns["Volume"].Values, k.Volume)
			columns["Quote asset volume"].Values = append(columns["Quote asset volume"].Values, k.QuoteAssetVolume)
			columns["Number of trades"].Values = append(columns["Number of trades"].Values, k.TradeNum)
		}

		// Without a start date Binance returns only the most recent page.
		if req.Start.IsNone() || len(klines) < binancePageLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if req.End.IsSome() && currentStartTime >= req.End.Unwrap().UnixMilli() {
			break
		}
	}

	for _, name := range names {
		table.Columns = append(table.Columns, *columns[name])
	}

	return table, nil
}
