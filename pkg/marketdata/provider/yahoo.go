package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient downloads history from the public Yahoo Finance chart API.
type YahooClient struct {
	httpClient HTTPClient
	baseURL    string
	userAgent  string
}

// YahooOption configures a YahooClient.
type YahooOption func(*YahooClient)

// WithHTTPClient replaces the HTTP client used for chart requests.
func WithHTTPClient(client HTTPClient) YahooOption {
	return func(c *YahooClient) {
		c.httpClient = client
	}
}

// WithBaseURL replaces the chart API host, e.g. to point at a test server.
func WithBaseURL(baseURL string) YahooOption {
	return func(c *YahooClient) {
		c.baseURL = baseURL
	}
}

// NewYahooClient creates a Yahoo chart client with sane transport defaults.
func NewYahooClient(options ...YahooOption) *YahooClient {
	client := &YahooClient{
		httpClient: newHTTPClient(30 * time.Second),
		baseURL:    defaultYahooBaseURL,
		userAgent:  "Mozilla/5.0",
	}

	for _, option := range options {
		option(client)
	}

	return client
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

func (c *YahooClient) Name() string { return string(ProviderYahoo) }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []any `json:"open"`
			High   []any `json:"high"`
			Low    []any `json:"low"`
			Close  []any `json:"close"`
			Volume []any `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []any `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History implements Provider.
func (c *YahooClient) History(ctx context.Context, req HistoryRequest) (*types.RawTable, error) {
	interval, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	chartURL, err := c.chartURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to build yahoo request", err)
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "yahoo fetch", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "yahoo read body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstreamStatus, "yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "yahoo decode", err)
	}

	if chart.Chart.Error != nil {
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "yahoo api error: %s", chart.Chart.Error.Description)
	}

	if len(chart.Chart.Result) == 0 {
		return &types.RawTable{}, nil
	}

	return chartToTable(chart.Chart.Result[0], interval), nil
}

func (c *YahooClient) chartURL(req HistoryRequest) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid yahoo base url %q", c.baseURL)
	}

	base = base.JoinPath("v8", "finance", "chart", req.Ticker)

	query := url.Values{}
	query.Set("interval", req.Interval)
	query.Set("includeAdjustedClose", "true")
	query.Set("events", "div,splits")

	if req.Start.IsNone() && req.End.IsNone() {
		query.Set("range", "max")
	} else {
		var period1, period2 int64

		if req.Start.IsSome() {
			period1 = req.Start.Unwrap().Unix()
		}

		if req.End.IsSome() {
			period2 = req.End.Unwrap().Unix()
		} else {
			period2 = time.Now().Unix()
		}

		query.Set("period1", strconv.FormatInt(period1, 10))
		query.Set("period2", strconv.FormatInt(period2, 10))
	}

	base.RawQuery = query.Encode()

	return base.String(), nil
}

// chartToTable converts a chart result to a raw table with yahoo column names.
// Daily and longer bars are stamped at midnight of the exchange timezone, intraday bars keep
// their exact instant; both stay zone aware.
func chartToTable(result yahooChartResult, interval Interval) *types.RawTable {
	location := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)

	indexName := "Date"
	if interval.IsIntraday() {
		indexName = "Datetime"
	}

	index := make([]time.Time, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		local := time.Unix(ts, 0).In(location)
		if !interval.IsIntraday() {
			local = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
		}

		index[i] = local
	}

	table := &types.RawTable{
		IndexName: indexName,
		Index:     index,
	}

	if len(result.Indicators.Quote) > 0 {
		quote := result.Indicators.Quote[0]
		table.Columns = append(table.Columns,
			types.RawColumn{Header: []string{"Open"}, Values: quote.Open},
			types.RawColumn{Header: []string{"High"}, Values: quote.High},
			types.RawColumn{Header: []string{"Low"}, Values: quote.Low},
			types.RawColumn{Header: []string{"Close"}, Values: quote.Close},
		)

		if len(result.Indicators.AdjClose) > 0 {
			table.Columns = append(table.Columns,
				types.RawColumn{Header: []string{"Adj Close"}, Values: result.Indicators.AdjClose[0].AdjClose})
		}

		table.Columns = append(table.Columns, types.RawColumn{Header: []string{"Volume"}, Values: quote.Volume})
	}

	return table
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if location, err := time.LoadLocation(name); err == nil {
			return location
		}
	}

	return time.FixedZone(fmt.Sprintf("GMT%+d", gmtOffset/3600), gmtOffset)
}
