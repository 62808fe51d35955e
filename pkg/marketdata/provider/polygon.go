package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// PolygonAggsIterator is the iterator returned by ListAggs.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client used for downloads.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonRestClient struct {
	client *polygon.Client
}

func (c *polygonRestClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

// polygonDefaultLookback is used when the request has no start date.
const polygonDefaultLookback = 2 * 365 * 24 * time.Hour

// PolygonClient downloads aggregates from Polygon.io.
type PolygonClient struct {
	apiClient PolygonAPIClient
	now       func() time.Time
}

// NewPolygonClient creates a Polygon provider for the given API key.
func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "apiKey is required")
	}

	return NewPolygonClientWithAPI(&polygonRestClient{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a Polygon provider on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
		now:       time.Now,
	}
}

func (c *PolygonClient) Name() string { return string(ProviderPolygon) }

// History implements Provider. The returned table uses polygon's short field names
// ("t", "o", "h", "l", "c", "v", "vw", "n"). Aggregates are split adjusted, so there is
// no separate adjusted close column.
func (c *PolygonClient) History(ctx context.Context, req HistoryRequest) (*types.RawTable, error) {
	interval, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	endDate := req.End.TakeOr(c.now())
	startDate := req.Start.TakeOr(endDate.Add(-polygonDefaultLookback))

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Ticker,
		Multiplier: interval.Multiplier,
		Timespan:   interval.PolygonTimespan(),
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := c.apiClient.ListAggs(ctx, params)

	table := &types.RawTable{IndexName: "t"}
	open, high, low, closePrice, volume, vwap, trades := []any{}, []any{}, []any{}, []any{}, []any{}, []any{}, []any{}

	for iter.Next() {
		agg := iter.Item()

		table.Index = append(table.Index, time.Time(agg.Timestamp).UTC())
		open = append(open, agg.Open)
		high = append(high, agg.High)
		low = append(low, agg.Low)
		closePrice = append(closePrice, agg.Close)
		volume = append(volume, agg.Volume)
		vwap = append(vwap, agg.VWAP)
		trades = append(trades, agg.Transactions)
	}

	if iter.Err() != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "error iterating polygon aggregates", iter.Err())
	}

	table.Columns = []types.RawColumn{
		{Header: []string{"o"}, Values: open},
		{Header: []string{"h"}, Values: high},
		{Header: []string{"l"}, Values: low},
		{Header: []string{"c"}, Values: closePrice},
		{Header: []string{"v"}, Values: volume},
		{Header: []string{"vw"}, Values: vwap},
		{Header: []string{"n"}, Values: trades},
	}

	return table, nil
}
