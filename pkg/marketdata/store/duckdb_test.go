package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/normalizer"
)

type DuckDBStoreTestSuite struct {
	suite.Suite
	tempDir string
	store   *DuckDBStore
}

func TestDuckDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStoreTestSuite))
}

func (suite *DuckDBStoreTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()

	store, err := NewDuckDBStore()
	suite.Require().NoError(err)
	suite.store = store
}

func sampleSeries(ticker string, days int) types.PriceSeries {
	bars := make([]types.PriceBar, days)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = types.PriceBar{
			Date:     time.Date(2021, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Open:     optional.Some(price),
			High:     optional.Some(price + 1.25),
			Low:      optional.Some(price - 0.5),
			Close:    optional.Some(price + 0.75),
			AdjClose: optional.Some(price + 0.5),
			Volume:   optional.Some(1_000_000 + float64(i)),
			Ticker:   optional.Some(ticker),
		}
	}

	return types.PriceSeries{Bars: bars}
}

func (suite *DuckDBStoreTestSuite) TestRoundTrip() {
	series := sampleSeries("TST", 3)
	series.Bars[1].Volume = optional.None[float64]()
	series.Bars[2].Open = optional.None[float64]()
	series.Bars[2].Date = time.Date(2021, 1, 3, 14, 30, 0, 0, time.UTC)

	path := filepath.Join(suite.tempDir, "nested", "dir", "TST.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), series, path))

	loaded, err := suite.store.Load(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(series, loaded)
	suite.Equal(types.CanonicalColumns, loaded.Columns())
}

func (suite *DuckDBStoreTestSuite) TestRoundTripSubMicrosecondDates() {
	raw := &types.RawTable{
		IndexName: "Datetime",
		Index: []time.Time{
			time.Date(2021, 1, 1, 0, 0, 0, 123456789, time.UTC),
			time.Date(2021, 1, 1, 0, 0, 1, 999999999, time.UTC),
		},
		Columns: []types.RawColumn{{Header: []string{"Close"}, Values: []any{1.0, 2.0}}},
	}
	series := normalizer.Normalize(raw, "TST")

	path := filepath.Join(suite.tempDir, "TST.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), series, path))

	loaded, err := suite.store.Load(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(series, loaded)
	suite.Equal(time.Date(2021, 1, 1, 0, 0, 0, 123456000, time.UTC), loaded.Bars[0].Date)
}

func (suite *DuckDBStoreTestSuite) TestRoundTripEveryCompression() {
	series := sampleSeries("AAPL", 5)

	for _, compression := range []Compression{CompressionSnappy, CompressionZstd, CompressionGzip, CompressionUncompressed} {
		suite.Run(string(compression), func() {
			store, err := NewDuckDBStore(WithCompression(compression))
			suite.Require().NoError(err)

			path := filepath.Join(suite.tempDir, string(compression)+".parquet")
			suite.Require().NoError(store.Save(context.Background(), series, path))

			loaded, err := store.Load(context.Background(), path)
			suite.Require().NoError(err)
			suite.Equal(series, loaded)
		})
	}
}

func (suite *DuckDBStoreTestSuite) TestRoundTripEmptySeries() {
	path := filepath.Join(suite.tempDir, "EMPTY.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), types.PriceSeries{}, path))

	loaded, err := suite.store.Load(context.Background(), path)
	suite.Require().NoError(err)
	suite.True(loaded.IsEmpty())
}

func (suite *DuckDBStoreTestSuite) TestSaveOverwrites() {
	path := filepath.Join(suite.tempDir, "TST.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), sampleSeries("TST", 5), path))
	suite.Require().NoError(suite.store.Save(context.Background(), sampleSeries("TST", 2), path))

	loaded, err := suite.store.Load(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(2, loaded.Len())
}

func (suite *DuckDBStoreTestSuite) TestSaveLeavesNoTemporaryFiles() {
	path := filepath.Join(suite.tempDir, "TST.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), sampleSeries("TST", 2), path))

	entries, err := os.ReadDir(suite.tempDir)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("TST.parquet", entries[0].Name())
}

func (suite *DuckDBStoreTestSuite) TestSaveWithQuoteInPath() {
	path := filepath.Join(suite.tempDir, "it's", "TST.parquet")
	suite.Require().NoError(suite.store.Save(context.Background(), sampleSeries("TST", 1), path))

	loaded, err := suite.store.Load(context.Background(), path)
	suite.Require().NoError(err)
	suite.Equal(1, loaded.Len())
}

func (suite *DuckDBStoreTestSuite) TestLoadMissingFile() {
	_, err := suite.store.Load(context.Background(), filepath.Join(suite.tempDir, "missing.parquet"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *DuckDBStoreTestSuite) TestLoadCorruptFile() {
	path := filepath.Join(suite.tempDir, "corrupt.parquet")
	suite.Require().NoError(os.WriteFile(path, []byte("not parquet"), 0o644))

	_, err := suite.store.Load(context.Background(), path)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataReadFailed))
}

func (suite *DuckDBStoreTestSuite) TestExists() {
	path := filepath.Join(suite.tempDir, "TST.parquet")

	exists, err := suite.store.Exists(path)
	suite.NoError(err)
	suite.False(exists)

	suite.Require().NoError(suite.store.Save(context.Background(), sampleSeries("TST", 1), path))

	exists, err = suite.store.Exists(path)
	suite.NoError(err)
	suite.True(exists)

	exists, err = suite.store.Exists(suite.tempDir)
	suite.NoError(err)
	suite.False(exists)
}

func (suite *DuckDBStoreTestSuite) TestInvalidCompression() {
	_, err := NewDuckDBStore(WithCompression("lz4"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
