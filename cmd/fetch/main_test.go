package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/urfave/cli/v3"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/version"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store"
)

type FetchCommandTestSuite struct {
	suite.Suite
	tempDir string
}

func TestFetchCommandSuite(t *testing.T) {
	suite.Run(t, new(FetchCommandTestSuite))
}

func (suite *FetchCommandTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

// parse runs the command with a stub action and returns the merged config.
func (suite *FetchCommandTestSuite) parse(args ...string) (marketdata.RunConfig, error) {
	var (
		config marketdata.RunConfig
		err    error
	)

	cmd := newCommand()
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		config, err = loadRunConfig(c)

		return nil
	}

	suite.Require().NoError(cmd.Run(context.Background(), append([]string{"fetch"}, args...)))

	return config, err
}

func (suite *FetchCommandTestSuite) TestDefaults() {
	config, err := suite.parse()
	suite.Require().NoError(err)

	suite.Equal(marketdata.DefaultRunConfig().OutDir, config.OutDir)
	suite.Equal("1d", config.Interval)
	suite.Equal(provider.ProviderYahoo, config.Provider)
}

func (suite *FetchCommandTestSuite) TestFlags() {
	config, err := suite.parse(
		"-t", "tickers.txt",
		"--start", "2021-01-01",
		"--end", "2021-02-01",
		"--out-dir", "prices",
		"--interval", "1h",
		"--force",
		"--concurrency", "4",
		"--layout", "range",
		"--compression", "gzip",
	)
	suite.Require().NoError(err)

	suite.Equal("tickers.txt", config.TickersFile)
	suite.Equal("2021-01-01", config.Start)
	suite.Equal("2021-02-01", config.End)
	suite.Equal("prices", config.OutDir)
	suite.Equal("1h", config.Interval)
	suite.True(config.Force)
	suite.Equal(4, config.Concurrency)
	suite.Equal(store.LayoutRange, config.Layout)
	suite.Equal(store.CompressionGzip, config.Compression)
}

func (suite *FetchCommandTestSuite) TestFlagsOverrideConfigFile() {
	path := filepath.Join(suite.tempDir, "run.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("out_dir: from-file\ninterval: 1wk\ntickers: [SPY]\n"), 0o644))

	config, err := suite.parse("--config", path, "--interval", "1d")
	suite.Require().NoError(err)

	suite.Equal("from-file", config.OutDir)
	suite.Equal("1d", config.Interval)
	suite.Equal([]string{"SPY"}, config.Tickers)
}

func (suite *FetchCommandTestSuite) TestInvalidFlag() {
	_, err := suite.parse("--start", "yesterday")
	suite.Error(err)
}

func (suite *FetchCommandTestSuite) TestCollectTickers() {
	path := filepath.Join(suite.tempDir, "tickers.txt")
	suite.Require().NoError(os.WriteFile(path, []byte("AAPL\n\nMSFT\n"), 0o644))

	config := marketdata.DefaultRunConfig()
	config.TickersFile = path
	config.Tickers = []string{"SPY"}

	tickers, err := collectTickers(config)
	suite.NoError(err)
	suite.Equal([]string{"AAPL", "MSFT", "SPY"}, tickers)

	_, err = collectTickers(marketdata.DefaultRunConfig())
	suite.Error(err)
}

func (suite *FetchCommandTestSuite) TestVerboseFlag() {
	for _, arg := range []string{"-v", "--verbose"} {
		suite.Run(arg, func() {
			var ran, verbose bool

			cmd := newCommand()
			cmd.Action = func(_ context.Context, c *cli.Command) error {
				ran = true
				verbose = c.Bool("verbose")

				return nil
			}

			suite.Require().NoError(cmd.Run(context.Background(), []string{"fetch", arg}))
			suite.True(ran)
			suite.True(verbose)
		})
	}
}

func (suite *FetchCommandTestSuite) TestVersionFlagSkipsAction() {
	var (
		ran bool
		out bytes.Buffer
	)

	cmd := newCommand()
	cmd.Writer = &out
	cmd.Action = func(_ context.Context, _ *cli.Command) error {
		ran = true

		return nil
	}

	suite.Require().NoError(cmd.Run(context.Background(), []string{"fetch", "--version"}))
	suite.False(ran)
	suite.Contains(out.String(), version.GetVersion())
}
