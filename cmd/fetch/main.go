package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/logger"
	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/version"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/report"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store"
)

// -v is taken by --verbose, so the built-in version flag keeps only its long name.
func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:        "version",
		Usage:       "print the version",
		HideDefault: true,
		Local:       true,
	}
}

// loadRunConfig merges the optional config file with the flags that were set explicitly.
func loadRunConfig(cmd *cli.Command) (marketdata.RunConfig, error) {
	config := marketdata.DefaultRunConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := marketdata.LoadRunConfig(path)
		if err != nil {
			return config, err
		}

		config = loaded
	}

	if cmd.IsSet("tickers-file") {
		config.TickersFile = cmd.String("tickers-file")
	}

	if cmd.IsSet("start") {
		config.Start = cmd.String("start")
	}

	if cmd.IsSet("end") {
		config.End = cmd.String("end")
	}

	if cmd.IsSet("out-dir") {
		config.OutDir = cmd.String("out-dir")
	}

	if cmd.IsSet("interval") {
		config.Interval = cmd.String("interval")
	}

	if cmd.IsSet("force") {
		config.Force = cmd.Bool("force")
	}

	if cmd.IsSet("provider") {
		config.Provider = provider.ProviderType(cmd.String("provider"))
	}

	if cmd.IsSet("polygon-api-key") {
		config.PolygonApiKey = cmd.String("polygon-api-key")
	}

	if cmd.IsSet("concurrency") {
		config.Concurrency = int(cmd.Int("concurrency"))
	}

	if cmd.IsSet("layout") {
		config.Layout = store.Layout(cmd.String("layout"))
	}

	if cmd.IsSet("compression") {
		config.Compression = store.Compression(cmd.String("compression"))
	}

	return config, config.Validate()
}

func collectTickers(config marketdata.RunConfig) ([]string, error) {
	var tickers []string

	if config.TickersFile != "" {
		fromFile, err := marketdata.ReadTickersFile(config.TickersFile)
		if err != nil {
			return nil, err
		}

		tickers = append(tickers, fromFile...)
	}

	tickers = append(tickers, config.Tickers...)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers: pass --tickers-file or list tickers in --config")
	}

	return tickers, nil
}

// fetchAction runs the pipeline for every ticker and writes the summary CSV.
func fetchAction(ctx context.Context, cmd *cli.Command) error {
	level := zapcore.InfoLevel
	if cmd.Bool("verbose") {
		level = zapcore.DebugLevel
	}

	l, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Sync() //nolint:errcheck

	config, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	tickers, err := collectTickers(config)
	if err != nil {
		return err
	}

	clientConfig, err := config.ToClientConfig()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(tickers),
		progressbar.OptionSetDescription("Fetching"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	client, err := marketdata.NewClient(clientConfig,
		marketdata.WithLogger(l),
		marketdata.WithOnTickerDone(func(marketdata.TickerResult) {
			_ = bar.Add(1)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create market data client: %w", err)
	}

	results := client.Run(ctx, tickers)
	_ = bar.Finish()

	if summaries := marketdata.Summaries(results); len(summaries) > 0 {
		summaryPath := filepath.Join(config.OutDir, report.FileName)
		if err := report.WriteFile(summaryPath, summaries); err != nil {
			return err
		}

		l.Info("[summary] written", zap.String("path", summaryPath), zap.Int("tickers", len(summaries)))
	}

	if failures := marketdata.Failures(results); len(failures) > 0 {
		for _, failure := range failures {
			l.Error("Ticker failed", zap.String("ticker", failure.Ticker), zap.Error(failure.Err))
		}

		return cli.Exit(fmt.Sprintf("%d of %d tickers failed", len(failures), len(tickers)), 1)
	}

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := marketdata.RunConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func providersAction(_ context.Context, _ *cli.Command) error {
	for _, name := range marketdata.GetSupportedProviders() {
		info, err := marketdata.GetProviderInfo(name)
		if err != nil {
			return err
		}

		auth := ""
		if info.RequiresAuth {
			auth = " (requires API key)"
		}

		fmt.Printf("%-8s %s%s: %s\n", info.Name, info.DisplayName, auth, info.Description)
	}

	return nil
}

func newCommand() *cli.Command {
	defaults := marketdata.DefaultRunConfig()

	return &cli.Command{
		Name:    "fetch",
		Usage:   "Fetch historical prices for a list of tickers into Parquet files",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tickers-file",
				Aliases: []string{"t"},
				Usage:   "File with one ticker per line",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "Directory to write parquet files",
				Value: defaults.OutDir,
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Data interval (1d, 1h, 1m...)",
				Value: defaults.Interval,
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-fetch even if the file exists",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider to use (%s, %s, %s)", provider.ProviderYahoo, provider.ProviderPolygon, provider.ProviderBinance),
				Value:   string(defaults.Provider),
			},
			&cli.StringFlag{
				Name:    "polygon-api-key",
				Usage:   "Polygon.io API key",
				Sources: cli.EnvVars("POLYGON_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML run configuration; flags that are set override it",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of tickers fetched in parallel",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "layout",
				Usage: "File naming: ticker (<ticker>.parquet) or range (<ticker>_<interval>_<start>_<end>.parquet)",
				Value: string(defaults.Layout),
			},
			&cli.StringFlag{
				Name:  "compression",
				Usage: "Parquet codec: snappy, zstd, gzip or uncompressed",
				Value: string(defaults.Compression),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: fetchAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the run configuration file",
				Action: schemaAction,
			},
			{
				Name:   "providers",
				Usage:  "List supported data providers",
				Action: providersAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
