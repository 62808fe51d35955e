package marketdata

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/version"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/fetcher"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/store"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/utils"
)

// DateLayout is the format of the start and end bounds.
const DateLayout = "2006-01-02"

// RunConfig describes one fetch run. It can be loaded from YAML and is overridden by CLI flags.
type RunConfig struct {
	Version       string                `yaml:"version" json:"version,omitempty" jsonschema:"title=Required Version,description=Semver constraint on the tool version such as >= 1.2"`
	Tickers       []string              `yaml:"tickers" json:"tickers,omitempty" jsonschema:"title=Tickers,description=Symbols to fetch. Appended to the tickers file" validate:"dive,required"`
	TickersFile   string                `yaml:"tickers_file" json:"tickersFile,omitempty" jsonschema:"title=Tickers File,description=File with one symbol per line"`
	Start         string                `yaml:"start" json:"start,omitempty" jsonschema:"title=Start,description=First day to fetch,format=date" validate:"omitempty,datetime=2006-01-02"`
	End           string                `yaml:"end" json:"end,omitempty" jsonschema:"title=End,description=Last day to fetch,format=date" validate:"omitempty,datetime=2006-01-02"`
	Interval      string                `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Bar size such as 1d 1h 15m 1wk,default=1d" validate:"required"`
	OutDir        string                `yaml:"out_dir" json:"outDir" jsonschema:"title=Output Directory,default=data" validate:"required"`
	Force         bool                  `yaml:"force" json:"force,omitempty" jsonschema:"title=Force,description=Fetch again even when the file exists"`
	Provider      provider.ProviderType `yaml:"provider" json:"provider" jsonschema:"title=Provider,enum=yahoo,enum=polygon,enum=binance,default=yahoo" validate:"required,oneof=yahoo polygon binance"`
	PolygonApiKey string                `yaml:"polygon_api_key" json:"polygonApiKey,omitempty" jsonschema:"title=Polygon API Key" validate:"required_if=Provider polygon"`
	Concurrency   int                   `yaml:"concurrency" json:"concurrency" jsonschema:"title=Concurrency,description=Tickers processed in parallel,minimum=1,maximum=32,default=1" validate:"min=1,max=32"`
	Layout        store.Layout          `yaml:"layout" json:"layout" jsonschema:"title=Layout,enum=ticker,enum=range,default=ticker" validate:"required,oneof=ticker range"`
	Compression   store.Compression     `yaml:"compression" json:"compression" jsonschema:"title=Compression,enum=snappy,enum=zstd,enum=gzip,enum=uncompressed,default=snappy" validate:"required,oneof=snappy zstd gzip uncompressed"`
	Retry         fetcher.RetryPolicy   `yaml:"retry" json:"retry" jsonschema:"title=Retry Policy"`
}

// DefaultRunConfig returns the settings used when nothing is configured.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Version:       "",
		Tickers:       nil,
		TickersFile:   "",
		Start:         "",
		End:           "",
		Interval:      "1d",
		OutDir:        "data",
		Force:         false,
		Provider:      provider.ProviderYahoo,
		PolygonApiKey: "",
		Concurrency:   1,
		Layout:        store.LayoutTicker,
		Compression:   store.DefaultCompression,
		Retry:         fetcher.DefaultRetryPolicy(),
	}
}

// LoadRunConfig reads a YAML file on top of DefaultRunConfig.
func LoadRunConfig(path string) (RunConfig, error) {
	config := DefaultRunConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
	}

	return config, nil
}

// Validate checks field constraints, the required tool version, the date bounds, the interval and the retry policy.
func (c RunConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid run configuration", err)
	}

	if err := version.CheckConstraint(version.GetVersion(), c.Version); err != nil {
		return err
	}

	start, err := c.StartDate()
	if err != nil {
		return err
	}

	end, err := c.EndDate()
	if err != nil {
		return err
	}

	if start.IsSome() && end.IsSome() && end.Unwrap().Before(start.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "end %s is before start %s", c.End, c.Start)
	}

	if _, err := provider.ParseInterval(c.Interval); err != nil {
		return err
	}

	return c.Retry.Validate()
}

// StartDate parses Start. An empty value is None.
func (c RunConfig) StartDate() (optional.Option[time.Time], error) {
	return parseDate("start", c.Start)
}

// EndDate parses End. An empty value is None.
func (c RunConfig) EndDate() (optional.Option[time.Time], error) {
	return parseDate("end", c.End)
}

func parseDate(field, value string) (optional.Option[time.Time], error) {
	if value == "" {
		return optional.None[time.Time](), nil
	}

	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return optional.None[time.Time](), errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid %s date %q, expected YYYY-MM-DD", field, value)
	}

	return optional.Some(t), nil
}

// ToClientConfig converts the run settings to a ClientConfig.
func (c RunConfig) ToClientConfig() (ClientConfig, error) {
	start, err := c.StartDate()
	if err != nil {
		return ClientConfig{}, err
	}

	end, err := c.EndDate()
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		ProviderType:  c.Provider,
		WriterType:    WriterDuckDB,
		DataPath:      c.OutDir,
		PolygonApiKey: c.PolygonApiKey,
		Interval:      c.Interval,
		Start:         start,
		End:           end,
		Force:         c.Force,
		Concurrency:   c.Concurrency,
		Layout:        c.Layout,
		Compression:   c.Compression,
		Retry:         c.Retry,
	}, nil
}

// RunConfigSchema returns the JSON schema of RunConfig.
func RunConfigSchema() (string, error) {
	//nolint:exhaustruct // Empty struct is intentional for schema generation
	return utils.GetSchemaFromConfig(&RunConfig{})
}
