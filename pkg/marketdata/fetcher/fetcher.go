package fetcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/logger"
	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/marketdata/provider"
)

// Fetcher calls an upstream provider for one ticker and retries failed or empty
// responses according to its RetryPolicy.
type Fetcher struct {
	provider provider.Provider
	policy   RetryPolicy
	timer    backoff.Timer
	logger   *logger.Logger
	validate *validator.Validate
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimer replaces the timer used for backoff waits. Tests pass a timer that fires at once.
func WithTimer(timer backoff.Timer) Option {
	return func(f *Fetcher) {
		f.timer = timer
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New creates a Fetcher for the given provider.
func New(p provider.Provider, policy RetryPolicy, options ...Option) (*Fetcher, error) {
	if p == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "fetcher needs a provider")
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	f := &Fetcher{
		provider: p,
		policy:   policy,
		timer:    nil,
		logger:   logger.NewNopLogger(),
		validate: validator.New(),
	}

	for _, option := range options {
		option(f)
	}

	return f, nil
}

// Policy returns the retry policy of the fetcher.
func (f *Fetcher) Policy() RetryPolicy {
	return f.policy
}

// Fetch downloads the raw table for one ticker. Transport errors and empty responses are
// retried. When every attempt failed a *errors.FetchFailedError wrapping the last error is
// returned. Cancelling ctx stops the current wait.
func (f *Fetcher) Fetch(ctx context.Context, req provider.HistoryRequest) (*types.RawTable, error) {
	if err := f.validate.Struct(req); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid fetch request", err)
	}

	var (
		result   *types.RawTable
		attempts int
	)

	operation := func() error {
		attempts++

		table, err := f.provider.History(ctx, req)
		if err != nil {
			return err
		}

		if table.IsEmpty() {
			return errors.Newf(errors.ErrCodeNoDataFound, "no data returned for %s %s..%s", req.Ticker, formatBound(req.Start), formatBound(req.End))
		}

		result = table

		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Warn("Fetch attempt failed, retrying",
			zap.String("provider", f.provider.Name()),
			zap.String("ticker", req.Ticker),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(f.policy.NewBackOff(), ctx), notify, f.timer)
	if err != nil {
		f.logger.Error("Fetch failed",
			zap.String("provider", f.provider.Name()),
			zap.String("ticker", req.Ticker),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		return nil, errors.NewFetchFailedError(req.Ticker, attempts, err)
	}

	return result, nil
}

func formatBound(bound optional.Option[time.Time]) string {
	if bound.IsNone() {
		return "None"
	}

	return bound.Unwrap().Format("2006-01-02")
}
