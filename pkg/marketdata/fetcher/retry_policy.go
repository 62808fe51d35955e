package fetcher

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ErenCAkpinar/quant-stock-fetcher/pkg/errors"
)

// RetryPolicy bounds the retries of one fetch call.
// The wait before retry n (1-based) is BaseDelay * 2^(n-1), capped at MaxDelay.
type RetryPolicy struct {
	// MaxAttempts is the total number of upstream calls, including the first one.
	MaxAttempts int `yaml:"max_attempts" json:"maxAttempts" jsonschema:"title=Max Attempts,minimum=1,default=5" validate:"min=1"`
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration `yaml:"base_delay" json:"baseDelay" jsonschema:"title=Base Delay,description=Wait before the first retry as a duration string such as 2s" validate:"gte=0"`
	// MaxDelay caps every wait.
	MaxDelay time.Duration `yaml:"max_delay" json:"maxDelay" jsonschema:"title=Max Delay,description=Upper bound of a single wait as a duration string such as 30s" validate:"gtefield=BaseDelay"`
}

// DefaultRetryPolicy returns 5 attempts waiting 2s, 4s, 8s and 16s between them, never more than 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "retry policy needs at least one attempt, got %d", p.MaxAttempts)
	}

	if p.BaseDelay < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "retry base delay must not be negative, got %s", p.BaseDelay)
	}

	if p.MaxDelay < p.BaseDelay {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "retry max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	}

	return nil
}

// Delay returns the wait before retry n (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}

	delay := p.BaseDelay
	for i := 1; i < retry && delay < p.MaxDelay; i++ {
		delay *= 2
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}

// NewBackOff builds the backoff schedule for one fetch call.
// Jitter is disabled so the schedule matches Delay exactly.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = p.BaseDelay
	exponential.RandomizationFactor = 0
	exponential.Multiplier = 2
	exponential.MaxInterval = p.MaxDelay
	exponential.MaxElapsedTime = 0
	exponential.Reset()

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}

	return backoff.WithMaxRetries(exponential, uint64(retries))
}
