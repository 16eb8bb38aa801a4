package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultAttempts = 3
	defaultDelay    = 200 * time.Millisecond
	defaultMaxDelay = 2 * time.Second
)

// Policy describes bounded exponential backoff. Errors for which Retryable
// returns false stop the loop immediately; a nil Retryable retries everything.
type Policy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultAttempts,
		BaseDelay:   defaultDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// WithRetryable returns a copy of p using the given classifier.
func (p Policy) WithRetryable(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

// WithAttempts returns a copy of p capped at n attempts.
func (p Policy) WithAttempts(n uint) Policy {
	p.MaxAttempts = n
	return p
}

func (p Policy) ToRetryOptions(ctx context.Context) []retry.Option {
	attempts := p.MaxAttempts
	// retry-go treats zero attempts as unlimited.
	if attempts == 0 {
		attempts = 1
	}
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.BaseDelay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Extract(ctx).Warn("retrying after error",
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	}
	if p.Retryable != nil {
		opts = append(opts, retry.RetryIf(p.Retryable))
	}
	return opts
}

func Do(ctx context.Context, p Policy, fn func() error) error {
	return retry.Do(fn, p.ToRetryOptions(ctx)...)
}

func DoWithData[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	return retry.DoWithData(fn, p.ToRetryOptions(ctx)...)
}
