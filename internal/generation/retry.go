package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy controls how backends retry transient failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the first backoff delay; later delays double with jitter.
	BaseDelay time.Duration
	// MaxDelay caps a single backoff delay. Zero means no cap.
	MaxDelay time.Duration
}

// WithRetry calls fn until it succeeds, returns an error that does not wrap
// ErrTransientFailure, the policy runs out of attempts, or ctx is done.
// The last error from fn is returned.
func WithRetry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(ctx context.Context) (string, error)) (string, error) {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	jitter := policy.BaseDelay / 2
	if jitter <= 0 {
		jitter = 1
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(policy.MaxRetries) + 1),
		retry.Delay(policy.BaseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(jitter),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrTransientFailure)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "retrying text generation",
				"attempt", n+1,
				"max_attempts", policy.MaxRetries+1,
				"error", err)
		}),
	}
	if policy.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(policy.MaxDelay))
	}

	var text string
	err := retry.Do(func() error {
		var err error
		text, err = fn(ctx)
		return err
	}, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return "", fmt.Errorf("%w: %w", err, ctxErr)
		}
		return "", err
	}
	return text, nil
}
