package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}

	t.Run("recovers from transient failure", func(t *testing.T) {
		t.Parallel()
		calls := 0
		text, err := WithRetry(context.Background(), policy, logger, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", fmt.Errorf("%w: 503", ErrTransientFailure)
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := WithRetry(context.Background(), policy, logger, func(context.Context) (string, error) {
			calls++
			return "", fmt.Errorf("%w: 429", ErrTransientFailure)
		})
		assert.ErrorIs(t, err, ErrTransientFailure)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		t.Parallel()
		calls := 0
		_, err := WithRetry(context.Background(), policy, logger, func(context.Context) (string, error) {
			calls++
			return "", ErrContentBlocked
		})
		assert.ErrorIs(t, err, ErrContentBlocked)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}
		_, err := WithRetry(ctx, slow, logger, func(context.Context) (string, error) {
			cancel()
			return "", errors.Join(ErrTransientFailure, errors.New("timeout"))
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
