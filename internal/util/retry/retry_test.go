package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithAttempts(5), WithDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	cause := errors.New("broken")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return cause
	}, WithAttempts(3), WithDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnFatal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Fatal(errors.New("bad config"))
	}, WithAttempts(5), WithDelay(time.Millisecond))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not retrying")
	assert.Equal(t, 1, calls)
}

func TestDoRunsOnRetryHook(t *testing.T) {
	var hookAttempts []int
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("transient")
	},
		WithAttempts(3),
		WithDelay(time.Millisecond),
		WithOnRetry(func(attempt int, cause error) error {
			hookAttempts = append(hookAttempts, attempt)
			return errors.New("cleanup failed") // must not stop the retry
		}),
	)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, hookAttempts)
}

func TestDoHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return errors.New("transient") },
		WithAttempts(3), WithDelay(time.Minute))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoCapsDelay(t *testing.T) {
	start := time.Now()
	_ = Do(context.Background(), func() error { return errors.New("x") },
		WithAttempts(4),
		WithDelay(time.Millisecond),
		WithMultiplier(1000),
		WithMaxDelay(5*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(errors.New("plain")))
	assert.True(t, IsFatal(Fatal(errors.New("x"))))
	assert.Nil(t, Fatal(nil))
}
