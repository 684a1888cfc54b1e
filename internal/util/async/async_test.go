package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBoundedCollectsAllResults(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task{
		{Name: "a", Func: func(context.Context) error { return nil }},
		{Name: "b", Func: func(context.Context) error { return boom }},
		{Name: "c", Func: func(context.Context) error { return nil }},
	}

	results := RunBounded(context.Background(), 2, tasks)
	require.Len(t, results, 3)

	byName := map[string]error{}
	for _, r := range results {
		byName[r.Name] = r.Err
	}
	assert.NoError(t, byName["a"])
	assert.ErrorIs(t, byName["b"], boom)
	assert.NoError(t, byName["c"])
}

func TestRunBoundedEnforcesLimit(t *testing.T) {
	var running, peak int32
	var mu sync.Mutex

	task := func(context.Context) error {
		now := atomic.AddInt32(&running, 1)
		mu.Lock()
		if now > peak {
			peak = now
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{Name: string(rune('a' + i)), Func: task}
	}

	results := RunBounded(context.Background(), 2, tasks)
	require.Len(t, results, 8)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int32(2))
	assert.Positive(t, peak)
}

func TestRunBoundedEmptyAndUnbounded(t *testing.T) {
	assert.Nil(t, RunBounded(context.Background(), 4, nil))

	results := RunBounded(context.Background(), 0, []Task{
		{Name: "only", Func: func(context.Context) error { return nil }},
	})
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunBoundedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocked := Task{Name: "x", Func: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	results := RunBounded(ctx, 1, []Task{blocked, blocked, blocked})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestFirstError(t *testing.T) {
	boom := errors.New("boom")
	assert.NoError(t, FirstError([]Result{{Name: "a"}, {Name: "b"}}))
	assert.ErrorIs(t, FirstError([]Result{{Name: "a"}, {Name: "b", Err: boom}}), boom)
}
