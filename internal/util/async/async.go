// Package async provides a bounded worker pool for per-host fan-out.
//
// Hosts are independent: no ordering is guaranteed across tasks and one
// failing task never cancels its siblings. All results are collected so
// the caller can print a complete summary.
package async

import (
	"context"
)

// Task is one named unit of work.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result pairs a task name with its outcome.
type Result struct {
	Name string
	Err  error
}

// RunBounded executes tasks with at most limit running concurrently and
// returns one Result per task, in completion order. A limit below one is
// treated as unbounded.
func RunBounded(ctx context.Context, limit int, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}
	if limit < 1 || limit > len(tasks) {
		limit = len(tasks)
	}

	sem := make(chan struct{}, limit)
	resultChan := make(chan Result, len(tasks))

	for _, task := range tasks {
		go func() {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				resultChan <- Result{Name: task.Name, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			resultChan <- Result{Name: task.Name, Err: task.Func(ctx)}
		}()
	}

	results := make([]Result, 0, len(tasks))
	for range tasks {
		results = append(results, <-resultChan)
	}
	return results
}

// FirstError returns the first non-nil error among results, if any.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
