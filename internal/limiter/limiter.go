// Package limiter bounds how many asynchronous operations run at once.
package limiter

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Progress receives coarse completion counts while a batch runs. It may be
// called concurrently from multiple goroutines.
type Progress func(done, total int)

// Options tune a Map call without affecting result semantics.
type Options struct {
	Logger   *zap.Logger
	Progress Progress
}

// Map runs fn over every item with at most limit executions in flight
// (unlimited when limit is 0) and returns the results in submission order.
// Failure of one operation never cancels or blocks the others: an error or
// panic inside fn is logged and leaves the zero value in that slot.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) (R, error), opts Options) []R {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	var sem *semaphore.Weighted
	if limit > 0 {
		sem = semaphore.NewWeighted(int64(limit))
	}

	var (
		wg        sync.WaitGroup
		completed atomic.Int64
	)
	total := len(items)
	for i := range items {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				logger.Warn("stopped launching operations", zap.Error(err))
				break
			}
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}
			results[i] = runOne(ctx, items[i], fn, logger)
			done := int(completed.Add(1))
			if opts.Progress != nil {
				opts.Progress(done, total)
			}
		}(i)
	}
	wg.Wait()
	return results
}

func runOne[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error), logger *zap.Logger) (result R) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result = zero
			logger.Error("operation panicked", zap.Any("panic", r))
		}
	}()
	res, err := fn(ctx, item)
	if err != nil {
		logger.Warn("operation failed", zap.Error(err))
		var zero R
		return zero
	}
	return res
}
