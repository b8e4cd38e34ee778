package utils

import (
	"context"
	"sync"
)

// ParallelMap runs fn over items with at most workers goroutines and returns
// results in input order. A canceled context leaves unprocessed slots at
// their zero value with ctx.Err() recorded.
func ParallelMap[T, R any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		select {
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = fn(ctx, items[i])
		}(i)
	}

	wg.Wait()
	return results, errs
}
