/*
This package helps organise an all or nothing pipeline. If an error occurs at
any point in the pipeline, we assume the entire operation should be cancelled.

The context is checked when reading or writing to a channel. If the context is
cancelled, the operation is stopped whether the channel is closed or not.

Based on: https://go.dev/blog/pipelines
*/
package utils

import (
	"context"
	"sync"
)

// ProduceWithContext feeds in onto a channel, one value per receive, stopping
// early if ctx is cancelled. Used by the consolidate engine's concurrent
// repair pass to fan the active slot list out across its worker pool.
func ProduceWithContext[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, t := range in {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// SinkWithContext drains in, calling sinkFn on every value, and reports the
// first error (or ctx's own cancellation) on the returned channel. Several
// sinks may share one in channel as a worker pool, which is exactly how the
// consolidate engine's concurrent repair pass uses it: one call per worker,
// racing for jobs off the same channel.
func SinkWithContext[T any](ctx context.Context, in <-chan T, sinkFn func(T) error) <-chan error {
	errC := make(chan error, 1)
	go func() {
		defer close(errC)
		for {
			select {
			case <-ctx.Done():
				errC <- ctx.Err()
				return
			case b, ok := <-in:
				if !ok {
					errC <- nil
					return
				}
				if err := sinkFn(b); err != nil {
					errC <- err
					return
				}
			}
		}
	}()
	return errC
}

// MergeErrorsWithContext waits on every error channel and returns the first
// non-nil error across all of them (or ctx's own cancellation), cancelling
// the rest as soon as one fires. The consolidate engine's concurrent repair
// pass uses this to collapse one error channel per worker into the single
// error ConsolidateDeletes returns.
func MergeErrorsWithContext(ctx context.Context, cs ...<-chan error) <-chan error {
	errC := make(chan error, 1)
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancelCause(ctx)
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			select {
			case <-ctx.Done():
				cancel(ctx.Err())
			case err := <-c:
				if err != nil {
					cancel(err)
				}
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		errC <- context.Cause(ctx)
		close(errC)
	}()
	return errC
}
