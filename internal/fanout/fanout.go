// Package fanout runs independent tasks on a bounded set of goroutines and joins
// their results in input order.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn once per item with at most limit calls in flight (limit <= 0 means
// one goroutine per item). It blocks until every call returns and yields results
// indexed like items, regardless of completion order. Tasks share no cancellation:
// a slow or failing task never stops its siblings.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			out[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors
	return out
}
