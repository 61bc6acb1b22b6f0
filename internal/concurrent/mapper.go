// Package concurrent provides the bounded, order-preserving mapper
// used for per-symbol fan-out against upstream providers.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over every item with at most limit invocations in
// flight, and returns results positionally matched to the input
// regardless of completion order. The first error cancels the shared
// context and aborts the whole batch, so callers that want per-item
// failure isolation must encode failures inside their result type.
// Empty input returns immediately without spawning anything.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T, index int) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			value, err := fn(ctx, item, i)
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
