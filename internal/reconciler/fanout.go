package reconciler

import (
	"context"
	"sync"
)

// Outcome is the per-item result of one fanned-out task.
type Outcome[T any] struct {
	Item T
	Err  error
}

// fanOut issues one task per item concurrently, waits for all of them, and
// returns a per-item outcome in input order. It never short-circuits: one
// failing task does not block or cancel the others, and the aggregate result
// is the list of outcomes, not a single pass/fail.
func fanOut[T any](ctx context.Context, items []T, task func(context.Context, T) error) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			outcomes[i] = Outcome[T]{Item: item, Err: task(ctx, item)}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}
