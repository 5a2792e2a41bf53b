package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Scheduler runs indexed tasks with a bound on how many are active at once.
type Scheduler struct {
	concurrency int
}

func NewScheduler(concurrency int) (*Scheduler, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{concurrency: concurrency}, nil
}

// Execute calls task once for every index in [0, n) and waits for all of them.
//
// Semantics:
//   - Tasks start in index order; completion order is unconstrained.
//   - A task owns its index: callers record results in a slot per index, so no
//     two tasks share mutable state through the scheduler.
//   - On context cancellation no further tasks are started; tasks already
//     running receive the canceled context. Execute then returns the context
//     error and the indexes that never started.
func (s *Scheduler) Execute(ctx context.Context, n int, task func(ctx context.Context, i int)) ([]int, error) {
	if s == nil {
		return nil, errors.New("scheduler is nil")
	}
	if task == nil {
		return nil, errors.New("task is nil")
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	next := 0
scheduleLoop:
	for ; next < n; next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
			// acquired
		case <-ctx.Done():
			break scheduleLoop
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			task(ctx, i)
		}(next)
	}
	wg.Wait()

	if next == n {
		return nil, nil
	}
	skipped := make([]int, 0, n-next)
	for i := next; i < n; i++ {
		skipped = append(skipped, i)
	}
	return skipped, ctx.Err()
}
