// Package worker runs independent per-item tasks on a bounded pool and
// collects their results in input order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/glwatch/pkg/logger"
	"github.com/okian/glwatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	slowTaskThreshold       = 2 * time.Second
)

// Pool bounds how many tasks run at once.
type Pool struct {
	name   string
	size   int
	logger logger.Logger
}

// NewPool creates a pool running at most size tasks concurrently. A size
// below 1 uses a multiple of the CPU count.
func NewPool(size int, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		name:   "worker",
		size:   size,
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name != "worker" {
		p.logger = p.logger.Named(p.name)
	}
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.size
}

// Result is the outcome of task i.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Map runs fn for every index in [0, n) and returns results ordered by index.
// A failing or panicking task only sets its own Err. Map returns ctx.Err()
// when the context ends before every task ran; tasks that never started
// carry that error too.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) (T, error)) ([]Result[T], error) {
	results := make([]Result[T], n)
	for i := range results {
		results[i].Index = i
	}

	var g errgroup.Group
	g.SetLimit(p.size)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				results[j].Err = err
			}
			break
		}
		g.Go(func() error {
			results[i].Value, results[i].Err = runTask(ctx, p, i, fn)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors to the group

	if err := ctx.Err(); err != nil {
		p.logger.Warn(ctx, "pool stopped early", logger.Error(err), logger.Int("tasks", n))
		return results, fmt.Errorf("worker pool %s: %w", p.name, err)
	}
	return results, nil
}

func runTask[T any](ctx context.Context, p *Pool, i int, fn func(ctx context.Context, i int) (T, error)) (v T, err error) {
	metrics.AddWorkerActive(1)
	start := time.Now()
	defer func() {
		metrics.AddWorkerActive(-1)
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			p.logger.Error(ctx, "task panicked", logger.Int("task", i), logger.Any("panic", r))
			var zero T
			v, err = zero, fmt.Errorf("%w: task %d: %v", ErrTaskPanicked, i, r)
		}
		if d := time.Since(start); d > slowTaskThreshold {
			p.logger.Warn(ctx, "slow task", logger.Int("task", i), logger.Duration("elapsed", d))
		}
	}()
	return fn(ctx, i)
}
