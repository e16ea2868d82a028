// Package parallel runs independent jobs with bounded concurrency.
package parallel

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// PoolConfig configures the worker pool behavior.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: min(runtime.NumCPU(), 8)
	MaxWorkers int

	// Timeout is the maximum time for the entire operation.
	// Default: 0 (no timeout)
	Timeout time.Duration
}

// DefaultPoolConfig returns a default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxWorkers: min(max(runtime.NumCPU(), 2), 8)}
}

// WithWorkers returns a new config with the specified number of workers.
// Non-positive values keep the default.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	if n > 0 {
		c.MaxWorkers = n
	}
	return c
}

// WithTimeout returns a new config with the specified timeout.
func (c PoolConfig) WithTimeout(d time.Duration) PoolConfig {
	c.Timeout = d
	return c
}

// Map applies fn to every input concurrently and returns the results in
// input order. The first error cancels the context passed to the
// remaining calls and is returned.
func Map[T any, R any](ctx context.Context, config PoolConfig, inputs []T, fn func(ctx context.Context, input T) (R, error)) ([]R, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultPoolConfig().MaxWorkers
	}
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	results := make([]R, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MaxWorkers)
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, input)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ForEach runs fn on every input concurrently and returns the first error.
func ForEach[T any](ctx context.Context, config PoolConfig, inputs []T, fn func(ctx context.Context, input T) error) error {
	_, err := Map(ctx, config, inputs, func(ctx context.Context, input T) (struct{}, error) {
		return struct{}{}, fn(ctx, input)
	})
	return err
}

// Counter is a concurrency-safe progress counter.
type Counter struct {
	total int64
	done  atomic.Int64
}

// NewCounter creates a counter expecting total steps.
func NewCounter(total int64) *Counter {
	return &Counter{total: total}
}

// Inc records one finished step and returns the number finished so far.
func (c *Counter) Inc() int64 {
	return c.done.Add(1)
}

// Done returns the number of finished steps.
func (c *Counter) Done() int64 {
	return c.done.Load()
}

// Total returns the number of expected steps.
func (c *Counter) Total() int64 {
	return c.total
}
