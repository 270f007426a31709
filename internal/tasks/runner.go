// Package tasks supervises fire-and-forget work: the caller never waits for
// it, but failures and panics are still logged and counted.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/leadsync/internal/observability/metrics"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const defaultTimeout = 30 * time.Second

// Runner tracks detached tasks so shutdown can drain them.
type Runner struct {
	wg      sync.WaitGroup
	logger  *logging.Logger
	metrics *metrics.LeadMetrics
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each task. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(logger *logging.Logger, m *metrics.LeadMetrics, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Runner{
		logger:  logger,
		metrics: m,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go starts fn in its own goroutine. The task keeps ctx's values but not its
// cancellation, so it outlives the request that launched it.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	if ctx == nil {
		ctx = context.Background()
	}
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		start := time.Now()
		err := r.run(taskCtx, fn)
		if err != nil {
			r.metrics.ObserveBackgroundTask(name, "failed")
			r.logger.Error("background task failed",
				"task", name,
				"error", err,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return
		}
		r.metrics.ObserveBackgroundTask(name, "ok")
		r.logger.Debug("background task finished", "task", name, "duration_ms", time.Since(start).Milliseconds())
	}()
}

func (r *Runner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started task returns or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("tasks: wait: %w", ctx.Err())
	}
}
