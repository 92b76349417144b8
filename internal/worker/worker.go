// Package worker runs periodic background jobs until their context is cancelled.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	// RunAtStart runs the job once before the first tick.
	RunAtStart bool
	Fn         func(ctx context.Context) error
}

// Runner owns a set of jobs and waits for them on shutdown.
type Runner struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Start launches job in its own goroutine. A failing run is logged and retried on the next tick.
func (r *Runner) Start(ctx context.Context, job Job) {
	if job.Interval <= 0 {
		r.logger.Warn("Worker not started, interval must be positive", zap.String("job", job.Name))
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("Worker started", zap.String("job", job.Name), zap.Duration("interval", job.Interval))
		if job.RunAtStart {
			r.runOnce(ctx, job)
		}
		ticker := time.NewTicker(job.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Worker stopped", zap.String("job", job.Name))
				return
			case <-ticker.C:
				r.runOnce(ctx, job)
			}
		}
	}()
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Worker panicked", zap.String("job", job.Name), zap.Any("panic", p))
		}
	}()
	if err := job.Fn(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("Worker run failed", zap.String("job", job.Name), zap.Error(err))
	}
}

// Wait blocks until every started job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}
