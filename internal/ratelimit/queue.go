package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Queue admits outbound calls in FIFO order, enforcing a minimum interval
// between dispatches and at most one call in flight. Every component that
// talks to the same upstream shares one Queue instance, so overlapping
// triggers (scheduled refresh racing an on-demand request) contend here
// instead of at the upstream rate limiter.
type Queue struct {
	name    string
	limiter *rate.Limiter
	tasks   chan task
	logger  *zap.Logger
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// NewQueue creates a queue with the given minimum spacing and starts its
// worker. Close stops the worker after queued tasks drain.
func NewQueue(name string, minInterval time.Duration, buffer int, logger *zap.Logger) *Queue {
	q := &Queue{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		tasks:   make(chan task, buffer),
		logger:  logger,
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for t := range q.tasks {
		// The caller may have given up while queued
		if err := t.ctx.Err(); err != nil {
			t.done <- err
			continue
		}
		if err := q.limiter.Wait(t.ctx); err != nil {
			t.done <- err
			continue
		}
		q.logger.Debug("dispatching queued call", zap.String("queue", q.name))
		t.done <- t.fn(t.ctx)
	}
}

// Do enqueues fn and blocks until it has run or ctx was cancelled first.
// Tasks execute strictly serially in arrival order.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case q.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and lets the worker exit once drained.
func (q *Queue) Close() {
	close(q.tasks)
}
