// Package ioruntime provides the bounded background-work pool corsair
// uses for the things Go's scheduler doesn't already give away for free:
// admission control over maintenance tasks (session sweeps, health
// probes) and a single place to cancel all of them on shutdown. HTTP and
// WebSocket connections themselves run as plain goroutines — the Go
// runtime scheduler *is* the "single multiplexed executor" spec.md §4.1
// describes; Runtime is the part of that model a Go program still has to
// build by hand.
package ioruntime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrInvalidThreadCount is returned by Start when n <= 0.
var ErrInvalidThreadCount = errors.New("ioruntime: thread count must be positive")

// ErrNoLogger is returned by New when logger is nil — absence of a
// logger is a configuration error, per spec.md §4.1 / §7.
var ErrNoLogger = errors.New("ioruntime: logger is required")

// Runtime is a bounded pool of worker goroutines draining a shared task
// queue, plus the wait-group that keeps it "alive" (the work-guard from
// spec.md §4.1) until Stop is called.
type Runtime struct {
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool

	tasks  chan func()
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
}

// New constructs a Runtime; logger must be non-nil.
func New(logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		return nil, ErrNoLogger
	}
	return &Runtime{logger: logger}, nil
}

// Start launches n worker goroutines pulling tasks off the internal
// queue. n must be positive.
func (r *Runtime) Start(n int) error {
	if n <= 0 {
		return ErrInvalidThreadCount
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.tasks = make(chan func(), n*4)
	r.started = true

	for i := 0; i < n; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("ioruntime started", slog.Int("workers", n))
	return nil
}

func (r *Runtime) worker(id int) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case task, ok := <-r.tasks:
			if !ok {
				return
			}
			r.runTask(id, task)
		}
	}
}

func (r *Runtime) runTask(id int, task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("ioruntime: task panicked",
				slog.Int("worker", id),
				slog.Any("recover", rec),
			)
		}
	}()
	task()
}

// Submit enqueues a task for a worker to run. It is safe to call Submit
// concurrently with Stop; a submission after Stop has begun is dropped
// and reported via the returned bool.
func (r *Runtime) Submit(task func()) bool {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return false
	}
	tasks := r.tasks
	r.mu.Unlock()

	select {
	case tasks <- task:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Stop cancels the runtime's internal context (so in-flight operations
// bound to it observe cancellation), stops accepting new tasks, and
// returns a channel that closes once every worker has exited — the Go
// shape of spec.md's future-returning stop().
func (r *Runtime) Stop(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		close(done)
		return done
	}
	r.stopped = true
	r.cancel()
	r.mu.Unlock()

	go func() {
		r.wg.Wait()
		close(done)
		r.logger.Info("ioruntime stopped")
	}()

	return done
}

// Context returns the runtime's cancellation context, for async
// operations that should observe Stop being called.
func (r *Runtime) Context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}
