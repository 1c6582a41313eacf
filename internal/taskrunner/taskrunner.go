// Package taskrunner implements the fan-out queue of deferred,
// delayable units of work described for the Task Runner component: a
// single bounded-buffer queue feeding a multi-consumer runner that
// spawns one goroutine per dequeued task, so a failing task never
// brings down the queue. Tasks may enqueue further tasks while
// executing. No ordering guarantee is made across tasks.
package taskrunner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aeturnum/spins-halp-line/internal/storyerr"
)

// QueueDepth is the bounded channel size backpressure is applied
// against; producers suspend on a full channel.
const QueueDepth = 50

// Task is one unit of deferred work.
type Task interface {
	// Execute runs the task's action. Errors are logged by the runner;
	// whether they are re-raised is controlled by Reraise.
	Execute(ctx context.Context) error

	// Delay is the approximate wait before Execute runs.
	Delay() time.Duration

	// Reraise reports whether an error from Execute should propagate
	// out of the runner's recover point instead of only being logged.
	// Used for process-bring-up tasks only.
	Reraise() bool

	// String names the task for logging.
	String() string
}

// BaseTask is embedded by concrete task types to supply the common,
// non-reraising zero-delay defaults.
type BaseTask struct {
	DelayFor time.Duration
}

func (b BaseTask) Delay() time.Duration { return b.DelayFor }
func (b BaseTask) Reraise() bool        { return false }

// Runner owns the bounded task channel and the supervising dispatch
// loop.
type Runner struct {
	queue  chan Task
	logger *zap.Logger
}

// New constructs a Runner. Run must be called (typically in its own
// goroutine) to begin dispatching.
func New(logger *zap.Logger) *Runner {
	return &Runner{
		queue:  make(chan Task, QueueDepth),
		logger: logger,
	}
}

// Enqueue blocks until there is room in the queue or ctx is done.
// Request handlers must never hold a critical lock across this call.
func (r *Runner) Enqueue(ctx context.Context, t Task) error {
	select {
	case r.queue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue enqueues without blocking; returns false if the queue is
// currently full.
func (r *Runner) TryEnqueue(t Task) bool {
	select {
	case r.queue <- t:
		return true
	default:
		return false
	}
}

// Run dispatches dequeued tasks until ctx is canceled. Each task gets
// its own goroutine, which waits out the task's delay before executing
// it, so a slow or failing task never blocks the next dequeue.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case t := <-r.queue:
			go r.execute(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) execute(ctx context.Context, t Task) {
	if d := t.Delay(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("task panicked",
				zap.String("task", t.String()),
				zap.Any("recover", rec))
			if t.Reraise() {
				panic(rec)
			}
		}
	}()

	if err := t.Execute(ctx); err != nil {
		wrapped := fmt.Errorf("%s: %w: %w", t.String(), storyerr.TaskError, err)
		r.logger.Error("task failed", zap.Error(wrapped))
		if t.Reraise() {
			panic(wrapped)
		}
	}
}
