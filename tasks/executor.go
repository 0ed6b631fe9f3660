package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Executor runs one task at a time per call, with bounded retries and
// exponential backoff. Concurrency across tasks comes from the processor
// running many Execute calls on separate goroutines, not from this type.
type Executor struct {
	logger zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(logger zerolog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the task's work up to MaxRetries+1 times, sleeping
// RetryDelayBase * 2^(attempt-1) between attempts. A per-attempt timeout is
// treated as a retryable failure like any other error. The result record is
// updated in place so status queries observe RUNNING/RETRYING transitions;
// the task's callback, if any, receives the final snapshot.
func (e *Executor) Execute(ctx context.Context, task *Task, result *Result) {
	result.markStarted()

	maxAttempts := task.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			result.markCancelled()
			e.finish(task, result)
			return
		}

		result.markAttempt()
		value, err := e.runAttempt(ctx, task)
		if err == nil {
			result.markCompleted(value)
			e.logger.Debug().
				Str("task_id", task.ID).
				Str("task_type", task.Type).
				Int("attempts", attempt).
				Msg("Task completed")
			e.finish(task, result)
			return
		}

		lastErr = err
		e.logger.Warn().
			Err(err).
			Str("task_id", task.ID).
			Str("task_type", task.Type).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("Task attempt failed")

		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(task.RetryDelayBase, attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			result.markCancelled()
			e.finish(task, result)
			return
		}
	}

	result.markFailed(lastErr.Error())
	e.logger.Error().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Str("error", lastErr.Error()).
		Msg("Task failed, retries exhausted")
	e.finish(task, result)
}

// runAttempt executes one attempt, bounded by the task timeout when set. The
// work runs on its own goroutine so an attempt that ignores its context
// still times out from the executor's point of view.
func (e *Executor) runAttempt(ctx context.Context, task *Task) (any, error) {
	attemptCtx := ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		value, err := task.Work(attemptCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-attemptCtx.Done():
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("attempt timed out after %s", task.Timeout)
		}
		return nil, attemptCtx.Err()
	}
}

// finish invokes the task callback with the final snapshot. Callback panics
// are logged, never propagated.
func (e *Executor) finish(task *Task, result *Result) {
	if task.Callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("task_id", task.ID).
				Interface("panic", r).
				Msg("Task callback panicked")
		}
	}()
	task.Callback(result.Snapshot())
}

// backoffDelay returns base * 2^(attempt-1), attempt counted from 1.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	return base * time.Duration(1<<uint(attempt-1))
}
