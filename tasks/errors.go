package tasks

import "errors"

// Common errors returned by the task processor.
var (
	// ErrQueueFull is returned when the ready queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrScheduleInPast is returned when a task is scheduled for a time that
	// has already passed.
	ErrScheduleInPast = errors.New("scheduled time is in the past")

	// ErrUnknownDependency is returned at submission when a declared
	// dependency id has never been seen by the processor.
	ErrUnknownDependency = errors.New("unknown dependency id")

	// ErrSelfDependency is returned when a task lists itself as a dependency.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrNotRunning is returned when submitting to a stopped processor.
	ErrNotRunning = errors.New("processor is not running")

	// ErrNoWork is returned when a task is submitted without a work function.
	ErrNoWork = errors.New("task has no work function")
)
