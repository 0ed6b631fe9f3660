package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Priority orders tasks in the ready queue. Lower values dispatch first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Status represents the states a task execution can be in.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusRetrying  Status = "RETRYING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal returns true if no further state transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// WorkFunc is a unit of background work. Blocking work is fine: each attempt
// runs on its own goroutine and is bounded by the attempt context, so work
// that honors ctx is preemptible and work that does not merely has its result
// discarded.
type WorkFunc func(ctx context.Context) (any, error)

// Callback is invoked with the final result of a task. Panics inside the
// callback are recovered and logged, never propagated.
type Callback func(ResultSnapshot)

// Task is a unit of background work with priority, retry policy and optional
// dependencies or schedule.
type Task struct {
	ID       string
	Type     string
	Work     WorkFunc
	Priority Priority
	// MaxRetries of 0 takes the processor default; -1 disables retries.
	MaxRetries     int
	RetryDelayBase time.Duration
	Timeout        time.Duration
	Dependencies   []string
	ScheduleAt     time.Time
	Callback       Callback
	CreatedAt      time.Time
}

// NewTask builds a task of the given type with generated id, normal priority
// and a zero retry policy; the processor fills defaults at submission.
func NewTask(taskType string, work WorkFunc) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Work:      work,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
	}
}

// ResultSnapshot is the read-only view of a task's execution record returned
// by status queries and passed to callbacks.
type ResultSnapshot struct {
	TaskID      string
	TaskType    string
	Status      Status
	Value       any
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
	Attempts    int
	RetryCount  int
}

// Result is the mutable execution record for one task. The executor owns
// writes while the task is active; everyone else reads through Snapshot.
type Result struct {
	mu          sync.Mutex
	taskID      string
	taskType    string
	status      Status
	value       any
	err         string
	startedAt   time.Time
	completedAt time.Time
	attempts    int
	counted     bool
}

func newResult(task *Task) *Result {
	return &Result{
		taskID:   task.ID,
		taskType: task.Type,
		status:   StatusPending,
	}
}

// Snapshot returns a copy of the current record.
func (r *Result) Snapshot() ResultSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	retries := r.attempts - 1
	if retries < 0 {
		retries = 0
	}
	return ResultSnapshot{
		TaskID:      r.taskID,
		TaskType:    r.taskType,
		Status:      r.status,
		Value:       r.value,
		Error:       r.err,
		StartedAt:   r.startedAt,
		CompletedAt: r.completedAt,
		Attempts:    r.attempts,
		RetryCount:  retries,
	}
}

func (r *Result) markStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusRunning
	r.startedAt = time.Now()
}

func (r *Result) markAttempt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.attempts > 1 {
		r.status = StatusRetrying
	} else {
		r.status = StatusRunning
	}
}

func (r *Result) markCompleted(value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusCancelled {
		// Cancelled work may still finish; its result is discarded.
		return
	}
	r.status = StatusCompleted
	r.value = value
	r.err = ""
	r.completedAt = time.Now()
}

func (r *Result) markFailed(errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusCancelled {
		return
	}
	r.status = StatusFailed
	r.err = errMsg
	r.completedAt = time.Now()
}

func (r *Result) markCancelled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = StatusCancelled
	r.completedAt = time.Now()
}

// markCounted claims the single statistics slot for this record's terminal
// outcome. Returns false if the outcome was already counted.
func (r *Result) markCounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counted {
		return false
	}
	r.counted = true
	return true
}

// reset returns the record to PENDING for the next occurrence of a recurring
// task.
func (r *Result) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusPending
	r.value = nil
	r.err = ""
	r.startedAt = time.Time{}
	r.completedAt = time.Time{}
	r.attempts = 0
	r.counted = false
}

func (r *Result) currentStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
