package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const dispatchPoll = time.Second

// HealthState classifies processor health for operators.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// Config holds processor tuning knobs with documented defaults.
type Config struct {
	// QueueCapacity bounds the ready queue. Default 100.
	QueueCapacity int
	// MaxWorkers bounds concurrently executing tasks. Default 4.
	MaxWorkers int
	// DefaultMaxRetries applies to tasks that do not set their own. Default 3.
	DefaultMaxRetries int
	// DefaultRetryDelay is the backoff base for tasks that do not set their
	// own. Default 1s.
	DefaultRetryDelay time.Duration
	// DependencyTimeout bounds how long a task may wait on unfinished
	// dependencies before it is failed. Default 5m.
	DependencyTimeout time.Duration
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:     100,
		MaxWorkers:        4,
		DefaultMaxRetries: 3,
		DefaultRetryDelay: time.Second,
		DependencyTimeout: 5 * time.Minute,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = d.MaxWorkers
	}
	if c.DefaultMaxRetries < 0 {
		c.DefaultMaxRetries = d.DefaultMaxRetries
	}
	if c.DefaultRetryDelay <= 0 {
		c.DefaultRetryDelay = d.DefaultRetryDelay
	}
	if c.DependencyTimeout <= 0 {
		c.DependencyTimeout = d.DependencyTimeout
	}
}

// Processor orchestrates the queue, executor and scheduler into one
// processing loop. It is constructed explicitly by the application entry
// point and carries explicit Start/Stop lifecycle; there is no lazy global
// instance.
type Processor struct {
	cfg       Config
	queue     *Queue
	executor  *Executor
	scheduler *Scheduler
	stats     *stats
	logger    zerolog.Logger

	mu      sync.Mutex
	results map[string]*Result
	tasks   map[string]*Task
	cancels map[string]context.CancelFunc
	running bool

	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     *semaphore.Weighted
}

// NewProcessor creates a processor from the given config.
func NewProcessor(cfg Config, logger zerolog.Logger) *Processor {
	cfg.applyDefaults()

	p := &Processor{
		cfg:     cfg,
		queue:   NewQueue(cfg.QueueCapacity),
		stats:   newStats(),
		logger:  logger,
		results: make(map[string]*Result),
		tasks:   make(map[string]*Task),
		cancels: make(map[string]context.CancelFunc),
	}
	p.executor = NewExecutor(logger)
	p.scheduler = NewScheduler(p.enqueueReleased, logger)
	return p
}

// Start launches the dispatch loop and the scheduler. Safe to call once.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("processor already running")
	}
	p.running = true
	p.rootCtx, p.cancel = context.WithCancel(ctx)
	p.sem = semaphore.NewWeighted(int64(p.cfg.MaxWorkers))
	p.mu.Unlock()

	p.scheduler.Start()

	p.wg.Add(1)
	go p.loop()

	p.logger.Info().
		Int("queue_capacity", p.cfg.QueueCapacity).
		Int("max_workers", p.cfg.MaxWorkers).
		Msg("Task processor started")
	return nil
}

// Stop halts dispatch, cancels in-flight work and waits for workers to
// return. Queued and scheduled tasks are left unexecuted.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	p.scheduler.Stop()
	cancel()
	p.wg.Wait()

	p.logger.Info().Msg("Task processor stopped")
}

// Submit routes a task to the ready queue, or to the scheduler when
// ScheduleAt is set in the future. Unknown and self dependencies are
// rejected here rather than letting the task starve.
func (p *Processor) Submit(task *Task) (string, error) {
	if task.Work == nil {
		return "", ErrNoWork
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return "", ErrNotRunning
	}

	p.fillDefaults(task)

	for _, dep := range task.Dependencies {
		if dep == task.ID {
			p.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrSelfDependency, task.ID)
		}
		if _, known := p.results[dep]; !known {
			p.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrUnknownDependency, dep)
		}
	}

	result := newResult(task)
	p.results[task.ID] = result
	p.tasks[task.ID] = task
	p.mu.Unlock()

	if !task.ScheduleAt.IsZero() {
		if err := p.scheduler.Schedule(task, task.ScheduleAt); err != nil {
			p.forget(task.ID)
			return "", err
		}
		p.stats.recordSubmission()
		return task.ID, nil
	}

	if !p.queue.Put(task) {
		p.forget(task.ID)
		return "", ErrQueueFull
	}

	p.stats.recordSubmission()
	p.logger.Debug().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Str("priority", task.Priority.String()).
		Msg("Task submitted")
	return task.ID, nil
}

// SubmitRecurring schedules the task to run every interval, first firing one
// interval from now, until Cancel is called with the returned id.
func (p *Processor) SubmitRecurring(task *Task, interval time.Duration) (string, error) {
	if task.Work == nil {
		return "", ErrNoWork
	}
	if interval <= 0 {
		return "", fmt.Errorf("recurring interval must be positive")
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return "", ErrNotRunning
	}
	p.fillDefaults(task)
	p.results[task.ID] = newResult(task)
	p.tasks[task.ID] = task
	p.mu.Unlock()

	p.stats.recordSubmission()
	return p.scheduler.ScheduleRecurring(task, interval), nil
}

// Status returns a snapshot of the task's execution record, or nil for an
// unknown id.
func (p *Processor) Status(taskID string) *ResultSnapshot {
	p.mu.Lock()
	result, ok := p.results[taskID]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	snap := result.Snapshot()
	return &snap
}

// Cancel stops a task wherever it currently is. Scheduled tasks are removed
// outright; queued tasks are pulled from the queue; running tasks get their
// context cancelled, which is best effort: work that ignores its context
// runs to completion but its result is discarded.
func (p *Processor) Cancel(taskID string) bool {
	if p.scheduler.CancelScheduled(taskID) {
		p.markCancelled(taskID)
		return true
	}

	if task := p.queue.Remove(taskID); task != nil {
		p.markCancelled(taskID)
		return true
	}

	p.mu.Lock()
	cancel, running := p.cancels[taskID]
	p.mu.Unlock()
	if running {
		cancel()
		p.markCancelled(taskID)
		return true
	}

	return false
}

// Statistics returns current counters plus queue occupancy.
func (p *Processor) Statistics() Statistics {
	snap := p.stats.snapshot()
	snap.QueueSize = p.queue.Len()
	snap.ScheduledTasks = p.scheduler.Count()

	p.mu.Lock()
	snap.ActiveTasks = len(p.cancels)
	p.mu.Unlock()

	return snap
}

// HealthCheck reports unhealthy when the loop is not running, degraded when
// queue occupancy exceeds 90% of capacity or the failure rate exceeds 10%,
// healthy otherwise.
func (p *Processor) HealthCheck() HealthState {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		return HealthUnhealthy
	}

	occupancy := float64(p.queue.Len()) / float64(p.queue.Capacity())
	if occupancy > 0.9 {
		return HealthDegraded
	}
	if p.stats.failureRate() > 0.1 {
		return HealthDegraded
	}
	return HealthHealthy
}

func (p *Processor) fillDefaults(task *Task) {
	if task.ID == "" {
		task.ID = NewTask(task.Type, task.Work).ID
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = p.cfg.DefaultMaxRetries
	} else if task.MaxRetries < 0 {
		task.MaxRetries = 0
	}
	if task.RetryDelayBase <= 0 {
		task.RetryDelayBase = p.cfg.DefaultRetryDelay
	}
}

func (p *Processor) forget(taskID string) {
	p.mu.Lock()
	delete(p.results, taskID)
	delete(p.tasks, taskID)
	p.mu.Unlock()
}

func (p *Processor) markCancelled(taskID string) {
	p.mu.Lock()
	result, ok := p.results[taskID]
	p.mu.Unlock()
	if !ok {
		return
	}
	result.markCancelled()
	if result.markCounted() {
		p.stats.recordCancellation()
	}
}

// enqueueReleased moves a due scheduled task into the ready queue. A full
// queue fails the task rather than dropping it silently.
func (p *Processor) enqueueReleased(task *Task) {
	p.mu.Lock()
	result, ok := p.results[task.ID]
	p.mu.Unlock()
	if ok && result.currentStatus() == StatusCancelled {
		return
	}
	if ok {
		result.reset()
	}

	if !p.queue.Put(task) {
		p.logger.Error().
			Str("task_id", task.ID).
			Str("task_type", task.Type).
			Msg("Ready queue full, scheduled task dropped to FAILED")
		if ok {
			result.markFailed(ErrQueueFull.Error())
			if result.markCounted() {
				p.stats.recordFailure()
			}
		}
	}
}

// loop pulls ready tasks and hands them to workers bounded by the semaphore.
func (p *Processor) loop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.rootCtx.Done():
			return
		default:
		}

		// Acquire the worker slot first so tasks stay in the queue, and
		// cancellable there, while all workers are busy.
		if err := p.sem.Acquire(p.rootCtx, 1); err != nil {
			// Shutting down.
			return
		}

		task := p.queue.Get(dispatchPoll)
		if task == nil {
			p.sem.Release(1)
			p.failExpired()
			continue
		}

		p.wg.Add(1)
		go p.runTask(task)
	}
}

func (p *Processor) runTask(task *Task) {
	defer p.wg.Done()
	defer p.sem.Release(1)

	taskCtx, cancel := context.WithCancel(p.rootCtx)
	defer cancel()

	p.mu.Lock()
	result := p.results[task.ID]
	if result == nil {
		result = newResult(task)
		p.results[task.ID] = result
	}
	if result.currentStatus() == StatusCancelled {
		p.mu.Unlock()
		return
	}
	p.cancels[task.ID] = cancel
	p.mu.Unlock()

	started := time.Now()
	p.executor.Execute(taskCtx, task, result)
	duration := time.Since(started)

	p.mu.Lock()
	delete(p.cancels, task.ID)
	p.mu.Unlock()

	if result.markCounted() {
		switch result.currentStatus() {
		case StatusCompleted:
			p.stats.recordCompletion(duration)
		case StatusFailed:
			p.stats.recordFailure()
		case StatusCancelled:
			p.stats.recordCancellation()
		}
	}
	if result.currentStatus() == StatusCompleted {
		// Dependents become dispatchable only on successful completion.
		p.queue.MarkCompleted(task.ID)
	}

	if p.scheduler.IsRecurring(task.ID) && result.currentStatus() != StatusCancelled {
		p.scheduler.rescheduleAfterRun(task)
	}
}

// failExpired ejects tasks that waited past the dependency timeout and marks
// them failed with a clear error instead of letting them starve.
func (p *Processor) failExpired() {
	for _, task := range p.queue.Expire(p.cfg.DependencyTimeout) {
		p.mu.Lock()
		result, ok := p.results[task.ID]
		p.mu.Unlock()
		if ok {
			result.markFailed("dependency never completed")
			if result.markCounted() {
				p.stats.recordFailure()
			}
		}
		p.logger.Error().
			Str("task_id", task.ID).
			Str("task_type", task.Type).
			Strs("dependencies", task.Dependencies).
			Msg("Task failed waiting on dependencies")
	}
}
