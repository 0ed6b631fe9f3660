package tasks

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const schedulerPollInterval = time.Second

// Scheduler holds tasks whose execution is deferred to a future time,
// one-shot or recurring, and releases them once due. The processor supplies
// the release function, which moves the task into the ready queue.
type Scheduler struct {
	mu        sync.Mutex
	pending   map[string]*scheduledEntry
	intervals map[string]time.Duration
	release   func(*Task)
	stopCh    chan struct{}
	stopOnce  sync.Once
	started   bool
	logger    zerolog.Logger
}

type scheduledEntry struct {
	task  *Task
	runAt time.Time
}

// NewScheduler creates a scheduler that hands due tasks to release.
func NewScheduler(release func(*Task), logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		pending:   make(map[string]*scheduledEntry),
		intervals: make(map[string]time.Duration),
		release:   release,
		stopCh:    make(chan struct{}),
		logger:    logger,
	}
}

// Start launches the polling loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.loop()
}

// Stop halts the polling loop. Pending tasks are discarded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Schedule holds the task until runAt. Times in the past are rejected
// synchronously rather than deferred into a silent no-op.
func (s *Scheduler) Schedule(task *Task, runAt time.Time) error {
	if runAt.Before(time.Now()) {
		return ErrScheduleInPast
	}

	s.mu.Lock()
	s.pending[task.ID] = &scheduledEntry{task: task, runAt: runAt}
	s.mu.Unlock()

	s.logger.Debug().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Time("run_at", runAt).
		Msg("Task scheduled")
	return nil
}

// ScheduleRecurring schedules the first occurrence interval from now and
// repeats the task at that interval after each completed occurrence until
// CancelScheduled is called. Returns the task id identifying the chain.
func (s *Scheduler) ScheduleRecurring(task *Task, interval time.Duration) string {
	s.mu.Lock()
	s.intervals[task.ID] = interval
	s.pending[task.ID] = &scheduledEntry{task: task, runAt: time.Now().Add(interval)}
	s.mu.Unlock()

	s.logger.Debug().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Dur("interval", interval).
		Msg("Recurring task scheduled")
	return task.ID
}

// rescheduleAfterRun is called by the processor when a recurring occurrence
// finished; it books the next occurrence.
func (s *Scheduler) rescheduleAfterRun(task *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	interval, ok := s.intervals[task.ID]
	if !ok {
		return false
	}
	s.pending[task.ID] = &scheduledEntry{task: task, runAt: time.Now().Add(interval)}
	return true
}

// CancelScheduled removes a held task (and, for recurring tasks, the whole
// chain). Returns false when the id is not currently scheduled or recurring.
func (s *Scheduler) CancelScheduled(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, wasPending := s.pending[taskID]
	_, wasRecurring := s.intervals[taskID]
	delete(s.pending, taskID)
	delete(s.intervals, taskID)

	return wasPending || wasRecurring
}

// IsRecurring reports whether the id belongs to an uncancelled recurring chain.
func (s *Scheduler) IsRecurring(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.intervals[taskID]
	return ok
}

// Count returns the number of tasks currently held.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(schedulerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.releaseDue()
		}
	}
}

func (s *Scheduler) releaseDue() {
	now := time.Now()

	s.mu.Lock()
	var due []*Task
	for id, entry := range s.pending {
		if !entry.runAt.After(now) {
			due = append(due, entry.task)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, task := range due {
		s.logger.Debug().
			Str("task_id", task.ID).
			Str("task_type", task.Type).
			Msg("Releasing scheduled task")
		s.release(task)
	}
}
