package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p := NewProcessor(cfg, zerolog.Nop())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func waitForStatus(t *testing.T, p *Processor, taskID string, want Status) ResultSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if snap := p.Status(taskID); snap != nil && snap.Status == want {
			return *snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	snap := p.Status(taskID)
	t.Fatalf("task %s never reached %s, last = %+v", taskID, want, snap)
	return ResultSnapshot{}
}

func TestProcessorRunsSubmittedTask(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	task := NewTask("unit", func(ctx context.Context) (any, error) {
		return "done", nil
	})
	id, err := p.Submit(task)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	snap := waitForStatus(t, p, id, StatusCompleted)
	if snap.Value != "done" {
		t.Errorf("value = %v, want done", snap.Value)
	}

	stats := p.Statistics()
	if stats.Submitted != 1 || stats.Completed != 1 {
		t.Errorf("stats = %+v, want 1 submitted / 1 completed", stats)
	}
}

func TestProcessorRetriesThenFails(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	task := NewTask("flaky", func(ctx context.Context) (any, error) {
		return nil, errors.New("always broken")
	})
	task.MaxRetries = 1
	task.RetryDelayBase = time.Millisecond

	id, err := p.Submit(task)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	snap := waitForStatus(t, p, id, StatusFailed)
	if snap.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", snap.Attempts)
	}
	if snap.Error != "always broken" {
		t.Errorf("error = %q", snap.Error)
	}
	if p.Statistics().Failed != 1 {
		t.Errorf("failed counter = %d, want 1", p.Statistics().Failed)
	}
}

func TestProcessorDependencyOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 4
	p := startProcessor(t, cfg)

	var mu sync.Mutex
	var order []string
	record := func(name string, delay time.Duration) WorkFunc {
		return func(ctx context.Context) (any, error) {
			time.Sleep(delay)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}
	}

	upstream := NewTask("upstream", record("upstream", 50*time.Millisecond))
	upstreamID, err := p.Submit(upstream)
	if err != nil {
		t.Fatalf("submit upstream failed: %v", err)
	}

	dependent := NewTask("dependent", record("dependent", 0))
	dependent.Priority = PriorityCritical
	dependent.Dependencies = []string{upstreamID}
	dependentID, err := p.Submit(dependent)
	if err != nil {
		t.Fatalf("submit dependent failed: %v", err)
	}

	waitForStatus(t, p, dependentID, StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "upstream" || order[1] != "dependent" {
		t.Errorf("execution order = %v, want upstream before dependent", order)
	}
}

func TestProcessorRejectsBadDependencies(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	unknown := NewTask("x", noopWork)
	unknown.Dependencies = []string{"never-seen"}
	if _, err := p.Submit(unknown); !errors.Is(err, ErrUnknownDependency) {
		t.Errorf("expected ErrUnknownDependency, got %v", err)
	}

	selfDep := NewTask("y", noopWork)
	selfDep.Dependencies = []string{selfDep.ID}
	if _, err := p.Submit(selfDep); !errors.Is(err, ErrSelfDependency) {
		t.Errorf("expected ErrSelfDependency, got %v", err)
	}
}

func TestProcessorFailsStrandedDependent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DependencyTimeout = 100 * time.Millisecond
	p := startProcessor(t, cfg)

	// The upstream task always fails, so it is never marked completed and
	// its dependent can only resolve through the dependency timeout.
	upstream := NewTask("broken", func(ctx context.Context) (any, error) {
		return nil, errors.New("broken")
	})
	upstream.MaxRetries = -1
	upstreamID, err := p.Submit(upstream)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	dependent := NewTask("stranded", noopWork)
	dependent.Dependencies = []string{upstreamID}
	dependentID, err := p.Submit(dependent)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	snap := waitForStatus(t, p, dependentID, StatusFailed)
	if snap.Error != "dependency never completed" {
		t.Errorf("error = %q, want dependency never completed", snap.Error)
	}
}

func TestProcessorCancelQueuedTask(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 1
	p := startProcessor(t, cfg)

	blocker := NewTask("blocker", func(ctx context.Context) (any, error) {
		time.Sleep(200 * time.Millisecond)
		return nil, nil
	})
	if _, err := p.Submit(blocker); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	victim := NewTask("victim", noopWork)
	victimID, err := p.Submit(victim)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if !p.Cancel(victimID) {
		t.Fatalf("cancel of queued task failed")
	}

	snap := waitForStatus(t, p, victimID, StatusCancelled)
	if snap.Status != StatusCancelled {
		t.Errorf("status = %s", snap.Status)
	}
	if p.Cancel("no-such-task") {
		t.Errorf("cancelling unknown id should return false")
	}
}

func TestProcessorCancelRunningBestEffort(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	started := make(chan struct{})
	task := NewTask("slow", func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	task.MaxRetries = -1

	id, err := p.Submit(task)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	<-started
	if !p.Cancel(id) {
		t.Fatalf("cancel of running task failed")
	}
	waitForStatus(t, p, id, StatusCancelled)
}

func TestProcessorScheduledTaskRelease(t *testing.T) {
	if testing.Short() {
		t.Skip("scheduler poll is 1s")
	}
	p := startProcessor(t, DefaultConfig())

	task := NewTask("deferred", func(ctx context.Context) (any, error) {
		return "ran", nil
	})
	task.ScheduleAt = time.Now().Add(150 * time.Millisecond)

	id, err := p.Submit(task)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Before release it is pending, not running.
	if snap := p.Status(id); snap == nil || snap.Status != StatusPending {
		t.Errorf("pre-release status = %+v, want PENDING", snap)
	}
	if p.Statistics().ScheduledTasks != 1 {
		t.Errorf("scheduled count = %d, want 1", p.Statistics().ScheduledTasks)
	}

	waitForStatus(t, p, id, StatusCompleted)
}

func TestProcessorScheduleInPastRejected(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	task := NewTask("late", noopWork)
	task.ScheduleAt = time.Now().Add(-time.Minute)

	if _, err := p.Submit(task); !errors.Is(err, ErrScheduleInPast) {
		t.Errorf("expected ErrScheduleInPast, got %v", err)
	}
	if p.Status(task.ID) != nil {
		t.Errorf("rejected task must not be tracked")
	}
}

func TestProcessorQueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 1
	cfg.MaxWorkers = 1
	p := startProcessor(t, cfg)

	slow := func(ctx context.Context) (any, error) {
		time.Sleep(300 * time.Millisecond)
		return nil, nil
	}
	// First task occupies the worker, second fills the queue.
	if _, err := p.Submit(NewTask("a", slow)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := p.Submit(NewTask("b", slow)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := p.Submit(NewTask("c", slow)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestProcessorLifecycle(t *testing.T) {
	p := NewProcessor(DefaultConfig(), zerolog.Nop())

	if p.HealthCheck() != HealthUnhealthy {
		t.Errorf("stopped processor should be unhealthy")
	}
	if _, err := p.Submit(NewTask("x", noopWork)); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Errorf("double start should fail")
	}
	if p.HealthCheck() != HealthHealthy {
		t.Errorf("running processor should be healthy")
	}

	p.Stop()
	if p.HealthCheck() != HealthUnhealthy {
		t.Errorf("stopped processor should be unhealthy again")
	}
	// Stop is idempotent.
	p.Stop()
}

func TestProcessorHealthDegradedOnFailures(t *testing.T) {
	p := startProcessor(t, DefaultConfig())

	for i := 0; i < 5; i++ {
		task := NewTask("broken", func(ctx context.Context) (any, error) {
			return nil, errors.New("broken")
		})
		task.MaxRetries = -1
		id, err := p.Submit(task)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		waitForStatus(t, p, id, StatusFailed)
	}

	if p.HealthCheck() != HealthDegraded {
		t.Errorf("100%% failure rate should degrade health, got %s", p.HealthCheck())
	}
}

func TestProcessorRecurringTask(t *testing.T) {
	if testing.Short() {
		t.Skip("scheduler poll is 1s")
	}
	p := startProcessor(t, DefaultConfig())

	var mu sync.Mutex
	runs := 0
	task := NewTask("recurring", func(ctx context.Context) (any, error) {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil, nil
	})

	id, err := p.SubmitRecurring(task, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("submit recurring failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := runs
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	n := runs
	mu.Unlock()
	if n < 2 {
		t.Fatalf("recurring task ran %d times, want >= 2", n)
	}

	if !p.Cancel(id) {
		t.Errorf("cancel of recurring chain failed")
	}
}
