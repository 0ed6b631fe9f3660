package tasks

import (
	"sync"
	"time"
)

// recentWindow bounds the duration history used for the rolling average.
const recentWindow = 100

// Statistics is a point-in-time snapshot of processor activity.
type Statistics struct {
	Submitted            uint64
	Completed            uint64
	Failed               uint64
	Cancelled            uint64
	AverageExecutionTime time.Duration
	QueueSize            int
	ActiveTasks          int
	ScheduledTasks       int
}

// stats accumulates counters behind a mutex. Only its methods touch the
// fields; the raw structure is never handed out.
type stats struct {
	mu        sync.Mutex
	submitted uint64
	completed uint64
	failed    uint64
	cancelled uint64
	durations []time.Duration
	next      int
}

func newStats() *stats {
	return &stats{durations: make([]time.Duration, 0, recentWindow)}
}

func (s *stats) recordSubmission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted++
}

func (s *stats) recordCompletion(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	s.push(duration)
}

func (s *stats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func (s *stats) recordCancellation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
}

// push keeps a bounded ring of recent execution durations.
func (s *stats) push(duration time.Duration) {
	if len(s.durations) < recentWindow {
		s.durations = append(s.durations, duration)
		return
	}
	s.durations[s.next] = duration
	s.next = (s.next + 1) % recentWindow
}

func (s *stats) averageDuration() time.Duration {
	if len(s.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.durations {
		total += d
	}
	return total / time.Duration(len(s.durations))
}

// failureRate returns failed / (completed + failed), 0 when nothing finished.
func (s *stats) failureRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	finished := s.completed + s.failed
	if finished == 0 {
		return 0
	}
	return float64(s.failed) / float64(finished)
}

func (s *stats) snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		Submitted:            s.submitted,
		Completed:            s.completed,
		Failed:               s.failed,
		Cancelled:            s.cancelled,
		AverageExecutionTime: s.averageDuration(),
	}
}
