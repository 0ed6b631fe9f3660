package tasks

import (
	"container/heap"
	"sync"
	"time"
)

// Queue is the capacity-bounded priority queue of ready tasks. Ordering is
// (priority, creation time, insertion sequence): strict priority across
// bands, FIFO within a band. A task whose dependencies have not all been
// marked completed is never handed out.
type Queue struct {
	mu           sync.Mutex
	items        taskHeap
	capacity     int
	seq          uint64
	completed    map[string]struct{}
	blockedSince map[string]time.Time
	notify       chan struct{}
}

// NewQueue creates a queue holding at most capacity tasks.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	return &Queue{
		capacity:     capacity,
		completed:    make(map[string]struct{}),
		blockedSince: make(map[string]time.Time),
		notify:       make(chan struct{}, 1),
	}
}

// Put enqueues a task. Returns false when the queue is at capacity.
func (q *Queue) Put(task *Task) bool {
	q.mu.Lock()
	if q.items.Len() >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.seq++
	heap.Push(&q.items, &queueItem{task: task, seq: q.seq})
	q.mu.Unlock()

	q.signal()
	return true
}

// Get returns the next dispatchable task, blocking up to timeout. Gated
// tasks are skipped over, so a blocked high-priority task does not starve
// ready work behind it; it stays queued and becomes dispatchable once
// MarkCompleted clears its last dependency. Returns nil when the wait
// expires with nothing dispatchable.
func (q *Queue) Get(timeout time.Duration) *Task {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if task := q.takeDispatchable(); task != nil {
			return task
		}

		select {
		case <-q.notify:
		case <-deadline.C:
			return nil
		}
	}
}

// takeDispatchable pops the highest-priority task whose dependencies are all
// completed, restoring any gated tasks it skipped.
func (q *Queue) takeDispatchable() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var skipped []*queueItem
	var picked *queueItem
	for q.items.Len() > 0 {
		item := heap.Pop(&q.items).(*queueItem)
		if q.depsSatisfied(item.task) {
			picked = item
			break
		}
		if _, seen := q.blockedSince[item.task.ID]; !seen {
			q.blockedSince[item.task.ID] = time.Now()
		}
		skipped = append(skipped, item)
	}
	for _, item := range skipped {
		heap.Push(&q.items, item)
	}

	if picked == nil {
		return nil
	}
	delete(q.blockedSince, picked.task.ID)
	return picked.task
}

// MarkCompleted records that the given task finished successfully, making
// tasks depending on it eligible for dispatch. Call it exactly once per
// completed task.
func (q *Queue) MarkCompleted(taskID string) {
	q.mu.Lock()
	q.completed[taskID] = struct{}{}
	q.mu.Unlock()

	q.signal()
}

// IsCompleted reports whether the id has been marked completed.
func (q *Queue) IsCompleted(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.completed[taskID]
	return ok
}

// Remove takes a not-yet-dispatched task out of the queue.
func (q *Queue) Remove(taskID string) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.task.ID == taskID {
			heap.Remove(&q.items, i)
			delete(q.blockedSince, taskID)
			return item.task
		}
	}
	return nil
}

// Expire removes and returns tasks that have been dependency-blocked for
// longer than maxWait. A missing or never-submitted dependency id would
// otherwise strand its dependents forever; the processor fails ejected tasks
// with a clear error instead.
func (q *Queue) Expire(maxWait time.Duration) []*Task {
	if maxWait <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var expired []*Task
	cutoff := time.Now().Add(-maxWait)
	for id, since := range q.blockedSince {
		if since.After(cutoff) {
			continue
		}
		for i, item := range q.items {
			if item.task.ID == id {
				heap.Remove(&q.items, i)
				expired = append(expired, item.task)
				break
			}
		}
		delete(q.blockedSince, id)
	}
	return expired
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Capacity returns the configured maximum.
func (q *Queue) Capacity() int {
	return q.capacity
}

func (q *Queue) depsSatisfied(task *Task) bool {
	for _, dep := range task.Dependencies {
		if _, ok := q.completed[dep]; !ok {
			return false
		}
	}
	return true
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

type queueItem struct {
	task *Task
	seq  uint64
}

type taskHeap []*queueItem

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	if !h[i].task.CreatedAt.Equal(h[j].task.CreatedAt) {
		return h[i].task.CreatedAt.Before(h[j].task.CreatedAt)
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*queueItem))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
