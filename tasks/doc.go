// Package tasks implements the background work engine: a capacity-bounded
// priority queue with dependency gating, an executor with retries and
// per-attempt timeouts, a scheduler for deferred and recurring work, and a
// processor that ties them together behind explicit Start/Stop lifecycle.
//
// Tasks are ordinary functions taking a context; the processor runs them on
// goroutines bounded by a semaphore, so blocking work never stalls the
// dispatch loop. Callers always get a reconciled status for every submitted
// task; degraded operation is reported in results, not raised as errors.
package tasks
