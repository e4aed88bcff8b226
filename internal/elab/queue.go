package elab

import (
	"sync"
)

// job elaborates the statements of one module.
type job struct {
	req ModuleRequest
}

// jobQueue is a thread-safe, unbounded double-ended job list.
//
// The single-threaded scheduler pops from the back (LIFO, depth first); the
// worker pool dequeues from the front (FIFO). Jobs may enqueue further jobs
// while running, so the queue never blocks a producer.
//
// A buffered signal channel lets idle workers wait for work with select,
// alongside a stop channel.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []*job
	closed bool
	signal chan struct{} // buffered, size 1
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]*job, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends j. Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, j)
	q.notify()
	return true
}

// notify signals availability without blocking; the buffer of 1 coalesces
// signals. Caller must hold mu.
func (q *jobQueue) notify() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryDequeue removes and returns the front job without blocking.
func (q *jobQueue) TryDequeue() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs[0] = nil // release for GC
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
		// Other workers may be waiting on the coalesced signal.
		q.notify()
	}
	return j, true
}

// TryPop removes and returns the back job without blocking.
func (q *jobQueue) TryPop() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.jobs)
	if n == 0 {
		return nil, false
	}
	j := q.jobs[n-1]
	q.jobs[n-1] = nil
	q.jobs = q.jobs[:n-1]
	return j, true
}

// Clear drops every queued job and returns them.
func (q *jobQueue) Clear() []*job {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := q.jobs
	q.jobs = make([]*job, 0, 64)
	return dropped
}

// Wait returns a channel that signals when jobs may be available. It is
// closed when the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued jobs.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close rejects further jobs and wakes all waiters.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
