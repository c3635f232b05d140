package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

type scheduledJob struct {
	job     *Job
	readyAt time.Time
}

type jobHeap []*scheduledJob

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].readyAt.Before(h[j].readyAt) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x interface{}) { *h = append(*h, x.(*scheduledJob)) }
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// DeadEntry a job parked after exhausting its retry budget
type DeadEntry struct {
	Job    *Job
	Reason string
}

// MemoryDelayQueue in-memory DelayQueue for tests and local development
type MemoryDelayQueue struct {
	mu     sync.Mutex
	jobs   jobHeap
	dead   []DeadEntry
	closed bool
}

// NewMemoryDelayQueue creates an in-memory delay queue
func NewMemoryDelayQueue() *MemoryDelayQueue {
	q := &MemoryDelayQueue{}
	heap.Init(&q.jobs)
	return q
}

// Enqueue schedules the job to become due after delay
func (q *MemoryDelayQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	heap.Push(&q.jobs, &scheduledJob{job: job, readyAt: time.Now().Add(delay)})
	return nil
}

// Dequeue claims one due job, or returns ErrNoJob
func (q *MemoryDelayQueue) Dequeue(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	if len(q.jobs) == 0 || q.jobs[0].readyAt.After(time.Now()) {
		return nil, ErrNoJob
	}

	item := heap.Pop(&q.jobs).(*scheduledJob)
	return item.job, nil
}

// DeadLetter parks the job on the dead-letter slice
func (q *MemoryDelayQueue) DeadLetter(ctx context.Context, job *Job, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.dead = append(q.dead, DeadEntry{Job: job, Reason: reason})
	return nil
}

// DeadLetters returns a copy of the dead-lettered jobs
func (q *MemoryDelayQueue) DeadLetters() []DeadEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]DeadEntry, len(q.dead))
	copy(out, q.dead)
	return out
}

// Size reports the number of scheduled jobs
func (q *MemoryDelayQueue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

// Close closes the queue
func (q *MemoryDelayQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Health checks the health of the queue
func (q *MemoryDelayQueue) Health() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return nil
}
