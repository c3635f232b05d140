package queue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Job names
const (
	JobCancelOrder = "cancelOrder"
)

// DefaultCancelDelay how long a buyer gets to pay before the order is
// auto-cancelled
const DefaultCancelDelay = 86400 * time.Second

// Common errors
var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrNoJob       = errors.New("no job due")
)

// Job a delayed unit of work. ID keeps otherwise identical jobs distinct
// in the backing store; Attempts counts processing failures.
type Job struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// CancelOrderPayload payload of the auto-cancel job scheduled at
// order-creation time
type CancelOrderPayload struct {
	OrderID uint64 `json:"orderId"`
	UserID  uint64 `json:"userId"`
	Reason  string `json:"reason,omitempty"`
}

// NewJob creates a job with a fresh id
func NewJob(name string, payload interface{}) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:      newJobID(),
		Name:    name,
		Payload: data,
	}, nil
}

func newJobID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}

// DelayQueue durable-enough delayed job queue. Jobs become visible to
// Dequeue once their delay elapses; exhausted jobs move to a dead-letter
// store for operator inspection instead of being dropped.
type DelayQueue interface {
	// Enqueue schedules a job to become due after delay
	Enqueue(ctx context.Context, job *Job, delay time.Duration) error

	// Dequeue claims one due job, or returns ErrNoJob
	Dequeue(ctx context.Context) (*Job, error)

	// DeadLetter parks a job that exhausted its retry budget
	DeadLetter(ctx context.Context, job *Job, reason string) error

	// Size reports the number of scheduled jobs
	Size(ctx context.Context) (int64, error)

	// Close closes the queue
	Close() error

	// Health checks the health of the queue
	Health() error
}
