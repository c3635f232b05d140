package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimScript pops at most one due member so concurrent workers never
// claim the same job twice
const claimScript = `
	local due = redis.call('ZRANGEBYSCORE', KEYS[1], 0, ARGV[1], 'LIMIT', 0, 1)
	if #due == 0 then
		return false
	end
	redis.call('ZREM', KEYS[1], due[1])
	return due[1]
`

// RedisDelayQueue DelayQueue over a Redis sorted set scored by ready-at
// time in milliseconds. Dead-lettered jobs go to a companion list.
type RedisDelayQueue struct {
	client *redis.Client
	key    string
}

// NewRedisDelayQueue creates a delay queue named by key
func NewRedisDelayQueue(client *redis.Client, key string) *RedisDelayQueue {
	if key == "" {
		key = "queue:orders:delayed"
	}
	return &RedisDelayQueue{
		client: client,
		key:    key,
	}
}

// Enqueue schedules the job to become due after delay
func (q *RedisDelayQueue) Enqueue(ctx context.Context, job *Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.key, redis.Z{Score: readyAt, Member: string(data)}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue claims one due job, or returns ErrNoJob
func (q *RedisDelayQueue) Dequeue(ctx context.Context) (*Job, error) {
	now := time.Now().UnixMilli()

	result, err := q.client.Eval(ctx, claimScript, []string{q.key}, now).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoJob
		}
		return nil, err
	}

	raw, ok := result.(string)
	if !ok {
		return nil, ErrNoJob
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

// DeadLetter parks the job on the dead-letter list
func (q *RedisDelayQueue) DeadLetter(ctx context.Context, job *Job, reason string) error {
	entry := struct {
		Job      *Job      `json:"job"`
		Reason   string    `json:"reason"`
		FailedAt time.Time `json:"failed_at"`
	}{Job: job, Reason: reason, FailedAt: time.Now()}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key+":dead", string(data)).Err()
}

// Size reports the number of scheduled jobs
func (q *RedisDelayQueue) Size(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}

// DeadLetterSize reports the number of dead-lettered jobs
func (q *RedisDelayQueue) DeadLetterSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key+":dead").Result()
}

// Close closes the queue; the shared Redis client is owned by the caller
func (q *RedisDelayQueue) Close() error {
	return nil
}

// Health checks the health of the queue
func (q *RedisDelayQueue) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return q.client.Ping(ctx).Err()
}
