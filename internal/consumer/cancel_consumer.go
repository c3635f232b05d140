package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"marketplace/internal/monitor"
	"marketplace/internal/service/order"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
)

// Config consumer tuning
type Config struct {
	QueueName    string
	PollInterval time.Duration
	MaxAttempts  int
	JobTimeout   time.Duration
}

// CancelConsumer drains the delay queue and runs due auto-cancel jobs.
// Failed jobs are re-enqueued with a growing backoff until the attempt
// budget runs out, then parked in the dead-letter store.
type CancelConsumer struct {
	orderService order.OrderService
	jobs         queue.DelayQueue
	metrics      *monitor.MetricsCollector
	cfg          Config
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewCancelConsumer creates a cancel consumer
func NewCancelConsumer(orderService order.OrderService, jobs queue.DelayQueue, metrics *monitor.MetricsCollector, cfg Config) *CancelConsumer {
	if cfg.QueueName == "" {
		cfg.QueueName = "orders:delayed"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	return &CancelConsumer{
		orderService: orderService,
		jobs:         jobs,
		metrics:      metrics,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start starts the consumer loop
func (c *CancelConsumer) Start(ctx context.Context) {
	log.WithFields(map[string]interface{}{
		"queue":         c.cfg.QueueName,
		"poll_interval": c.cfg.PollInterval.String(),
		"max_attempts":  c.cfg.MaxAttempts,
	}).Info("Starting cancel consumer")

	go func() {
		defer close(c.doneCh)
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stopCh:
				log.Info("Cancel consumer stopped")
				return
			case <-ctx.Done():
				log.Info("Cancel consumer context cancelled")
				return
			case <-ticker.C:
				c.Drain(ctx)
			}
		}
	}()
}

// Stop stops the consumer and waits for the loop to exit
func (c *CancelConsumer) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Drain processes every job that is currently due
func (c *CancelConsumer) Drain(ctx context.Context) {
	for {
		job, err := c.jobs.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrNoJob) {
				log.WithError(err).Error("Failed to dequeue job")
			}
			break
		}
		c.process(ctx, job)
	}

	if depth, err := c.jobs.Size(ctx); err == nil && c.metrics != nil {
		c.metrics.UpdateQueueDepth(c.cfg.QueueName, depth)
	}
}

func (c *CancelConsumer) process(ctx context.Context, job *queue.Job) {
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	err := c.handle(jobCtx, job)
	cancel()

	if err == nil {
		if c.metrics != nil {
			c.metrics.RecordQueueJob(job.Name, "success", time.Since(start))
		}
		return
	}

	job.Attempts++
	log.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"job_name": job.Name,
		"attempts": job.Attempts,
		"error":    err.Error(),
	}).Error("Job failed")

	if c.metrics != nil {
		c.metrics.RecordQueueJob(job.Name, "failure", time.Since(start))
	}

	if job.Attempts >= c.cfg.MaxAttempts {
		if dlErr := c.jobs.DeadLetter(ctx, job, err.Error()); dlErr != nil {
			log.WithError(dlErr).WithField("job_id", job.ID).Error("Failed to dead-letter job")
		}
		return
	}

	// Back off harder on each retry.
	backoff := time.Duration(job.Attempts) * c.cfg.PollInterval
	if reqErr := c.jobs.Enqueue(ctx, job, backoff); reqErr != nil {
		log.WithError(reqErr).WithField("job_id", job.ID).Error("Failed to requeue job")
	}
}

func (c *CancelConsumer) handle(ctx context.Context, job *queue.Job) error {
	switch job.Name {
	case queue.JobCancelOrder:
		var payload queue.CancelOrderPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		_, err := c.orderService.AutoCancel(ctx, payload.OrderID, payload.UserID, payload.Reason)
		if err == nil && c.metrics != nil {
			c.metrics.RecordAutoCancel("processed")
		}
		return err
	default:
		log.WithField("job_name", job.Name).Warn("Unknown job, dropping")
		return nil
	}
}
