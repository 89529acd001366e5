package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Raijin/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	queuePublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_queue_publish_total",
			Help: "Total number of send queue publish attempts by outcome",
		},
		[]string{"outcome"},
	)

	queuePublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "send_queue_publish_retries_total",
			Help: "Total number of retried send queue publishes",
		},
	)
)

// SendJob is the payload pushed onto the send queue for downstream workers.
// One job per dispatch item.
type SendJob struct {
	Type             string          `json:"type"`
	DispatchItemID   uint            `json:"dispatch_item_id"`
	CampaignID       uint            `json:"campaign_id"`
	TenantID         uint            `json:"tenant_id"`
	ContactID        uint            `json:"contact_id"`
	Phone            string          `json:"phone"`
	ContactName      string          `json:"contact_name,omitempty"`
	TemplateName     string          `json:"template_name"`
	TemplateLanguage string          `json:"template_language"`
	VariantLetter    *string         `json:"variant_letter,omitempty"`
	EnqueuedAt       time.Time       `json:"enqueued_at"`
	Extra            json.RawMessage `json:"extra,omitempty"`
}

// QueueProducer publishes send jobs to the queue consumed by delivery workers
type QueueProducer interface {
	Publish(ctx context.Context, job *SendJob) error
	Ping(ctx context.Context) error
}

// RetryPolicy controls how Publish retries transient broker failures.
// Backoff doubles per attempt starting from BaseDelay, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the broker SLA assumed by the scheduler sweep
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// RedisQueueProducer implements QueueProducer on a Redis list
type RedisQueueProducer struct {
	client         *redis.Client
	queueKey       string
	publishTimeout time.Duration
	retry          RetryPolicy
}

func NewRedisQueueProducer(client *redis.Client, publishTimeout time.Duration, retry RetryPolicy) QueueProducer {
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &RedisQueueProducer{
		client:         client,
		queueKey:       utils.SendQueueKey,
		publishTimeout: publishTimeout,
		retry:          retry,
	}
}

// Publish pushes the job onto the send queue. Transient failures are retried
// per the policy; the returned error is the last attempt's error and the
// caller decides whether the dispatch item is marked failed.
func (q *RedisQueueProducer) Publish(ctx context.Context, job *SendJob) error {
	if job.Type == "" {
		job.Type = utils.SendJobType
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = utils.UTCNow()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal send job for item %d: %w", job.DispatchItemID, err)
	}

	var lastErr error
	for attempt := 0; attempt < q.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			queuePublishRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.retry.delay(attempt - 1)):
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, q.publishTimeout)
		err = q.client.LPush(pubCtx, q.queueKey, payload).Err()
		cancel()
		if err == nil {
			queuePublishTotal.With(prometheus.Labels{"outcome": "success"}).Inc()
			return nil
		}
		lastErr = err
	}

	queuePublishTotal.With(prometheus.Labels{"outcome": "failure"}).Inc()
	return fmt.Errorf("failed to publish send job for item %d after %d attempts: %w", job.DispatchItemID, q.retry.MaxAttempts, lastErr)
}

func (q *RedisQueueProducer) Ping(ctx context.Context) error {
	pubCtx, cancel := context.WithTimeout(ctx, q.publishTimeout)
	defer cancel()
	return q.client.Ping(pubCtx).Err()
}
