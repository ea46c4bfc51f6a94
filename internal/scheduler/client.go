package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ErrRedisNotConfigured is returned by the constructors when REDIS_URL is empty.
var ErrRedisNotConfigured = errors.New("scheduler: REDIS_URL not configured")

const (
	webhookMaxRetry = 8
	webhookTimeout  = 30 * time.Second
	defaultQueue    = "default"
)

// WebhookEnqueuer queues outbound webhook deliveries.
type WebhookEnqueuer interface {
	EnqueueWebhookDelivery(ctx context.Context, payload WebhookDeliveryPayload) error
}

// Client enqueues tasks for the worker. A nil *Client drops them.
type Client struct {
	asynq *asynq.Client
	queue string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{asynq: asynq.NewClient(asynqOpt(opt)), queue: queueName(cfg)}, nil
}

// NewRedisClient opens a plain go-redis client on the same Redis, used for
// the round-robin cursor and the scheduled check lease.
func NewRedisClient(cfg config.SchedulerConfig) (*redis.Client, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.asynq.Close()
}

// EnqueueWebhookDelivery queues one POST. The delivery ID doubles as the
// task ID, so asynq rejects a second enqueue of the same delivery.
func (c *Client) EnqueueWebhookDelivery(ctx context.Context, payload WebhookDeliveryPayload) error {
	if c == nil {
		return nil
	}

	task, err := NewWebhookDeliveryTask(payload)
	if err != nil {
		return err
	}

	_, err = c.asynq.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(payload.DeliveryID),
		asynq.MaxRetry(webhookMaxRetry),
		asynq.Timeout(webhookTimeout),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scheduler: enqueue %s: %w", payload.DeliveryID, err)
	}
	return nil
}

func redisOptions(cfg config.SchedulerConfig) (*redis.Options, error) {
	url := cfg.GetRedisURL()
	if url == "" {
		return nil, ErrRedisNotConfigured
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse REDIS_URL: %w", err)
	}

	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		} else {
			opt.TLSConfig = opt.TLSConfig.Clone()
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return opt, nil
}

func asynqOpt(opt *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}
