package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultConcurrency = 10
	shutdownTimeout    = 10 * time.Second
)

// WebhookDeliverer performs a single outbound webhook POST.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, payload WebhookDeliveryPayload) error
}

// Worker consumes queued webhook deliveries.
type Worker struct {
	server    *asynq.Server
	deliverer WebhookDeliverer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deliverer WebhookDeliverer, log *logger.Logger) (*Worker, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	w := &Worker{deliverer: deliverer, log: log}
	w.server = asynq.NewServer(asynqOpt(opt), asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queueName(cfg): 1},
		ShutdownTimeout: shutdownTimeout,
		ErrorHandler:    asynq.ErrorHandlerFunc(w.reportFailure),
	})
	return w, nil
}

func (w *Worker) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWebhookDelivery, w.handleWebhookDelivery)
	return mux
}

// Run processes tasks until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux()); err != nil {
		return fmt.Errorf("scheduler: start worker: %w", err)
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// handleWebhookDelivery returns delivery errors so asynq retries with
// backoff. A payload that cannot be delivered at all is skipped for good.
func (w *Worker) handleWebhookDelivery(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWebhookDeliveryPayload(task)
	if err != nil {
		return fmt.Errorf("decode webhook payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.URL == "" {
		return fmt.Errorf("webhook delivery %s has no url: %w", payload.DeliveryID, asynq.SkipRetry)
	}
	return w.deliverer.Deliver(ctx, payload)
}

func (w *Worker) reportFailure(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	attrs := []any{"task", task.Type(), "error", err, "retry", retried}
	if payload, perr := ParseWebhookDeliveryPayload(task); perr == nil {
		attrs = append(attrs, "event", payload.Event, "deliveryId", payload.DeliveryID)
	}
	if errors.Is(err, asynq.SkipRetry) {
		w.log.Error("webhook delivery dropped", attrs...)
		return
	}
	w.log.Warn("webhook delivery failed", attrs...)
}
