package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadflow_backend/internal/scheduler"
)

const defaultDeliveryTimeout = 5 * time.Second

// HTTPDeliverer POSTs webhook envelopes.
type HTTPDeliverer struct {
	client *http.Client
}

func NewHTTPDeliverer(timeout time.Duration) *HTTPDeliverer {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &HTTPDeliverer{client: &http.Client{Timeout: timeout}}
}

// Deliver fails on transport errors and on any non-2xx response.
func (d *HTTPDeliverer) Deliver(ctx context.Context, payload scheduler.WebhookDeliveryPayload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, payload.URL, bytes.NewReader(payload.Body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "leadflow-webhooks/1")
	req.Header.Set("X-Leadflow-Event", payload.Event)
	req.Header.Set("X-Leadflow-Delivery", payload.DeliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", payload.Event, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: %s answered %d", payload.URL, resp.StatusCode)
	}
	return nil
}

var (
	_ Deliverer                  = (*HTTPDeliverer)(nil)
	_ scheduler.WebhookDeliverer = (*HTTPDeliverer)(nil)
)
