package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskWebhookDelivery = "webhooks.deliver"

// WebhookDeliveryPayload is one outbound webhook POST.
type WebhookDeliveryPayload struct {
	DeliveryID string          `json:"deliveryId"`
	URL        string          `json:"url"`
	Event      string          `json:"event"`
	Body       json.RawMessage `json:"body"`
}

func NewWebhookDeliveryTask(payload WebhookDeliveryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDelivery, data), nil
}

func ParseWebhookDeliveryPayload(task *asynq.Task) (WebhookDeliveryPayload, error) {
	var payload WebhookDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WebhookDeliveryPayload{}, err
	}
	return payload, nil
}
