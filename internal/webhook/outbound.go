package webhook

import (
	"context"
	"encoding/json"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/scheduler"
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/oklog/ulid/v2"
)

// Outbound event names as seen by webhook receivers.
const (
	EventLeadCreated   = "lead.created"
	EventStatusChanged = "contact.status_changed"
	EventDealWon       = "deal.won"
	EventDealLost      = "deal.lost"
)

// Envelope is the JSON body POSTed to every outbound webhook URL.
type Envelope struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Deliverer performs one POST. Used directly when no queue is configured.
type Deliverer interface {
	Deliver(ctx context.Context, payload scheduler.WebhookDeliveryPayload) error
}

// Publisher fans domain events out to the configured webhook URLs. With an
// enqueuer deliveries go through the asynq queue and get retried; without
// one they are posted once, in process.
type Publisher struct {
	urls      []string
	enqueuer  scheduler.WebhookEnqueuer
	deliverer Deliverer
	log       *logger.Logger
}

func NewPublisher(urls []string, deliverer Deliverer, log *logger.Logger) *Publisher {
	return &Publisher{urls: urls, deliverer: deliverer, log: log}
}

// SetEnqueuer routes deliveries through the background queue.
func (p *Publisher) SetEnqueuer(enqueuer scheduler.WebhookEnqueuer) { p.enqueuer = enqueuer }

// RegisterHandlers subscribes the publisher when at least one URL is configured.
func (p *Publisher) RegisterHandlers(bus platformevents.Bus) {
	if len(p.urls) == 0 {
		return
	}
	bus.Subscribe(events.LeadCreated{}.EventName(), p)
	bus.Subscribe(events.ContactStatusChanged{}.EventName(), p)
	bus.Subscribe(events.DealWon{}.EventName(), p)
	bus.Subscribe(events.DealLost{}.EventName(), p)

	p.log.Info("outbound webhooks registered", "targets", len(p.urls))
}

// Handle maps the event to its outbound name and hands one delivery per URL
// to the queue. Delivery failures are logged and never returned.
func (p *Publisher) Handle(ctx context.Context, event platformevents.Event) error {
	name, ok := outboundName(event)
	if !ok {
		return nil
	}

	for _, url := range p.urls {
		id := ulid.Make().String()
		body, err := json.Marshal(Envelope{
			ID:         id,
			Event:      name,
			OccurredAt: event.OccurredAt().UTC(),
			Data:       event,
		})
		if err != nil {
			p.log.Error("webhook: failed to encode event", "event", name, "error", err)
			return nil
		}

		payload := scheduler.WebhookDeliveryPayload{DeliveryID: id, URL: url, Event: name, Body: body}
		if p.enqueuer != nil {
			if err := p.enqueuer.EnqueueWebhookDelivery(ctx, payload); err != nil {
				p.log.Error("webhook: failed to enqueue delivery", "event", name, "url", url, "error", err)
			}
			continue
		}
		if p.deliverer != nil {
			if err := p.deliverer.Deliver(ctx, payload); err != nil {
				p.log.Warn("webhook delivery failed", "event", name, "url", url, "deliveryId", id, "error", err)
			}
		}
	}
	return nil
}

func outboundName(event platformevents.Event) (string, bool) {
	switch event.(type) {
	case events.LeadCreated:
		return EventLeadCreated, true
	case events.ContactStatusChanged:
		return EventStatusChanged, true
	case events.DealWon:
		return EventDealWon, true
	case events.DealLost:
		return EventDealLost, true
	default:
		return "", false
	}
}
