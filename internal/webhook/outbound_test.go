package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	mu       sync.Mutex
	payloads []scheduler.WebhookDeliveryPayload
}

func (r *recordingEnqueuer) EnqueueWebhookDelivery(_ context.Context, payload scheduler.WebhookDeliveryPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func TestPublisherEnqueuesOneDeliveryPerURL(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := NewPublisher([]string{"https://a.example.com", "https://b.example.com"}, nil, logger.NewWithWriter("test", io.Discard))
	p.SetEnqueuer(enqueuer)

	contactID := uuid.New()
	err := p.Handle(context.Background(), events.DealWon{
		BaseEvent:  events.BaseEvent{Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
		ContactID:  contactID,
		Name:       "Jane",
		ValueCents: 5000,
	})
	require.NoError(t, err)

	require.Len(t, enqueuer.payloads, 2)
	assert.Equal(t, "https://a.example.com", enqueuer.payloads[0].URL)
	assert.Equal(t, EventDealWon, enqueuer.payloads[1].Event)
	assert.NotEqual(t, enqueuer.payloads[0].DeliveryID, enqueuer.payloads[1].DeliveryID)

	var env struct {
		ID    string `json:"id"`
		Event string `json:"event"`
		Data  struct {
			ContactID  uuid.UUID `json:"contactId"`
			ValueCents int64     `json:"valueCents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(enqueuer.payloads[0].Body, &env))
	assert.Equal(t, enqueuer.payloads[0].DeliveryID, env.ID)
	assert.Equal(t, contactID, env.Data.ContactID)
	assert.Equal(t, int64(5000), env.Data.ValueCents)
}

func TestPublisherIgnoresUnmappedEvents(t *testing.T) {
	enqueuer := &recordingEnqueuer{}
	p := NewPublisher([]string{"https://a.example.com"}, nil, logger.NewWithWriter("test", io.Discard))
	p.SetEnqueuer(enqueuer)

	require.NoError(t, p.Handle(context.Background(), events.MessageSent{ContactID: uuid.New()}))
	assert.Empty(t, enqueuer.payloads)
}

func TestPublisherDeliversInProcessWithoutQueue(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewPublisher([]string{srv.URL}, NewHTTPDeliverer(time.Second), logger.NewWithWriter("test", io.Discard))
	require.NoError(t, p.Handle(context.Background(), events.LeadCreated{ContactID: uuid.New(), Name: "Jane"}))

	require.Len(t, headers, 1)
	assert.Equal(t, EventLeadCreated, headers[0].Get("X-Leadflow-Event"))
	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
}

func TestHTTPDelivererFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPDeliverer(time.Second).Deliver(context.Background(), scheduler.WebhookDeliveryPayload{
		DeliveryID: "d-1", URL: srv.URL, Event: EventDealLost, Body: []byte(`{}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPDelivererRespectsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := NewHTTPDeliverer(50*time.Millisecond).Deliver(context.Background(), scheduler.WebhookDeliveryPayload{
		DeliveryID: "d-2", URL: srv.URL, Event: EventLeadCreated, Body: []byte(`{}`),
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
