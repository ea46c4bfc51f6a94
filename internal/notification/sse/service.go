// Package sse streams feed notifications and contact updates to open
// dashboards over Server-Sent Events.
package sse

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventType string

const (
	EventNotification  EventType = "notification"
	EventContactUpdate EventType = "contact_updated"
	EventTaskCreated   EventType = "task_created"
)

// Event is one message on the stream. ContactID is zero for feed-only events.
type Event struct {
	Type      EventType `json:"type"`
	ContactID uuid.UUID `json:"contactId,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
}

const (
	clientBuffer      = 32
	keepAliveInterval = 25 * time.Second
)

type subscriber struct {
	ch     chan Event
	closed bool
}

// Service fans events out to every subscriber. Delivery is best effort: a
// subscriber whose buffer is full misses the event.
type Service struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	shutdown bool
	dropped  atomic.Int64
	log      *logger.Logger
}

func New() *Service {
	return &Service{subs: make(map[*subscriber]struct{})}
}

func (s *Service) SetLogger(log *logger.Logger) {
	s.log = log
}

// Subscribe registers a listener. The cancel func is idempotent and closes
// the channel. After Close, Subscribe returns an already closed channel.
func (s *Service) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, clientBuffer)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		close(sub.ch)
		return sub.ch, func() {}
	}
	s.subs[sub] = struct{}{}

	return sub.ch, func() { s.drop(sub) }
}

func (s *Service) drop(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(s.subs, sub)
	close(sub.ch)
}

// Broadcast never blocks on a slow subscriber.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs {
		select {
		case sub.ch <- event:
		default:
			if s.dropped.Add(1)%100 == 1 && s.log != nil {
				s.log.Warn("sse subscriber lagging, events dropped", "type", event.Type, "droppedTotal", s.dropped.Load())
			}
		}
	}
}

// Clients returns the number of live subscribers.
func (s *Service) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped returns how many deliveries were skipped for full buffers.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// Handler streams events to the caller until it disconnects or the service
// closes. A comment line is written periodically so proxies keep the
// connection open.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")

		stream, cancel := s.Subscribe()
		defer cancel()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		c.SSEvent("connected", gin.H{"status": "ok"})
		c.Writer.Flush()

		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-keepAlive.C:
				if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
					return
				}
				c.Writer.Flush()
			case event, ok := <-stream:
				if !ok {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					continue
				}
				c.SSEvent(string(event.Type), string(payload))
				c.Writer.Flush()
			}
		}
	}
}

// Close ends every stream and rejects new subscribers.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shutdown = true
	for sub := range s.subs {
		sub.closed = true
		close(sub.ch)
	}
	clear(s.subs)
}
