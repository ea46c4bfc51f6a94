// Package inapp provides the in-app notification feed written by automation
// and read by the UI.
package inapp

import (
	"context"
	"time"

	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Type is the severity of a notification.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
)

// Notification is one entry of the append-only feed. Read only flips via
// explicit user action.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      Type       `json:"type"`
	CreatedAt time.Time  `json:"timestamp"`
	Read      bool       `json:"read"`
	LinkTo    *uuid.UUID `json:"linkTo,omitempty"`
}

// Store is the persistence used by Service.
type Store interface {
	Create(ctx context.Context, n Notification) error
	List(ctx context.Context, limit, offset int, unreadOnly bool) ([]Notification, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) error
}

type Service struct {
	repo Store
	sse  *sse.Service
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// SetSSE injects the SSE service used to push new entries to open browsers.
func (s *Service) SetSSE(sseSvc *sse.Service) {
	s.sse = sseSvc
}

// Notify persists n and broadcasts it. Failures are logged, never returned,
// so a broken feed cannot stop an automation pass.
func (s *Service) Notify(ctx context.Context, n Notification) {
	if s == nil || s.repo == nil {
		return
	}

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	n.Read = false

	if err := s.repo.Create(ctx, n); err != nil {
		if s.log != nil {
			s.log.Error("failed to persist notification", "error", err, "title", n.Title)
		}
		return
	}

	if s.sse != nil {
		s.sse.Broadcast(sse.Event{
			Type:    sse.EventNotification,
			Message: n.Title,
			Data:    n,
		})
	}
}

func (s *Service) List(ctx context.Context, page, pageSize int, unreadOnly bool) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, pageSize, offset, unreadOnly)
}

func (s *Service) CountUnread(ctx context.Context) (int, error) {
	return s.repo.CountUnread(ctx)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.repo.MarkAllRead(ctx)
}
