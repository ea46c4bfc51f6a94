package automation

import (
	"context"
	"time"

	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	tasks "leadflow_backend/internal/tasks/domain"
	team "leadflow_backend/internal/team/domain"

	"github.com/google/uuid"
)

// ContactStore is the contact repository the engine reads and writes.
// Find returns contacts.ErrNotFound for unknown IDs.
type ContactStore interface {
	Find(ctx context.Context, id uuid.UUID) (*contacts.Contact, error)
	// FindByEmailOrPhone matches on the normalized keys; empty keys never
	// match. It returns nil, nil when nothing matches.
	FindByEmailOrPhone(ctx context.Context, emailKey, phoneKey string) (*contacts.Contact, error)
	Create(ctx context.Context, c *contacts.Contact) error
	Save(ctx context.Context, c *contacts.Contact) error
	CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	// ListUnattended returns New contacts created before the cutoff that no
	// team member has personally messaged.
	ListUnattended(ctx context.Context, createdBefore time.Time, limit int) ([]*contacts.Contact, error)
	// ListStale returns owned open contacts whose status and owner have both
	// been unchanged since the cutoff.
	ListStale(ctx context.Context, idleSince time.Time, limit int) ([]*contacts.Contact, error)
}

// TeamDirectory lists assignment candidates in a stable order.
type TeamDirectory interface {
	ListActiveSalesReps(ctx context.Context) ([]team.Member, error)
	Find(ctx context.Context, id uuid.UUID) (team.Member, error)
}

type TaskStore interface {
	Create(ctx context.Context, t *tasks.Task) error
	CountPendingForContact(ctx context.Context, contactID uuid.UUID) (int, error)
	// HasOpenOrDoneTask reports whether the contact has a task of taskType
	// whose title starts with titlePrefix and that was not cancelled.
	HasOpenOrDoneTask(ctx context.Context, contactID uuid.UUID, taskType, titlePrefix string) (bool, error)
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, n inapp.Notification)
}

// Publisher hands domain events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// RunRecorder stores the audit row of a dispatch pass.
type RunRecorder interface {
	Record(ctx context.Context, rec RunRecord) error
}
