package automation

import (
	"time"

	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	tasks "leadflow_backend/internal/tasks/domain"

	"github.com/google/uuid"
)

// Run is the mutable context threaded through the handlers of one pass.
// Handlers change Contact in place and queue effects; the dispatcher
// applies them once every handler has returned.
type Run struct {
	ID      string
	Trigger Trigger
	Contact *contacts.Contact
	ActorID *uuid.UUID
	Now     time.Time

	// Status moves
	From       contacts.Status
	To         contacts.Status
	LostReason string

	// Set for ON_MESSAGE_SENT
	Message *contacts.Message

	Settings Settings

	isNew         bool
	dirty         bool
	notifications []inapp.Notification
	tasks         []*tasks.Task
	events        []events.Event
}

// MarkDirty flags the contact for saving.
func (r *Run) MarkDirty() { r.dirty = true }

// Notify queues a notification linked to the run's contact, if any.
func (r *Run) Notify(typ inapp.Type, title, message string) {
	n := inapp.Notification{Type: typ, Title: title, Message: message, CreatedAt: r.Now}
	if r.Contact != nil {
		id := r.Contact.ID
		n.LinkTo = &id
	}
	r.notifications = append(r.notifications, n)
}

// NotifyAbout queues a notification linked to another contact. Scheduled
// passes use it since they have no single contact.
func (r *Run) NotifyAbout(contactID uuid.UUID, typ inapp.Type, title, message string) {
	id := contactID
	r.notifications = append(r.notifications, inapp.Notification{
		Type: typ, Title: title, Message: message, CreatedAt: r.Now, LinkTo: &id,
	})
}

// CreateTask queues a task for creation.
func (r *Run) CreateTask(t *tasks.Task) {
	r.tasks = append(r.tasks, t)
}

// Publish queues a domain event, published after the contact is stored.
func (r *Run) Publish(e events.Event) {
	r.events = append(r.events, e)
}

// Notifications returns the queued notifications.
func (r *Run) Notifications() []inapp.Notification { return r.notifications }

// Tasks returns the queued tasks.
func (r *Run) Tasks() []*tasks.Task { return r.tasks }

type runMark struct {
	contact       *contacts.Contact
	dirty         bool
	notifications int
	tasks         int
	events        int
}

func (r *Run) mark() runMark {
	return runMark{
		contact:       r.Contact.Clone(),
		dirty:         r.dirty,
		notifications: len(r.notifications),
		tasks:         len(r.tasks),
		events:        len(r.events),
	}
}

// restore drops everything a failed handler did.
func (r *Run) restore(m runMark) {
	if r.Contact != nil && m.contact != nil {
		*r.Contact = *m.contact
	}
	r.dirty = m.dirty
	r.notifications = r.notifications[:m.notifications]
	r.tasks = r.tasks[:m.tasks]
	r.events = r.events[:m.events]
}

// Result summarizes one dispatch pass.
type Result struct {
	RunID         string   `json:"runId"`
	Trigger       Trigger  `json:"trigger"`
	RulesRun      []string `json:"rulesRun"`
	RulesFailed   []string `json:"rulesFailed"`
	Notifications int      `json:"notifications"`
	TasksCreated  int      `json:"tasksCreated"`
}

// RunRecord is the persisted audit row of a pass.
type RunRecord struct {
	ID          string     `json:"id"`
	Trigger     Trigger    `json:"trigger"`
	ContactID   *uuid.UUID `json:"contactId,omitempty"`
	RulesRun    []string   `json:"rulesRun"`
	RulesFailed []string   `json:"rulesFailed"`
	StartedAt   time.Time  `json:"startedAt"`
	DurationMs  int64      `json:"durationMs"`
}
