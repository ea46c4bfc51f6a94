// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Contact Domain Events
// =============================================================================

// LeadCreated is published once a new contact passed duplicate detection and
// its ON_LEAD_CREATE pass committed.
type LeadCreated struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Source    string     `json:"source"`
	OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
}

func (e LeadCreated) EventName() string { return "contacts.lead.created" }

// LeadAssigned is published when automation sets or changes a contact owner.
type LeadAssigned struct {
	BaseEvent
	ContactID       uuid.UUID  `json:"contactId"`
	ContactName     string     `json:"contactName"`
	PreviousOwnerID *uuid.UUID `json:"previousOwnerId,omitempty"`
	NewOwnerID      uuid.UUID  `json:"newOwnerId"`
	Method          string     `json:"method"`
}

func (e LeadAssigned) EventName() string { return "contacts.lead.assigned" }

// ContactStatusChanged is published after a pipeline move committed.
type ContactStatusChanged struct {
	BaseEvent
	ContactID  uuid.UUID  `json:"contactId"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	LostReason *string    `json:"lostReason,omitempty"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
	Automatic  bool       `json:"automatic"`
}

func (e ContactStatusChanged) EventName() string { return "contacts.status.changed" }

// DealWon is published when a contact reaches Won.
type DealWon struct {
	BaseEvent
	ContactID  uuid.UUID `json:"contactId"`
	Name       string    `json:"name"`
	ValueCents int64     `json:"valueCents"`
}

func (e DealWon) EventName() string { return "contacts.deal.won" }

// DealLost is published when a contact moves to Lost.
type DealLost struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
}

func (e DealLost) EventName() string { return "contacts.deal.lost" }

// MessageSent is published when an agent message was added to a contact's history.
type MessageSent struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Channel   string    `json:"channel"`
}

func (e MessageSent) EventName() string { return "contacts.message.sent" }

// WelcomeMessageQueued asks the messaging gateway to deliver the automated
// first-contact message.
type WelcomeMessageQueued struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Phone     string    `json:"phone"`
	Body      string    `json:"body"`
}

func (e WelcomeMessageQueued) EventName() string { return "contacts.welcome.queued" }

// =============================================================================
// Automation Events
// =============================================================================

// SLABreached is published when a new lead waited longer than the
// first-contact SLA.
type SLABreached struct {
	BaseEvent
	ContactID uuid.UUID     `json:"contactId"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone"`
	OwnerID   *uuid.UUID    `json:"ownerId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	Waiting   time.Duration `json:"waiting"`
}

func (e SLABreached) EventName() string { return "automation.sla.breached" }
