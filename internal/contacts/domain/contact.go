package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when no contact has the requested ID.
var ErrNotFound = errors.New("contact not found")

// Note authors and message participants written by the engine.
const (
	AuthorSystem = "system"

	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelCall     = "call"

	SenderAgent   = "agent"
	SenderContact = "contact"
	SenderSystem  = "system"
)

// Note is an internal remark on a contact.
type Note struct {
	ID        uuid.UUID `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one entry of a contact's conversation history.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Channel   string    `json:"channel"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Automated bool      `json:"automated,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Contact is a lead tracked through the pipeline. A nil OwnerID means Unassigned.
type Contact struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Company         string     `json:"company"`
	Status          Status     `json:"status"`
	OwnerID         *uuid.UUID `json:"ownerId,omitempty"`
	ValueCents      int64      `json:"valueCents"`
	Notes           []Note     `json:"notes"`
	History         []Message  `json:"history"`
	Tags            []string   `json:"tags"`
	LostReason      *string    `json:"lostReason,omitempty"`
	Source          string     `json:"source"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StatusChangedAt time.Time  `json:"statusChangedAt"`
	AssignedAt      *time.Time `json:"assignedAt,omitempty"`
}

// IsUnassigned reports whether the contact has no owner.
func (c *Contact) IsUnassigned() bool {
	return c.OwnerID == nil || *c.OwnerID == uuid.Nil
}

// AddNote appends a note and returns it.
func (c *Contact) AddNote(body, author string, at time.Time) Note {
	n := Note{ID: uuid.New(), Body: body, Author: author, CreatedAt: at}
	c.Notes = append(c.Notes, n)
	return n
}

// AddMessage appends a history message and returns it.
func (c *Contact) AddMessage(channel, sender, body string, at time.Time) Message {
	m := Message{ID: uuid.New(), Channel: channel, Sender: sender, Body: body, CreatedAt: at}
	c.History = append(c.History, m)
	return m
}

// AddAutomatedMessage appends an agent message sent on the team's behalf.
func (c *Contact) AddAutomatedMessage(channel, body string, at time.Time) Message {
	m := Message{ID: uuid.New(), Channel: channel, Sender: SenderAgent, Body: body, Automated: true, CreatedAt: at}
	c.History = append(c.History, m)
	return m
}

// HasOutboundMessage reports whether anyone on the team has messaged the contact.
func (c *Contact) HasOutboundMessage() bool {
	for _, m := range c.History {
		if m.Sender == SenderAgent {
			return true
		}
	}
	return false
}

// HasPersonalReply reports whether a team member has messaged the contact
// themselves. Automated welcomes do not count.
func (c *Contact) HasPersonalReply() bool {
	for _, m := range c.History {
		if m.Sender == SenderAgent && !m.Automated {
			return true
		}
	}
	return false
}

// Assign sets the owner and stamps when it happened.
func (c *Contact) Assign(owner uuid.UUID, at time.Time) {
	c.OwnerID = &owner
	c.AssignedAt = &at
}

// LastActivity is the later of the last status change and the last assignment.
func (c *Contact) LastActivity() time.Time {
	if c.AssignedAt != nil && c.AssignedAt.After(c.StatusChangedAt) {
		return *c.AssignedAt
	}
	return c.StatusChangedAt
}

// AddTag adds tag once.
func (c *Contact) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(c.Tags, tag) {
		return
	}
	c.Tags = append(c.Tags, tag)
}

// Clone returns a deep copy safe to mutate independently.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}
	out := *c
	if c.OwnerID != nil {
		owner := *c.OwnerID
		out.OwnerID = &owner
	}
	if c.LostReason != nil {
		reason := *c.LostReason
		out.LostReason = &reason
	}
	if c.AssignedAt != nil {
		at := *c.AssignedAt
		out.AssignedAt = &at
	}
	out.Notes = slices.Clone(c.Notes)
	out.History = slices.Clone(c.History)
	out.Tags = slices.Clone(c.Tags)
	return &out
}

// EmailKey is the case-insensitive comparison key for duplicate detection.
func EmailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasValidEmail reports whether email is non-empty and contains "@".
func HasValidEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	return trimmed != "" && strings.Contains(trimmed, "@")
}
