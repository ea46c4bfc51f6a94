package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateContactRequest is the manual lead entry payload. Value is in whole
// currency units with up to two decimals.
type CreateContactRequest struct {
	Name    string     `json:"name" validate:"required,notblank,max=200"`
	Email   string     `json:"email" validate:"omitempty,email,max=254"`
	Phone   string     `json:"phone" validate:"omitempty,max=40"`
	Company string     `json:"company" validate:"omitempty,max=200"`
	Value   float64    `json:"value" validate:"gte=0"`
	Source  string     `json:"source" validate:"omitempty,max=60"`
	Tags    []string   `json:"tags" validate:"omitempty,max=20,dive,notblank,max=40"`
	OwnerID *uuid.UUID `json:"ownerId,omitempty"`
}

// UpdateContactRequest changes selected contact fields.
type UpdateContactRequest struct {
	Name    *string  `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Email   *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone   *string  `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company *string  `json:"company,omitempty" validate:"omitempty,max=200"`
	Value   *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,notblank,max=40"`
}

// MoveStatusRequest moves a contact to another pipeline stage.
type MoveStatusRequest struct {
	Status     string `json:"status" validate:"required,oneof=New Contacted Qualified Negotiation Won Lost"`
	LostReason string `json:"lostReason" validate:"omitempty,max=500"`
}

// MessageRequest records a conversation message.
type MessageRequest struct {
	Channel string `json:"channel" validate:"omitempty,oneof=whatsapp email sms call"`
	Sender  string `json:"sender" validate:"omitempty,oneof=agent contact system"`
	Body    string `json:"body" validate:"required,notblank,max=4000"`
}

// NoteRequest adds an internal note.
type NoteRequest struct {
	Body string `json:"body" validate:"required,notblank,max=4000"`
}

// ListContactsRequest filters and pages the contact list.
type ListContactsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=New Contacted Qualified Negotiation Won Lost"`
	OwnerID  string `form:"ownerId" validate:"omitempty,uuid"`
	Search   string `form:"search" validate:"omitempty,max=100"`
	Tag      string `form:"tag" validate:"omitempty,max=40"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	Channel   string    `json:"channel"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Automated bool      `json:"automated,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContactResponse represents a contact in API responses.
type ContactResponse struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Company         string            `json:"company"`
	Status          string            `json:"status"`
	OwnerID         *uuid.UUID        `json:"ownerId"`
	Value           float64           `json:"value"`
	ValueCents      int64             `json:"valueCents"`
	Notes           []NoteResponse    `json:"notes"`
	History         []MessageResponse `json:"history"`
	Tags            []string          `json:"tags"`
	LostReason      *string           `json:"lostReason,omitempty"`
	Source          string            `json:"source"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	StatusChangedAt time.Time         `json:"statusChangedAt"`
	AssignedAt      *time.Time        `json:"assignedAt,omitempty"`
}

// AutomationSummary reports the rule passes a request triggered.
type AutomationSummary struct {
	RunID         string   `json:"runId"`
	Trigger       string   `json:"trigger"`
	RulesRun      []string `json:"rulesRun"`
	RulesFailed   []string `json:"rulesFailed"`
	Notifications int      `json:"notifications"`
	TasksCreated  int      `json:"tasksCreated"`
}

// ContactWithAutomationResponse is returned by mutations that dispatch rules.
type ContactWithAutomationResponse struct {
	Contact    ContactResponse     `json:"contact"`
	Automation []AutomationSummary `json:"automation"`
}

type ContactListResponse struct {
	Items      []ContactResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// TransitionCheckResponse previews whether a move would be allowed.
type TransitionCheckResponse struct {
	Allowed bool   `json:"allowed"`
	RuleID  string `json:"ruleId,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
