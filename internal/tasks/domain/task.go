// Package domain provides the follow-up task model.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusDone      Status = "Done"
	StatusCancelled Status = "Cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Task types created by automation.
const (
	TypeCall    = "call"
	TypeMeeting = "meeting"
	TypeEmail   = "email"
	TypeTodo    = "todo"
)

// Task is a follow-up item. DueDate is a calendar day at midnight UTC.
type Task struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	DueDate          time.Time  `json:"dueDate"`
	Status           Status     `json:"status"`
	Priority         Priority   `json:"priority"`
	AssignedTo       *uuid.UUID `json:"assignedTo,omitempty"`
	RelatedContactID *uuid.UUID `json:"relatedContactId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// IsKnownStatus reports whether s is a task status.
func IsKnownStatus(s Status) bool {
	return s == StatusPending || s == StatusDone || s == StatusCancelled
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
