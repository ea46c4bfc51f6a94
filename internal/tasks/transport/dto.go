package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateTaskRequest adds a follow-up task by hand. DueDate is YYYY-MM-DD.
type CreateTaskRequest struct {
	Title            string     `json:"title" validate:"required,notblank,max=200"`
	Type             string     `json:"type" validate:"required,oneof=call meeting email todo"`
	DueDate          string     `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Priority         string     `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	AssignedTo       *uuid.UUID `json:"assignedTo,omitempty"`
	RelatedContactID *uuid.UUID `json:"relatedContactId,omitempty"`
}

// UpdateTaskStatusRequest completes or cancels a task.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Done Cancelled"`
}

// ListTasksRequest filters tasks.
type ListTasksRequest struct {
	ContactID  string `form:"contactId" validate:"omitempty,uuid"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Status     string `form:"status" validate:"omitempty,oneof=Pending Done Cancelled"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type TaskResponse struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Type             string     `json:"type"`
	DueDate          string     `json:"dueDate"`
	Status           string     `json:"status"`
	Priority         string     `json:"priority"`
	AssignedTo       *uuid.UUID `json:"assignedTo"`
	RelatedContactID *uuid.UUID `json:"relatedContactId"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}
