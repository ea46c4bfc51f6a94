package transport

import (
	"github.com/google/uuid"
)

// CreateMemberRequest contains data for adding a team member.
type CreateMemberRequest struct {
	Name   string `json:"name" validate:"required,notblank,max=120"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Role   string `json:"role" validate:"required,oneof=Sales Support Manager"`
	Status string `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

// UpdateMemberRequest changes selected fields of a team member.
type UpdateMemberRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,notblank,max=120"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=Sales Support Manager"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}

// ListMembersRequest filters the member list.
type ListMembersRequest struct {
	Role   string `form:"role" validate:"omitempty,oneof=Sales Support Manager"`
	Status string `form:"status" validate:"omitempty,oneof=Active Inactive"`
}

// MemberResponse represents a team member in API responses.
type MemberResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	Assignable bool      `json:"assignable"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

// MemberListResponse wraps a list of team members.
type MemberListResponse struct {
	Items []MemberResponse `json:"items"`
	Total int              `json:"total"`
}
