// Package domain provides the team member model.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSales   Role = "Sales"
	RoleSupport Role = "Support"
	RoleManager Role = "Manager"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

type Member struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsAssignable reports whether leads may be routed to m.
func (m Member) IsAssignable() bool {
	return m.Role == RoleSales && m.Status == StatusActive
}
