package transport

import (
	"time"

	"github.com/google/uuid"
)

// ToggleRuleRequest switches a rule on or off.
type ToggleRuleRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// UpdateSettingsRequest changes the distribution settings. Omitted fields
// keep their value.
type UpdateSettingsRequest struct {
	DistributionEnabled *bool   `json:"distributionEnabled,omitempty"`
	Method              *string `json:"method,omitempty" validate:"omitempty,oneof=round_robin load_balanced"`
	WelcomeTemplate     *string `json:"welcomeTemplate,omitempty" validate:"omitempty,notblank,max=1000"`
}

// ReplayRequest runs a trigger again for one contact.
type ReplayRequest struct {
	ContactID uuid.UUID `json:"contactId" validate:"required"`
	Trigger   string    `json:"trigger" validate:"required,oneof=ON_LEAD_CREATE ON_STATUS_CHANGE ON_MESSAGE_SENT ON_DEAL_WON ON_DEAL_LOST"`
}

// ListRunsRequest filters the run log.
type ListRunsRequest struct {
	Trigger   string `form:"trigger" validate:"omitempty,max=40"`
	ContactID string `form:"contactId" validate:"omitempty,uuid"`
	Limit     int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type RuleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Trigger     string `json:"trigger"`
	IsActive    bool   `json:"isActive"`
	Gating      bool   `json:"gating"`
}

type RuleListResponse struct {
	Items []RuleResponse `json:"items"`
}

type SettingsResponse struct {
	DistributionEnabled bool   `json:"distributionEnabled"`
	Method              string `json:"method"`
	MethodLabel         string `json:"methodLabel"`
	WelcomeTemplate     string `json:"welcomeTemplate"`
	SLAThresholdSeconds int64  `json:"slaThresholdSeconds"`
	StaleAfterSeconds   int64  `json:"staleAfterSeconds"`
}

type RunResponse struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	ContactID   *uuid.UUID `json:"contactId,omitempty"`
	RulesRun    []string   `json:"rulesRun"`
	RulesFailed []string   `json:"rulesFailed"`
	StartedAt   time.Time  `json:"startedAt"`
	DurationMs  int64      `json:"durationMs"`
}

type RunListResponse struct {
	Items []RunResponse `json:"items"`
}
