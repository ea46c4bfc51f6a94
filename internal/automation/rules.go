// Package automation is the lead-automation rule engine: a catalog of
// toggleable rules, a dispatcher that runs them per trigger, the pipeline
// gate and the entry points every caller goes through.
package automation

// Trigger is a domain event that activates matching rules.
type Trigger string

const (
	OnLeadCreate   Trigger = "ON_LEAD_CREATE"
	OnStatusChange Trigger = "ON_STATUS_CHANGE"
	OnMessageSent  Trigger = "ON_MESSAGE_SENT"
	OnDealWon      Trigger = "ON_DEAL_WON"
	OnDealLost     Trigger = "ON_DEAL_LOST"
	ScheduledCheck Trigger = "SCHEDULED_CHECK"
)

// IsKnown reports whether t is one of the defined triggers.
func (t Trigger) IsKnown() bool {
	switch t {
	case OnLeadCreate, OnStatusChange, OnMessageSent, OnDealWon, OnDealLost, ScheduledCheck:
		return true
	}
	return false
}

// Category groups rules in the admin UI.
type Category string

const (
	CategoryCore      Category = "CORE"
	CategorySales     Category = "SALES"
	CategoryQuality   Category = "QUALITY"
	CategoryReporting Category = "REPORTING"
	CategoryLifecycle Category = "LIFECYCLE"
)

// Rule IDs are stable; persisted toggles and override files refer to them.
const (
	RuleNormalize       = "core_1"
	RuleDuplicateCheck  = "core_2"
	RuleAssignment      = "core_3"
	RuleSpeedToLead     = "core_4"
	RuleAutoAdvance     = "sales_1"
	RuleSLAAlert        = "sales_2"
	RuleTaskGating      = "sales_3"
	RuleDataQuality     = "qual_1"
	RuleLostAnalysis    = "rep_1"
	RuleWonAnnouncement = "rep_2"
	RuleOnboarding      = "life_1"
	RuleStaleReassign   = "life_2"
)

// Rule is one catalog entry. Only IsActive changes after startup.
type Rule struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	Trigger     Trigger  `json:"trigger" yaml:"trigger"`
	IsActive    bool     `json:"isActive" yaml:"isActive"`
}

// DefaultRules returns the seed catalog. Order matters: handlers for the same
// trigger run in this order, so normalization precedes assignment, which
// precedes the welcome message and first-contact task.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: RuleNormalize, Name: "Name Normalization", Category: CategoryCore, Trigger: OnLeadCreate, IsActive: true,
			Description: "Capitalizes each word of a new lead's name. Phone numbers are kept as entered.",
		},
		{
			ID: RuleDuplicateCheck, Name: "Duplicate Detection", Category: CategoryCore, Trigger: OnLeadCreate, IsActive: true,
			Description: "Rejects a new lead whose email or phone matches an existing contact.",
		},
		{
			ID: RuleAssignment, Name: "Lead Distribution", Category: CategoryCore, Trigger: OnLeadCreate, IsActive: true,
			Description: "Assigns unowned leads to an active sales rep using the configured method.",
		},
		{
			ID: RuleSpeedToLead, Name: "Speed to Lead", Category: CategoryCore, Trigger: OnLeadCreate, IsActive: true,
			Description: "Sends a WhatsApp welcome message and creates a high priority first contact task due today.",
		},
		{
			ID: RuleAutoAdvance, Name: "Pipeline Auto-Advance", Category: CategorySales, Trigger: OnMessageSent, IsActive: true,
			Description: "Moves a New lead to Contacted when the first message is sent.",
		},
		{
			ID: RuleSLAAlert, Name: "First Response SLA", Category: CategorySales, Trigger: ScheduledCheck, IsActive: true,
			Description: "Warns when a New lead has waited longer than the SLA without a message.",
		},
		{
			ID: RuleTaskGating, Name: "Task Gating", Category: CategorySales, Trigger: OnStatusChange, IsActive: true,
			Description: "Blocks pipeline moves while the contact has pending tasks (moves to Lost or New are allowed).",
		},
		{
			ID: RuleDataQuality, Name: "Data Quality Gate", Category: CategoryQuality, Trigger: OnStatusChange, IsActive: true,
			Description: "Requires a valid email before Qualified and a deal value before Won.",
		},
		{
			ID: RuleLostAnalysis, Name: "Lost Deal Analysis", Category: CategoryReporting, Trigger: OnDealLost, IsActive: true,
			Description: "Tags lost deals with their reason and reports it.",
		},
		{
			ID: RuleWonAnnouncement, Name: "Won Deal Announcement", Category: CategoryReporting, Trigger: OnDealWon, IsActive: true,
			Description: "Announces won deals with their value.",
		},
		{
			ID: RuleOnboarding, Name: "Customer Onboarding", Category: CategoryLifecycle, Trigger: OnDealWon, IsActive: true,
			Description: "Creates a high priority onboarding meeting task due tomorrow.",
		},
		{
			ID: RuleStaleReassign, Name: "Stale Lead Reassignment", Category: CategoryLifecycle, Trigger: ScheduledCheck, IsActive: false,
			Description: "Hands open leads without activity to another sales rep.",
		},
	}
}

// IsGuard reports whether id is evaluated at a boundary (lead creation or
// the pipeline gate) instead of by a dispatched handler.
func IsGuard(id string) bool {
	switch id {
	case RuleDuplicateCheck, RuleTaskGating, RuleDataQuality:
		return true
	}
	return false
}
