package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"leadflow_backend/internal/automation/assignment"
	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	tasks "leadflow_backend/internal/tasks/domain"
	team "leadflow_backend/internal/team/domain"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// scanLimit caps how many contacts one scheduled rule looks at per tick.
const scanLimit = 200

// ruleSet holds the handler implementations and what they read.
type ruleSet struct {
	contacts ContactStore
	tasks    TaskStore
	team     TeamDirectory
	strategy *assignment.Strategy
	locks    *KeyedMutex
	cooldown *expirable.LRU[string, struct{}]
	log      *logger.Logger
}

func (s *ruleSet) register(d *Dispatcher) {
	d.Register(OnLeadCreate, RuleNormalize, s.normalizeName)
	d.Register(OnLeadCreate, RuleAssignment, s.assignOwner)
	d.Register(OnLeadCreate, RuleSpeedToLead, s.speedToLead)
	d.Register(OnMessageSent, RuleAutoAdvance, s.autoAdvance)
	d.Register(ScheduledCheck, RuleSLAAlert, s.slaAlert)
	d.Register(OnDealLost, RuleLostAnalysis, s.lostAnalysis)
	d.Register(OnDealWon, RuleWonAnnouncement, s.wonAnnouncement)
	d.Register(OnDealWon, RuleOnboarding, s.onboarding)
	d.Register(ScheduledCheck, RuleStaleReassign, s.staleReassign)
}

func (s *ruleSet) normalizeName(_ context.Context, run *Run) error {
	normalized := TitleCase(run.Contact.Name)
	if normalized != run.Contact.Name {
		run.Contact.Name = normalized
		run.MarkDirty()
	}
	return nil
}

// TitleCase upper-cases the first letter of every whitespace-delimited word.
// Whitespace and the remaining letters are kept as they are.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atWordStart := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			atWordStart = true
			b.WriteRune(r)
		case atWordStart:
			atWordStart = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *ruleSet) assignOwner(ctx context.Context, run *Run) error {
	c := run.Contact
	if !run.Settings.DistributionEnabled || !c.IsUnassigned() {
		return nil
	}

	pool, err := s.salesPool(ctx, nil)
	if err != nil {
		return err
	}

	method := run.Settings.Method
	member, err := s.strategy.Select(ctx, pool, method, s.contacts.CountActiveByOwner)
	if errors.Is(err, assignment.ErrEmptyPool) {
		run.Notify(inapp.TypeWarning, "Assignment skipped", fmt.Sprintf("No active sales reps available for %s. The lead stays unassigned.", c.Name))
		return nil
	}
	if err != nil {
		return err
	}

	owner := member.ID
	c.Assign(owner, run.Now)
	c.AddNote(fmt.Sprintf("Auto-assigned to %s via %s", member.Name, method.Label()), contacts.AuthorSystem, run.Now)
	run.MarkDirty()
	run.Notify(inapp.TypeSuccess, "Lead assigned", fmt.Sprintf("%s was assigned to %s", c.Name, member.Name))
	run.Publish(events.LeadAssigned{
		BaseEvent:   events.BaseEvent{Timestamp: run.Now},
		ContactID:   c.ID,
		ContactName: c.Name,
		NewOwnerID:  owner,
		Method:      string(method),
	})
	return nil
}

// salesPool returns assignable members in directory order, minus exclude.
func (s *ruleSet) salesPool(ctx context.Context, exclude *uuid.UUID) ([]team.Member, error) {
	members, err := s.team.ListActiveSalesReps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales reps: %w", err)
	}
	pool := make([]team.Member, 0, len(members))
	for _, m := range members {
		if !m.IsAssignable() || (exclude != nil && m.ID == *exclude) {
			continue
		}
		pool = append(pool, m)
	}
	return pool, nil
}

func (s *ruleSet) speedToLead(_ context.Context, run *Run) error {
	c := run.Contact
	if c.HasOutboundMessage() {
		return nil
	}

	body := renderWelcome(run.Settings.WelcomeTemplate, c)
	c.AddAutomatedMessage(contacts.ChannelWhatsApp, body, run.Now)
	run.MarkDirty()
	if strings.TrimSpace(c.Phone) != "" {
		run.Publish(events.WelcomeMessageQueued{
			BaseEvent: events.BaseEvent{Timestamp: run.Now},
			ContactID: c.ID,
			Phone:     c.Phone,
			Body:      body,
		})
	}

	assignee := c.OwnerID
	if assignee == nil {
		assignee = run.ActorID
	}
	run.CreateTask(newTask(run, "First contact: "+c.Name, tasks.TypeCall, tasks.Day(run.Now), assignee))
	return nil
}

func renderWelcome(tpl string, c *contacts.Contact) string {
	first := strings.Fields(c.Name)
	firstName := c.Name
	if len(first) > 0 {
		firstName = first[0]
	}
	return strings.NewReplacer(
		"{{name}}", c.Name,
		"{{firstName}}", firstName,
		"{{company}}", c.Company,
	).Replace(tpl)
}

func newTask(run *Run, title, typ string, due time.Time, assignee *uuid.UUID) *tasks.Task {
	contactID := run.Contact.ID
	var assigned *uuid.UUID
	if assignee != nil {
		id := *assignee
		assigned = &id
	}
	return &tasks.Task{
		ID:               uuid.New(),
		Title:            title,
		Type:             typ,
		DueDate:          due,
		Status:           tasks.StatusPending,
		Priority:         tasks.PriorityHigh,
		AssignedTo:       assigned,
		RelatedContactID: &contactID,
		CreatedAt:        run.Now,
		UpdatedAt:        run.Now,
	}
}

func (s *ruleSet) autoAdvance(_ context.Context, run *Run) error {
	c := run.Contact
	if c.Status != contacts.StatusNew {
		return nil
	}

	c.Status = contacts.StatusContacted
	c.StatusChangedAt = run.Now
	c.AddNote("Status changed from New to Contacted after the first message", contacts.AuthorSystem, run.Now)
	run.MarkDirty()
	run.Notify(inapp.TypeSuccess, "Lead contacted", fmt.Sprintf("%s moved to Contacted", c.Name))
	run.Publish(events.ContactStatusChanged{
		BaseEvent: events.BaseEvent{Timestamp: run.Now},
		ContactID: c.ID,
		From:      string(contacts.StatusNew),
		To:        string(contacts.StatusContacted),
		ActorID:   run.ActorID,
		Automatic: true,
	})
	return nil
}

const onboardingPrefix = "Onboarding: "

// onboarding plans one meeting per won contact; a replay finds the existing
// task and does nothing.
func (s *ruleSet) onboarding(ctx context.Context, run *Run) error {
	c := run.Contact
	exists, err := s.tasks.HasOpenOrDoneTask(ctx, c.ID, tasks.TypeMeeting, onboardingPrefix)
	if err != nil {
		return fmt.Errorf("look up onboarding task: %w", err)
	}
	if exists {
		return nil
	}

	assignee := run.ActorID
	if assignee == nil {
		assignee = c.OwnerID
	}
	due := tasks.Day(run.Now).AddDate(0, 0, 1)
	run.CreateTask(newTask(run, onboardingPrefix+c.Name, tasks.TypeMeeting, due, assignee))
	run.Notify(inapp.TypeSuccess, "Onboarding scheduled", fmt.Sprintf("Onboarding meeting with %s planned for tomorrow", c.Name))
	return nil
}

func (s *ruleSet) lostAnalysis(_ context.Context, run *Run) error {
	c := run.Contact
	reason := strings.TrimSpace(run.LostReason)
	if reason == "" && c.LostReason != nil {
		reason = strings.TrimSpace(*c.LostReason)
	}
	if reason == "" {
		reason = "unspecified"
	}

	c.AddTag("lost:" + slug(reason))
	run.MarkDirty()
	run.Notify(inapp.TypeInfo, "Deal lost", fmt.Sprintf("%s was lost: %s", c.Name, reason))
	return nil
}

func (s *ruleSet) wonAnnouncement(_ context.Context, run *Run) error {
	c := run.Contact
	run.Notify(inapp.TypeSuccess, "Deal won", fmt.Sprintf("%s closed for %s", c.Name, FormatCents(c.ValueCents)))
	return nil
}

// FormatCents renders an amount in cents as units with two decimals.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// slug lower-cases s and joins its letter and digit runs with dashes.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	out := b.String()
	if utf8.RuneCountInString(out) > 40 {
		out = strings.TrimRight(string([]rune(out)[:40]), "-")
	}
	if out == "" {
		return "unspecified"
	}
	return out
}
