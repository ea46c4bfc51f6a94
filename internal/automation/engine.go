package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"leadflow_backend/internal/automation/assignment"
	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// ErrCheckInProgress is returned when a scheduled check is already running.
var ErrCheckInProgress = errors.New("automation: scheduled check already running")

const cooldownEntries = 4096

// EngineDeps wires the engine to its stores.
type EngineDeps struct {
	Registry *Registry
	Settings *SettingsStore
	Strategy *assignment.Strategy
	Contacts ContactStore
	Tasks    TaskStore
	Team     TeamDirectory
	Notifier Notifier
	Bus      Publisher
	Runs     RunRecorder
	Clock    clock.Clock
	Log      *logger.Logger
}

// Engine is the single entry point for everything that triggers automation:
// the REST API, lead capture webhooks, the scheduler and the CLI.
type Engine struct {
	registry   *Registry
	settings   *SettingsStore
	dispatcher *Dispatcher
	gate       *Gate
	contacts   ContactStore
	notifier   Notifier
	bus        Publisher
	locks      *KeyedMutex
	clock      clock.Clock
	log        *logger.Logger
	checkMu    sync.Mutex
}

func NewEngine(deps EngineDeps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Strategy == nil {
		deps.Strategy = assignment.NewStrategy(nil)
	}

	cooldown := deps.Settings.Get().AlertCooldown
	if cooldown <= 0 {
		cooldown = time.Hour
	}

	locks := NewKeyedMutex()
	dispatcher := NewDispatcher(deps.Registry, DispatcherDeps{
		Contacts: deps.Contacts,
		Tasks:    deps.Tasks,
		Notifier: deps.Notifier,
		Bus:      deps.Bus,
		Runs:     deps.Runs,
		Clock:    deps.Clock,
	}, deps.Log)

	rules := &ruleSet{
		contacts: deps.Contacts,
		tasks:    deps.Tasks,
		team:     deps.Team,
		strategy: deps.Strategy,
		locks:    locks,
		cooldown: expirable.NewLRU[string, struct{}](cooldownEntries, nil, cooldown),
		log:      deps.Log,
	}
	rules.register(dispatcher)

	return &Engine{
		registry:   deps.Registry,
		settings:   deps.Settings,
		dispatcher: dispatcher,
		gate:       NewGate(deps.Registry, deps.Tasks),
		contacts:   deps.Contacts,
		notifier:   deps.Notifier,
		bus:        deps.Bus,
		locks:      locks,
		clock:      deps.Clock,
		log:        deps.Log,
	}
}

func (e *Engine) Registry() *Registry      { return e.registry }
func (e *Engine) Settings() *SettingsStore { return e.settings }

// Reload refreshes the rule catalog and the settings from their sources.
func (e *Engine) Reload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.registry.Reload(gctx) })
	g.Go(func() error { return e.settings.Reload(gctx) })
	return g.Wait()
}

// NewLead is the input of CreateLead.
type NewLead struct {
	Name       string
	Email      string
	Phone      string
	Company    string
	ValueCents int64
	Source     string
	Tags       []string
	OwnerID    *uuid.UUID
	ActorID    *uuid.UUID
}

// CreateLead runs duplicate detection and, when the lead is admitted, the
// ON_LEAD_CREATE pass. The contact is stored by the pass.
func (e *Engine) CreateLead(ctx context.Context, in NewLead) (*contacts.Contact, Result, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, Result{}, toAppErr(&ValidationError{Field: "name", Reason: "name is required"})
	}
	if in.ValueCents < 0 {
		return nil, Result{}, toAppErr(&ValidationError{Field: "value", Reason: "value cannot be negative"})
	}

	email := strings.TrimSpace(in.Email)
	phoneNumber := strings.TrimSpace(in.Phone)
	emailKey := contacts.EmailKey(email)
	phoneKey := phone.MatchKey(phoneNumber)

	id := uuid.New()
	unlock := e.locks.LockMany(emailLockKey(emailKey), phoneLockKey(phoneKey), contactKey(id.String()))
	defer unlock()

	ctx = context.WithoutCancel(ctx)

	if e.registry.IsActive(RuleDuplicateCheck) && (emailKey != "" || phoneKey != "") {
		existing, err := e.contacts.FindByEmailOrPhone(ctx, emailKey, phoneKey)
		if err != nil {
			return nil, Result{}, fmt.Errorf("automation: duplicate lookup: %w", err)
		}
		if existing != nil {
			matched := "phone"
			if emailKey != "" && contacts.EmailKey(existing.Email) == emailKey {
				matched = "email"
			}
			existingID := existing.ID
			e.notify(ctx, inapp.Notification{
				Type:    inapp.TypeError,
				Title:   "Duplicate lead",
				Message: fmt.Sprintf("A contact with this %s already exists: %s", matched, existing.Name),
				LinkTo:  &existingID,
			})
			return nil, Result{}, toAppErr(&DuplicateError{ExistingID: existing.ID, ExistingName: existing.Name, MatchedOn: matched})
		}
	}

	now := e.clock.Now().UTC()
	c := &contacts.Contact{
		ID:              id,
		Name:            name,
		Email:           email,
		Phone:           phoneNumber,
		Company:         strings.TrimSpace(in.Company),
		Status:          contacts.StatusNew,
		OwnerID:         in.OwnerID,
		ValueCents:      in.ValueCents,
		Notes:           []contacts.Note{},
		History:         []contacts.Message{},
		Tags:            []string{},
		Source:          in.Source,
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusChangedAt: now,
	}
	if in.OwnerID != nil {
		c.Assign(*in.OwnerID, now)
	}
	for _, tag := range in.Tags {
		c.AddTag(tag)
	}

	run := &Run{
		Trigger:  OnLeadCreate,
		Contact:  c,
		ActorID:  in.ActorID,
		Now:      now,
		Settings: e.settings.Get(),
		isNew:    true,
	}
	result, err := e.dispatcher.Dispatch(ctx, run)
	if err != nil {
		return nil, result, err
	}

	e.publish(ctx, events.LeadCreated{
		BaseEvent: events.BaseEvent{Timestamp: now},
		ContactID: c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Source:    c.Source,
		OwnerID:   c.OwnerID,
	})
	return c, result, nil
}

// StatusMove is a requested pipeline move.
type StatusMove struct {
	ContactID  uuid.UUID
	To         contacts.Status
	LostReason string
	ActorID    *uuid.UUID
}

// CanTransition is a read-only preview of MoveStatus.
func (e *Engine) CanTransition(ctx context.Context, contactID uuid.UUID, to contacts.Status) (Decision, error) {
	c, err := e.contacts.Find(ctx, contactID)
	if err != nil {
		return Decision{}, err
	}
	if c.Status == to {
		return allow(), nil
	}
	return e.gate.CanTransition(ctx, c, c.Status, to)
}

// MoveStatus gates and commits a pipeline move, then runs ON_STATUS_CHANGE
// and, for terminal moves, ON_DEAL_WON or ON_DEAL_LOST. Moving to the
// current status is a no-op.
func (e *Engine) MoveStatus(ctx context.Context, move StatusMove) (*contacts.Contact, []Result, error) {
	unlock := e.locks.Lock(contactKey(move.ContactID.String()))
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	c, err := e.contacts.Find(ctx, move.ContactID)
	if err != nil {
		return nil, nil, err
	}
	from := c.Status
	if from == move.To {
		return c, nil, nil
	}

	decision, err := e.gate.CanTransition(ctx, c, from, move.To)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		e.reportDenial(ctx, c, from, move.To, decision)
		return nil, nil, toAppErr(decision.Err)
	}

	now := e.clock.Now().UTC()
	settings := e.settings.Get()
	reason := strings.TrimSpace(move.LostReason)

	c.Status = move.To
	c.StatusChangedAt = now
	note := fmt.Sprintf("Status changed from %s to %s", from, move.To)
	if move.To == contacts.StatusLost && reason != "" {
		c.LostReason = &reason
		note += " (reason: " + reason + ")"
	}
	c.AddNote(note, contacts.AuthorSystem, now)

	changed := &Run{
		Trigger:    OnStatusChange,
		Contact:    c,
		ActorID:    move.ActorID,
		Now:        now,
		From:       from,
		To:         move.To,
		LostReason: reason,
		Settings:   settings,
		dirty:      true,
	}
	changed.Publish(events.ContactStatusChanged{
		BaseEvent:  events.BaseEvent{Timestamp: now},
		ContactID:  c.ID,
		From:       string(from),
		To:         string(move.To),
		LostReason: c.LostReason,
		ActorID:    move.ActorID,
	})

	results := make([]Result, 0, 2)
	result, err := e.dispatcher.Dispatch(ctx, changed)
	if err != nil {
		return nil, nil, err
	}
	results = append(results, result)

	var follow *Run
	switch move.To {
	case contacts.StatusWon:
		follow = &Run{Trigger: OnDealWon}
		follow.Publish(events.DealWon{BaseEvent: events.BaseEvent{Timestamp: now}, ContactID: c.ID, Name: c.Name, ValueCents: c.ValueCents})
	case contacts.StatusLost:
		follow = &Run{Trigger: OnDealLost}
		follow.Publish(events.DealLost{BaseEvent: events.BaseEvent{Timestamp: now}, ContactID: c.ID, Name: c.Name, Reason: reason})
	}
	if follow != nil {
		follow.Contact = c
		follow.ActorID = move.ActorID
		follow.Now = now
		follow.From = from
		follow.To = move.To
		follow.LostReason = reason
		follow.Settings = settings
		result, err := e.dispatcher.Dispatch(ctx, follow)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, result)
	}

	return c, results, nil
}

func (e *Engine) reportDenial(ctx context.Context, c *contacts.Contact, from, to contacts.Status, d Decision) {
	n := inapp.Notification{Type: inapp.TypeError, Title: "Move not allowed", Message: d.Reason, LinkTo: &c.ID}
	var veto *GatingVeto
	if errors.As(d.Err, &veto) {
		n.Type = inapp.TypeWarning
		n.Title = "Move blocked"
	} else if d.RuleID == RuleDataQuality {
		n.Title = "Missing information"
	}
	e.notify(ctx, n)
	e.log.WithContext(ctx).RuleVeto(d.RuleID, c.ID.String(), string(from), string(to), d.Reason)
}

// OutboundMessage is a message added to a contact's history.
type OutboundMessage struct {
	ContactID uuid.UUID
	Channel   string
	Sender    string
	Body      string
	ActorID   *uuid.UUID
}

// RecordMessage appends a message to the history. Messages sent by the
// team run ON_MESSAGE_SENT; inbound messages are only stored.
func (e *Engine) RecordMessage(ctx context.Context, in OutboundMessage) (*contacts.Contact, *Result, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, nil, toAppErr(&ValidationError{Field: "body", Reason: "message body is required"})
	}
	sender := in.Sender
	if sender == "" {
		sender = contacts.SenderAgent
	}
	channel := in.Channel
	if channel == "" {
		channel = contacts.ChannelWhatsApp
	}

	unlock := e.locks.Lock(contactKey(in.ContactID.String()))
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	c, err := e.contacts.Find(ctx, in.ContactID)
	if err != nil {
		return nil, nil, err
	}

	now := e.clock.Now().UTC()
	msg := c.AddMessage(channel, sender, body, now)

	if sender != contacts.SenderAgent {
		c.UpdatedAt = now
		if err := e.contacts.Save(ctx, c); err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}

	run := &Run{
		Trigger:  OnMessageSent,
		Contact:  c,
		ActorID:  in.ActorID,
		Now:      now,
		Message:  &msg,
		Settings: e.settings.Get(),
		dirty:    true,
	}
	run.Publish(events.MessageSent{BaseEvent: events.BaseEvent{Timestamp: now}, ContactID: c.ID, Channel: channel})
	result, err := e.dispatcher.Dispatch(ctx, run)
	if err != nil {
		return nil, nil, err
	}
	return c, &result, nil
}

// AppendNote adds a user note to a contact.
func (e *Engine) AppendNote(ctx context.Context, contactID uuid.UUID, body, author string) (*contacts.Contact, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, toAppErr(&ValidationError{Field: "body", Reason: "note body is required"})
	}

	unlock := e.locks.Lock(contactKey(contactID.String()))
	defer unlock()

	c, err := e.contacts.Find(ctx, contactID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now().UTC()
	c.AddNote(body, author, now)
	c.UpdatedAt = now
	if err := e.contacts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DetailsUpdate changes the non-nil contact fields. Status is changed only
// through MoveStatus.
type DetailsUpdate struct {
	ContactID  uuid.UUID
	Name       *string
	Email      *string
	Phone      *string
	Company    *string
	ValueCents *int64
	Tags       []string
}

// UpdateDetails edits contact data. A changed email or phone must not
// collide with another contact while the duplicate check is active.
func (e *Engine) UpdateDetails(ctx context.Context, in DetailsUpdate) (*contacts.Contact, error) {
	unlock := e.locks.Lock(contactKey(in.ContactID.String()))
	defer unlock()

	c, err := e.contacts.Find(ctx, in.ContactID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, toAppErr(&ValidationError{Field: "name", Reason: "name is required"})
		}
		c.Name = name
	}
	if in.ValueCents != nil {
		if *in.ValueCents < 0 {
			return nil, toAppErr(&ValidationError{Field: "value", Reason: "value cannot be negative"})
		}
		c.ValueCents = *in.ValueCents
	}
	if in.Company != nil {
		c.Company = strings.TrimSpace(*in.Company)
	}
	if in.Tags != nil {
		c.Tags = []string{}
		for _, tag := range in.Tags {
			c.AddTag(tag)
		}
	}

	var emailKey, phoneKey string
	if in.Email != nil {
		c.Email = strings.TrimSpace(*in.Email)
		emailKey = contacts.EmailKey(c.Email)
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
		phoneKey = phone.MatchKey(c.Phone)
	}
	if emailKey != "" || phoneKey != "" {
		release := e.locks.LockMany(emailLockKey(emailKey), phoneLockKey(phoneKey))
		defer release()
		if e.registry.IsActive(RuleDuplicateCheck) {
			existing, err := e.contacts.FindByEmailOrPhone(ctx, emailKey, phoneKey)
			if err != nil {
				return nil, fmt.Errorf("automation: duplicate lookup: %w", err)
			}
			if existing != nil && existing.ID != c.ID {
				matched := "phone"
				if emailKey != "" && contacts.EmailKey(existing.Email) == emailKey {
					matched = "email"
				}
				return nil, toAppErr(&DuplicateError{ExistingID: existing.ID, ExistingName: existing.Name, MatchedOn: matched})
			}
		}
	}

	c.UpdatedAt = e.clock.Now().UTC()
	if err := e.contacts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Replay runs trigger again for an existing contact. Assignment, the welcome
// message and the onboarding task are skipped when already present;
// notifications such as the won announcement are sent again.
func (e *Engine) Replay(ctx context.Context, contactID uuid.UUID, trigger Trigger, actorID *uuid.UUID) (Result, error) {
	if !trigger.IsKnown() || trigger == ScheduledCheck {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTrigger, trigger)
	}

	unlock := e.locks.Lock(contactKey(contactID.String()))
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	c, err := e.contacts.Find(ctx, contactID)
	if err != nil {
		return Result{}, err
	}
	return e.dispatcher.Dispatch(ctx, &Run{
		Trigger:  trigger,
		Contact:  c,
		ActorID:  actorID,
		Now:      e.clock.Now().UTC(),
		From:     c.Status,
		To:       c.Status,
		Settings: e.settings.Get(),
	})
}

// RunScheduledCheck runs the SCHEDULED_CHECK pass. Only one check runs at a
// time; a second caller gets ErrCheckInProgress instead of waiting.
func (e *Engine) RunScheduledCheck(ctx context.Context) (Result, error) {
	if !e.checkMu.TryLock() {
		return Result{}, ErrCheckInProgress
	}
	defer e.checkMu.Unlock()

	return e.dispatcher.Dispatch(context.WithoutCancel(ctx), &Run{
		Trigger:  ScheduledCheck,
		Now:      e.clock.Now().UTC(),
		Settings: e.settings.Get(),
	})
}

func (e *Engine) notify(ctx context.Context, n inapp.Notification) {
	if e.notifier == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.clock.Now().UTC()
	}
	e.notifier.Notify(ctx, n)
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus != nil {
		e.bus.Publish(ctx, event)
	}
}
