package automation

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"

	"github.com/oklog/ulid/v2"
)

// Handler implements one rule for one trigger.
type Handler func(ctx context.Context, run *Run) error

type handlerKey struct {
	trigger Trigger
	ruleID  string
}

// DispatcherDeps are the stores a pass writes its effects to. Runs may be nil.
type DispatcherDeps struct {
	Contacts ContactStore
	Tasks    TaskStore
	Notifier Notifier
	Bus      Publisher
	Runs     RunRecorder
	Clock    clock.Clock
}

// Dispatcher runs the active rules of a trigger in catalog order and
// applies their effects.
type Dispatcher struct {
	registry *Registry
	handlers map[handlerKey]Handler
	deps     DispatcherDeps
	log      *logger.Logger
}

func NewDispatcher(registry *Registry, deps DispatcherDeps, log *logger.Logger) *Dispatcher {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Dispatcher{
		registry: registry,
		handlers: make(map[handlerKey]Handler),
		deps:     deps,
		log:      log,
	}
}

// Register binds h to (trigger, ruleID). Unknown triggers, unknown rules and
// a trigger that differs from the rule's catalog trigger panic.
func (d *Dispatcher) Register(trigger Trigger, ruleID string, h Handler) {
	if !trigger.IsKnown() {
		panic(fmt.Sprintf("automation: register %s: unknown trigger %q", ruleID, trigger))
	}
	rule, ok := d.registry.Get(ruleID)
	if !ok {
		panic(fmt.Sprintf("automation: register: unknown rule %q", ruleID))
	}
	if rule.Trigger != trigger {
		panic(fmt.Sprintf("automation: register %s: rule fires on %s, not %s", ruleID, rule.Trigger, trigger))
	}
	d.handlers[handlerKey{trigger: trigger, ruleID: ruleID}] = h
}

// Dispatch runs the pass described by run. A failing handler has its
// changes rolled back and the pass continues. All effects are applied
// before Dispatch returns; only storing the contact can fail the pass.
func (d *Dispatcher) Dispatch(ctx context.Context, run *Run) (Result, error) {
	if !run.Trigger.IsKnown() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTrigger, run.Trigger)
	}
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}
	started := d.deps.Clock.Now()
	if run.Now.IsZero() {
		run.Now = started
	}

	ctx = context.WithValue(ctx, logger.RunIDKey, run.ID)
	log := d.log.WithContext(ctx)

	result := Result{RunID: run.ID, Trigger: run.Trigger, RulesRun: []string{}, RulesFailed: []string{}}
	for _, rule := range d.registry.ActiveFor(run.Trigger) {
		h, ok := d.handlers[handlerKey{trigger: run.Trigger, ruleID: rule.ID}]
		if !ok {
			continue
		}

		mark := run.mark()
		if err := invoke(ctx, rule.ID, run, h); err != nil {
			run.restore(mark)
			log.RuleFault(rule.ID, string(run.Trigger), err)
			result.RulesFailed = append(result.RulesFailed, rule.ID)
			continue
		}
		result.RulesRun = append(result.RulesRun, rule.ID)
	}

	if err := d.apply(ctx, log, run); err != nil {
		return result, err
	}
	result.Notifications = len(run.notifications)
	result.TasksCreated = len(run.tasks)

	d.record(ctx, log, run, result, started)
	return result, nil
}

func invoke(ctx context.Context, ruleID string, run *Run, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerFault{RuleID: ruleID, Trigger: run.Trigger, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()
	if err := h(ctx, run); err != nil {
		return &HandlerFault{RuleID: ruleID, Trigger: run.Trigger, Err: err}
	}
	return nil
}

// apply stores the contact first so tasks and links can reference it.
func (d *Dispatcher) apply(ctx context.Context, log *logger.Logger, run *Run) error {
	if c := run.Contact; c != nil {
		switch {
		case run.isNew:
			c.UpdatedAt = run.Now
			if err := d.deps.Contacts.Create(ctx, c); err != nil {
				return fmt.Errorf("automation: create contact: %w", err)
			}
			run.isNew = false
			run.dirty = false
		case run.dirty:
			c.UpdatedAt = run.Now
			if err := d.deps.Contacts.Save(ctx, c); err != nil {
				return fmt.Errorf("automation: save contact: %w", err)
			}
			run.dirty = false
		}
	}

	for _, t := range run.tasks {
		if err := d.deps.Tasks.Create(ctx, t); err != nil {
			log.DatabaseError("automation.create_task", err)
		}
	}
	if d.deps.Notifier != nil {
		for _, n := range run.notifications {
			d.deps.Notifier.Notify(ctx, n)
		}
	}
	if d.deps.Bus != nil {
		for _, e := range run.events {
			d.deps.Bus.Publish(ctx, e)
		}
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, log *logger.Logger, run *Run, result Result, started time.Time) {
	if d.deps.Runs == nil {
		return
	}
	rec := RunRecord{
		ID:          run.ID,
		Trigger:     run.Trigger,
		RulesRun:    result.RulesRun,
		RulesFailed: result.RulesFailed,
		StartedAt:   started,
		DurationMs:  d.deps.Clock.Now().Sub(started).Milliseconds(),
	}
	if run.Contact != nil {
		id := run.Contact.ID
		rec.ContactID = &id
	}
	if err := d.deps.Runs.Record(ctx, rec); err != nil {
		log.DatabaseError("automation.record_run", err)
	}
}
