package automation

import (
	"context"
	"fmt"

	contacts "leadflow_backend/internal/contacts/domain"
)

// Decision is the outcome of a transition check. Err is a *ValidationError
// or *GatingVeto when the move is denied.
type Decision struct {
	Allowed bool
	RuleID  string
	Reason  string
	Err     error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(ruleID string, err error) Decision {
	return Decision{RuleID: ruleID, Reason: reasonOf(err), Err: err}
}

func reasonOf(err error) string {
	switch e := err.(type) {
	case *ValidationError:
		return e.Reason
	case *GatingVeto:
		return e.Reason
	default:
		return err.Error()
	}
}

// Gate guards pipeline moves. It has no side effects; callers report denials.
type Gate struct {
	registry *Registry
	tasks    TaskStore
}

func NewGate(registry *Registry, tasks TaskStore) *Gate {
	return &Gate{registry: registry, tasks: tasks}
}

// CanTransition checks the stage graph, then task gating, then data quality.
// The first denial wins. The returned error is reserved for lookup failures.
func (g *Gate) CanTransition(ctx context.Context, c *contacts.Contact, from, to contacts.Status) (Decision, error) {
	if !to.IsKnown() {
		return deny("", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)}), nil
	}
	if !contacts.CanMove(from, to) {
		return deny("", &ValidationError{Field: "status", Reason: fmt.Sprintf("cannot move from %s to %s", from, to)}), nil
	}

	if g.registry.IsActive(RuleTaskGating) && to != contacts.StatusLost && to != contacts.StatusNew {
		pending, err := g.tasks.CountPendingForContact(ctx, c.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("automation: count pending tasks: %w", err)
		}
		if pending > 0 {
			return deny(RuleTaskGating, &GatingVeto{
				RuleID:  RuleTaskGating,
				Pending: pending,
				Reason:  fmt.Sprintf("%s has %d pending task(s); complete them before moving to %s", c.Name, pending, to),
			}), nil
		}
	}

	if g.registry.IsActive(RuleDataQuality) {
		switch {
		case to == contacts.StatusQualified && !contacts.HasValidEmail(c.Email):
			return deny(RuleDataQuality, &ValidationError{Field: "email", Reason: "a valid email is required before moving to Qualified"}), nil
		case to == contacts.StatusWon && c.ValueCents <= 0:
			return deny(RuleDataQuality, &ValidationError{Field: "value", Reason: "a deal value greater than zero is required before moving to Won"}), nil
		}
	}

	return allow(), nil
}
