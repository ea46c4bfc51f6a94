package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/automation/assignment"
	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
)

// slaAlert warns about New leads that waited past the SLA. Each contact is
// reported at most once per cooldown window.
func (s *ruleSet) slaAlert(ctx context.Context, run *Run) error {
	threshold := run.Settings.SLAThreshold
	if threshold <= 0 {
		return nil
	}

	waiting, err := s.contacts.ListUnattended(ctx, run.Now.Add(-threshold), scanLimit)
	if err != nil {
		return fmt.Errorf("list unattended contacts: %w", err)
	}

	for _, c := range waiting {
		if c.HasPersonalReply() {
			continue
		}
		key := "sla:" + c.ID.String()
		if s.cooldown.Contains(key) {
			continue
		}
		s.cooldown.Add(key, struct{}{})

		waited := run.Now.Sub(c.CreatedAt).Round(time.Minute)
		run.NotifyAbout(c.ID, inapp.TypeWarning, "Response SLA breached",
			fmt.Sprintf("%s has been waiting %s for a first response", c.Name, waited))
		run.Publish(events.SLABreached{
			BaseEvent: events.BaseEvent{Timestamp: run.Now},
			ContactID: c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			OwnerID:   c.OwnerID,
			CreatedAt: c.CreatedAt,
			Waiting:   waited,
		})
	}
	return nil
}

// staleReassign hands open leads whose status and owner have not changed
// within StaleAfter to another rep.
// Each contact is handled under its own lock and saved right away.
func (s *ruleSet) staleReassign(ctx context.Context, run *Run) error {
	if !run.Settings.DistributionEnabled || run.Settings.StaleAfter <= 0 {
		return nil
	}

	cutoff := run.Now.Add(-run.Settings.StaleAfter)
	stale, err := s.contacts.ListStale(ctx, cutoff, scanLimit)
	if err != nil {
		return fmt.Errorf("list stale contacts: %w", err)
	}

	for _, candidate := range stale {
		if err := s.reassignStale(ctx, run, candidate, cutoff); err != nil {
			s.log.Error("stale reassignment failed", "contact_id", candidate.ID, "error", err)
		}
	}
	return nil
}

func (s *ruleSet) reassignStale(ctx context.Context, run *Run, candidate *contacts.Contact, cutoff time.Time) error {
	unlock := s.locks.Lock(contactKey(candidate.ID.String()))
	defer unlock()

	c, err := s.contacts.Find(ctx, candidate.ID)
	if err != nil {
		return err
	}
	if c.IsUnassigned() || !c.Status.IsOpen() || !c.LastActivity().Before(cutoff) {
		return nil
	}

	previous := *c.OwnerID
	pool, err := s.salesPool(ctx, &previous)
	if err != nil {
		return err
	}
	member, err := s.strategy.Select(ctx, pool, run.Settings.Method, s.contacts.CountActiveByOwner)
	if errors.Is(err, assignment.ErrEmptyPool) {
		return nil
	}
	if err != nil {
		return err
	}

	previousName := "the previous owner"
	if prev, err := s.team.Find(ctx, previous); err == nil {
		previousName = prev.Name
	}

	idle := run.Now.Sub(c.LastActivity()).Round(time.Hour)
	owner := member.ID
	c.Assign(owner, run.Now)
	c.AddNote(fmt.Sprintf("Reassigned from %s to %s after %s without activity", previousName, member.Name, idle), contacts.AuthorSystem, run.Now)
	c.UpdatedAt = run.Now
	if err := s.contacts.Save(ctx, c); err != nil {
		return err
	}

	run.NotifyAbout(c.ID, inapp.TypeInfo, "Lead reassigned", fmt.Sprintf("%s moved from %s to %s", c.Name, previousName, member.Name))
	run.Publish(events.LeadAssigned{
		BaseEvent:       events.BaseEvent{Timestamp: run.Now},
		ContactID:       c.ID,
		ContactName:     c.Name,
		PreviousOwnerID: &previous,
		NewOwnerID:      owner,
		Method:          string(run.Settings.Method),
	})
	return nil
}
