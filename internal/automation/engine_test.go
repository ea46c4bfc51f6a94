package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/notification/inapp"
	tasks "leadflow_backend/internal/tasks/domain"
	"leadflow_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLeadNormalizesNameAndKeepsPhone(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "john  doe", Phone: "0031 6-1234 5678"})

	require.NoError(t, err)
	assert.Equal(t, "John  Doe", c.Name)
	assert.Equal(t, "0031 6-1234 5678", c.Phone)

	stored, err := h.contacts.Find(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "John  Doe", stored.Name)
}

func TestCreateLeadRejectsDuplicateEmail(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	existing, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Ann", Email: "a@b.com"})
	require.NoError(t, err)

	_, _, err = h.engine.CreateLead(ctx, NewLead{Name: "Other", Email: "A@B.com "})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, existing.ID, dup.ExistingID)
	assert.Equal(t, "email", dup.MatchedOn)
	assert.Equal(t, 1, h.contacts.count())

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)

	errs := h.notifier.ofType(inapp.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Duplicate lead", errs[0].Title)
	require.NotNil(t, errs[0].LinkTo)
	assert.Equal(t, existing.ID, *errs[0].LinkTo)
}

func TestCreateLeadRejectsDuplicatePhoneInOtherFormat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Ann", Phone: "+31612345678"})
	require.NoError(t, err)

	_, _, err = h.engine.CreateLead(ctx, NewLead{Name: "Bob", Phone: "06 12345678"})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone", dup.MatchedOn)
	assert.Equal(t, 1, h.contacts.count())
}

func TestCreateLeadAllowsDuplicatesWhenCheckDisabled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleDuplicateCheck, false)
	require.NoError(t, err)

	_, _, err = h.engine.CreateLead(ctx, NewLead{Name: "Ann", Email: "a@b.com"})
	require.NoError(t, err)
	_, _, err = h.engine.CreateLead(ctx, NewLead{Name: "Ann", Email: "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, 2, h.contacts.count())
}

func TestCreateLeadConcurrentDuplicatesAdmitOne(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = h.engine.CreateLead(context.Background(), NewLead{Name: "Same", Email: "same@example.com"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		var dup *DuplicateError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &dup):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, h.contacts.count())
}

func TestCreateLeadAssignsRoundRobin(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()

	var owners []string
	for _, name := range []string{"L1", "L2", "L3"} {
		c, _, err := h.engine.CreateLead(ctx, NewLead{Name: name})
		require.NoError(t, err)
		require.NotNil(t, c.OwnerID)
		if *c.OwnerID == anna.ID {
			owners = append(owners, "Anna")
		} else {
			owners = append(owners, "Bert")
		}
	}

	assert.Equal(t, []string{"Anna", "Bert", "Anna"}, owners)
	assert.Len(t, h.notifier.ofType(inapp.TypeSuccess), 3)
}

func TestCreateLeadWritesAssignmentNote(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Lead"})

	require.NoError(t, err)
	assert.Equal(t, 1, hasNote(c, "Auto-assigned to Anna via Round Robin"))
}

func TestReplayDoesNotReassignOwnedContact(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)

	_, err = h.engine.Replay(ctx, c.ID, OnLeadCreate, nil)
	require.NoError(t, err)

	stored, err := h.contacts.Find(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OwnerID)
	assert.Equal(t, anna.ID, *stored.OwnerID)
	assert.Equal(t, 1, hasNote(stored, "Auto-assigned to Anna via Round Robin"))
	assert.Len(t, h.tasks.forContact(c.ID), 1)
	assert.Len(t, stored.History, 1)
}

func TestAssignmentInactiveLeavesContactUnassigned(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleAssignment, false)
	require.NoError(t, err)

	c, res, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})

	require.NoError(t, err)
	assert.True(t, c.IsUnassigned())
	assert.NotContains(t, res.RulesRun, RuleAssignment)
}

func TestAssignmentSkippedWhenDistributionDisabled(t *testing.T) {
	settings := defaultTestSettings()
	settings.DistributionEnabled = false
	h := newHarnessWith(t, settings, salesRep("Anna"))

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Lead"})

	require.NoError(t, err)
	assert.True(t, c.IsUnassigned())
}

func TestAssignmentWithEmptyPoolWarns(t *testing.T) {
	support := salesRep("Sam")
	support.Role = "Support"
	h := newHarness(t, support)

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Lead"})

	require.NoError(t, err)
	assert.True(t, c.IsUnassigned())
	assert.Equal(t, 1, h.contacts.count())
	warnings := h.notifier.ofType(inapp.TypeWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Assignment skipped", warnings[0].Title)
}

func TestSpeedToLeadCreatesMessageAndTask(t *testing.T) {
	anna := salesRep("Anna")
	h := newHarness(t, anna)

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "jane", Phone: "+31612345678"})
	require.NoError(t, err)

	require.Len(t, c.History, 1)
	assert.Equal(t, contacts.ChannelWhatsApp, c.History[0].Channel)
	assert.Equal(t, contacts.SenderAgent, c.History[0].Sender)
	assert.Equal(t, "Hi Jane, thanks for reaching out!", c.History[0].Body)

	created := h.tasks.forContact(c.ID)
	require.Len(t, created, 1)
	task := created[0]
	assert.Equal(t, "First contact: Jane", task.Title)
	assert.Equal(t, tasks.PriorityHigh, task.Priority)
	assert.Equal(t, tasks.TypeCall, task.Type)
	assert.Equal(t, tasks.Day(testNow), task.DueDate)
	require.NotNil(t, task.AssignedTo)
	assert.Equal(t, anna.ID, *task.AssignedTo)
	assert.True(t, containsName(h.bus.names(), "contacts.welcome.queued"))
}

func TestSpeedToLeadFallsBackToActor(t *testing.T) {
	h := newHarness(t)
	actor := salesRep("Manager").ID

	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Lead", ActorID: &actor})
	require.NoError(t, err)

	created := h.tasks.forContact(c.ID)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].AssignedTo)
	assert.Equal(t, actor, *created[0].AssignedTo)
}

func TestTaskGatingVetoesMoveWithPendingTask(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead", Email: "lead@example.com"})
	require.NoError(t, err)

	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusQualified})

	var veto *GatingVeto
	require.ErrorAs(t, err, &veto)
	assert.Equal(t, RuleTaskGating, veto.RuleID)
	assert.Equal(t, 1, veto.Pending)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindUnprocessable, appErr.Kind)

	stored, err := h.contacts.Find(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, contacts.StatusNew, stored.Status)

	warnings := h.notifier.ofType(inapp.TypeWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Move blocked", warnings[0].Title)
	assert.Contains(t, warnings[0].Message, "1 pending task")
}

func TestTaskGatingAllowsLost(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)

	moved, _, err := h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusLost, LostReason: "Budget too high"})

	require.NoError(t, err)
	assert.Equal(t, contacts.StatusLost, moved.Status)
	require.NotNil(t, moved.LostReason)
	assert.Equal(t, "Budget too high", *moved.LostReason)
	assert.Contains(t, moved.Tags, "lost:budget-too-high")
	assert.True(t, containsName(h.bus.names(), "contacts.deal.lost"))
}

func TestDataQualityRequiresEmailForQualified(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead", Phone: "+31612345678"})
	require.NoError(t, err)
	h.tasks.completeAll()

	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusQualified})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "email", invalid.Field)
	errs := h.notifier.ofType(inapp.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Missing information", errs[0].Title)
}

func TestWonRequiresPositiveValue(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	actor := salesRep("Closer").ID
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead", Email: "lead@example.com"})
	require.NoError(t, err)
	h.tasks.completeAll()

	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusWon, ActorID: &actor})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "value", invalid.Field)
	stored, _ := h.contacts.Find(ctx, c.ID)
	assert.Equal(t, contacts.StatusNew, stored.Status)
	assert.Len(t, h.notifier.ofType(inapp.TypeError), 1)

	stored.ValueCents = 500_00
	h.contacts.put(stored)

	moved, results, err := h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusWon, ActorID: &actor})

	require.NoError(t, err)
	assert.Equal(t, contacts.StatusWon, moved.Status)
	require.Len(t, results, 2)
	assert.Equal(t, OnDealWon, results[1].Trigger)
	assert.True(t, containsName(h.bus.names(), "contacts.deal.won"))

	var onboarding *tasks.Task
	for _, task := range h.tasks.forContact(c.ID) {
		if task.Title == "Onboarding: Lead" {
			onboarding = task
		}
	}
	require.NotNil(t, onboarding)
	assert.Equal(t, tasks.TypeMeeting, onboarding.Type)
	assert.Equal(t, tasks.Day(testNow).AddDate(0, 0, 1), onboarding.DueDate)
	require.NotNil(t, onboarding.AssignedTo)
	assert.Equal(t, actor, *onboarding.AssignedTo)

	var announced bool
	for _, n := range h.notifier.ofType(inapp.TypeSuccess) {
		if n.Title == "Deal won" {
			announced = true
			assert.Contains(t, n.Message, "500.00")
		}
	}
	assert.True(t, announced)
}

func TestReplayDealWonKeepsSingleOnboardingTask(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead", Email: "lead@example.com", ValueCents: 250_00})
	require.NoError(t, err)
	h.tasks.completeAll()
	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusWon})
	require.NoError(t, err)

	res, err := h.engine.Replay(ctx, c.ID, OnDealWon, nil)
	require.NoError(t, err)
	assert.Contains(t, res.RulesRun, RuleOnboarding)
	assert.Empty(t, res.RulesFailed)

	var onboarding int
	for _, task := range h.tasks.forContact(c.ID) {
		if task.Title == "Onboarding: Lead" {
			onboarding++
		}
	}
	assert.Equal(t, 1, onboarding)
	assert.Len(t, h.notifier.titled("Onboarding scheduled"), 1)
	assert.Len(t, h.notifier.titled("Deal won"), 2)
}

func TestReplayDealWonRecreatesCancelledOnboarding(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead", Email: "lead@example.com", ValueCents: 250_00})
	require.NoError(t, err)
	h.tasks.completeAll()
	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusWon})
	require.NoError(t, err)
	for _, task := range h.tasks.forContact(c.ID) {
		task.Status = tasks.StatusCancelled
	}

	_, err = h.engine.Replay(ctx, c.ID, OnDealWon, nil)
	require.NoError(t, err)

	var pending int
	for _, task := range h.tasks.forContact(c.ID) {
		if task.Title == "Onboarding: Lead" && task.Status == tasks.StatusPending {
			pending++
		}
	}
	assert.Equal(t, 1, pending)
}

func TestTerminalStatusCannotMove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)
	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusLost})
	require.NoError(t, err)

	_, _, err = h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusNew})

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestMoveToSameStatusIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)

	moved, results, err := h.engine.MoveStatus(ctx, StatusMove{ContactID: c.ID, To: contacts.StatusNew})

	require.NoError(t, err)
	assert.Equal(t, contacts.StatusNew, moved.Status)
	assert.Empty(t, results)
}

func TestMessageSentAdvancesNewLead(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)

	moved, _, err := h.engine.RecordMessage(ctx, OutboundMessage{ContactID: c.ID, Channel: contacts.ChannelEmail, Body: "Hello"})

	require.NoError(t, err)
	assert.Equal(t, contacts.StatusContacted, moved.Status)
	assert.True(t, containsName(h.bus.names(), "contacts.status.changed"))
}

func TestMessageSentLeavesLaterStagesAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)
	stored, _ := h.contacts.Find(ctx, c.ID)
	stored.Status = contacts.StatusQualified
	h.contacts.put(stored)

	moved, _, err := h.engine.RecordMessage(ctx, OutboundMessage{ContactID: c.ID, Body: "Checking in"})

	require.NoError(t, err)
	assert.Equal(t, contacts.StatusQualified, moved.Status)
}

func TestInboundMessageDoesNotDispatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Lead"})
	require.NoError(t, err)

	moved, result, err := h.engine.RecordMessage(ctx, OutboundMessage{ContactID: c.ID, Sender: contacts.SenderContact, Body: "Hi!"})

	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, contacts.StatusNew, moved.Status)
	assert.Len(t, moved.History, 2)
}

func TestScheduledCheckAlertsOncePerCooldown(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	_, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Waiting"})
	require.NoError(t, err)

	h.clock.Advance(20 * time.Minute)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)

	var breaches int
	for _, n := range h.notifier.ofType(inapp.TypeWarning) {
		if n.Title == "Response SLA breached" {
			breaches++
		}
	}
	assert.Equal(t, 1, breaches)
}

func TestScheduledCheckReassignsStaleLead(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleStaleReassign, true)
	require.NoError(t, err)
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Quiet"})
	require.NoError(t, err)
	require.Equal(t, anna.ID, *c.OwnerID)

	h.clock.Advance(73 * time.Hour)
	res, err := h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)
	assert.Contains(t, res.RulesRun, RuleStaleReassign)

	stored, err := h.contacts.Find(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OwnerID)
	assert.Equal(t, bert.ID, *stored.OwnerID)
	assert.Equal(t, 1, hasNote(stored, "Reassigned from Anna to Bert after 73h0m0s without activity"))
}

func TestStaleReassignIsOffByDefault(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Quiet"})
	require.NoError(t, err)

	h.clock.Advance(100 * time.Hour)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)

	stored, _ := h.contacts.Find(ctx, c.ID)
	assert.Equal(t, anna.ID, *stored.OwnerID)
}

func TestScheduledCheckSkipsLeadsWithPersonalReply(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleAutoAdvance, false)
	require.NoError(t, err)
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Answered"})
	require.NoError(t, err)
	_, _, err = h.engine.RecordMessage(ctx, OutboundMessage{ContactID: c.ID, Body: "Calling you this afternoon"})
	require.NoError(t, err)

	h.clock.Advance(20 * time.Minute)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)

	stored, _ := h.contacts.Find(ctx, c.ID)
	assert.Equal(t, contacts.StatusNew, stored.Status)
	for _, n := range h.notifier.ofType(inapp.TypeWarning) {
		assert.NotEqual(t, "Response SLA breached", n.Title)
	}
}

func TestAutomatedWelcomeDoesNotCountAsReply(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))
	c, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Waiting", Phone: "+31612345678"})
	require.NoError(t, err)

	require.Len(t, c.History, 1)
	assert.True(t, c.History[0].Automated)
	assert.True(t, c.HasOutboundMessage())
	assert.False(t, c.HasPersonalReply())
}

func TestStaleReassignLooksAtStatusNotEdits(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleStaleReassign, true)
	require.NoError(t, err)
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Edited"})
	require.NoError(t, err)

	h.clock.Advance(70 * time.Hour)
	stored, _ := h.contacts.Find(ctx, c.ID)
	stored.Company = "Acme"
	stored.UpdatedAt = h.clock.Now()
	h.contacts.put(stored)

	h.clock.Advance(3 * time.Hour)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)

	stored, _ = h.contacts.Find(ctx, c.ID)
	assert.Equal(t, bert.ID, *stored.OwnerID)
	assert.Equal(t, 1, hasNote(stored, "Reassigned from Anna to Bert after 73h0m0s without activity"))
}

func TestStaleReassignWaitsAfterReassignment(t *testing.T) {
	anna, bert := salesRep("Anna"), salesRep("Bert")
	h := newHarness(t, anna, bert)
	ctx := context.Background()
	_, err := h.registry.SetActive(ctx, RuleStaleReassign, true)
	require.NoError(t, err)
	c, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Quiet"})
	require.NoError(t, err)

	h.clock.Advance(73 * time.Hour)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.engine.RunScheduledCheck(ctx)
	require.NoError(t, err)

	stored, _ := h.contacts.Find(ctx, c.ID)
	assert.Equal(t, bert.ID, *stored.OwnerID)
	require.NotNil(t, stored.AssignedAt)
	assert.Equal(t, testNow.Add(73*time.Hour), stored.AssignedAt.UTC())
	assert.Len(t, h.notifier.titled("Lead reassigned"), 1)
}

func TestRunsAreRecorded(t *testing.T) {
	h := newHarness(t, salesRep("Anna"))

	c, res, err := h.engine.CreateLead(context.Background(), NewLead{Name: "Lead"})
	require.NoError(t, err)

	require.Len(t, h.runs.runs, 1)
	rec := h.runs.runs[0]
	assert.Equal(t, res.RunID, rec.ID)
	assert.Len(t, rec.ID, 26)
	assert.Equal(t, OnLeadCreate, rec.Trigger)
	require.NotNil(t, rec.ContactID)
	assert.Equal(t, c.ID, *rec.ContactID)
	assert.Equal(t, []string{RuleNormalize, RuleAssignment, RuleSpeedToLead}, rec.RulesRun)
}

func TestCreateLeadRequiresName(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.engine.CreateLead(context.Background(), NewLead{Name: "   "})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, h.contacts.count())
}

func TestUpdateDetailsRejectsEmailOfAnotherContact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	bob, _, err := h.engine.CreateLead(ctx, NewLead{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	taken := "ANN@example.com"
	_, err = h.engine.UpdateDetails(ctx, DetailsUpdate{ContactID: bob.ID, Email: &taken})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)

	same := "bob@example.com"
	company := "Acme"
	value := int64(1250_00)
	updated, err := h.engine.UpdateDetails(ctx, DetailsUpdate{ContactID: bob.ID, Email: &same, Company: &company, ValueCents: &value})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, int64(1250_00), updated.ValueCents)
}
