package automation

import (
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"leadflow_backend/internal/automation/assignment"
	contacts "leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/notification/inapp"
	tasks "leadflow_backend/internal/tasks/domain"
	team "leadflow_backend/internal/team/domain"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
)

type memContacts struct {
	mu    sync.Mutex
	order []uuid.UUID
	byID  map[uuid.UUID]*contacts.Contact
	saves int
}

func newMemContacts() *memContacts {
	return &memContacts{byID: make(map[uuid.UUID]*contacts.Contact)}
}

func (m *memContacts) Find(_ context.Context, id uuid.UUID) (*contacts.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, contacts.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *memContacts) FindByEmailOrPhone(_ context.Context, emailKey, phoneKey string) (*contacts.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		c := m.byID[id]
		if emailKey != "" && contacts.EmailKey(c.Email) == emailKey {
			return c.Clone(), nil
		}
		if phoneKey != "" && phone.MatchKey(c.Phone) == phoneKey {
			return c.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memContacts) Create(_ context.Context, c *contacts.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, c.ID)
	m.byID[c.ID] = c.Clone()
	return nil
}

func (m *memContacts) Save(_ context.Context, c *contacts.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return contacts.ErrNotFound
	}
	m.byID[c.ID] = c.Clone()
	m.saves++
	return nil
}

func (m *memContacts) CountActiveByOwner(_ context.Context, owner uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.byID {
		if c.OwnerID != nil && *c.OwnerID == owner && c.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (m *memContacts) ListUnattended(_ context.Context, before time.Time, limit int) ([]*contacts.Contact, error) {
	return m.filter(limit, func(c *contacts.Contact) bool {
		return c.Status == contacts.StatusNew && c.CreatedAt.Before(before) && !c.HasPersonalReply()
	}), nil
}

func (m *memContacts) ListStale(_ context.Context, before time.Time, limit int) ([]*contacts.Contact, error) {
	return m.filter(limit, func(c *contacts.Contact) bool {
		return !c.IsUnassigned() && c.Status.IsOpen() && c.LastActivity().Before(before)
	}), nil
}

func (m *memContacts) filter(limit int, keep func(*contacts.Contact) bool) []*contacts.Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*contacts.Contact
	for _, id := range m.order {
		if c := m.byID[id]; keep(c) && len(out) < limit {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (m *memContacts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memContacts) put(c *contacts.Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.byID[c.ID] = c.Clone()
}

type memTeam struct {
	members []team.Member
}

func (m *memTeam) ListActiveSalesReps(context.Context) ([]team.Member, error) {
	var out []team.Member
	for _, member := range m.members {
		if member.IsAssignable() {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memTeam) Find(_ context.Context, id uuid.UUID) (team.Member, error) {
	for _, member := range m.members {
		if member.ID == id {
			return member, nil
		}
	}
	return team.Member{}, contacts.ErrNotFound
}

type memTasks struct {
	mu    sync.Mutex
	tasks []*tasks.Task
}

func (m *memTasks) Create(_ context.Context, t *tasks.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks = append(m.tasks, &cp)
	return nil
}

func (m *memTasks) CountPendingForContact(_ context.Context, contactID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.RelatedContactID != nil && *t.RelatedContactID == contactID && t.Status == tasks.StatusPending {
			n++
		}
	}
	return n, nil
}

func (m *memTasks) HasOpenOrDoneTask(_ context.Context, contactID uuid.UUID, taskType, titlePrefix string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.RelatedContactID != nil && *t.RelatedContactID == contactID && t.Type == taskType &&
			strings.HasPrefix(t.Title, titlePrefix) && t.Status != tasks.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTasks) forContact(id uuid.UUID) []*tasks.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*tasks.Task
	for _, t := range m.tasks {
		if t.RelatedContactID != nil && *t.RelatedContactID == id {
			out = append(out, t)
		}
	}
	return out
}

func (m *memTasks) completeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		t.Status = tasks.StatusDone
	}
}

type recNotifier struct {
	mu   sync.Mutex
	sent []inapp.Notification
}

func (r *recNotifier) Notify(_ context.Context, n inapp.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recNotifier) ofType(typ inapp.Type) []inapp.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inapp.Notification
	for _, n := range r.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (r *recNotifier) titled(title string) []inapp.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inapp.Notification
	for _, n := range r.sent {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}

type recBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recBus) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recBus) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventName())
	}
	return out
}

type recRuns struct {
	mu   sync.Mutex
	runs []RunRecord
}

func (r *recRuns) Record(_ context.Context, rec RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rec)
	return nil
}

type harness struct {
	engine   *Engine
	registry *Registry
	contacts *memContacts
	team     *memTeam
	tasks    *memTasks
	notifier *recNotifier
	bus      *recBus
	runs     *recRuns
	clock    *clock.Manual
}

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func defaultTestSettings() Settings {
	return Settings{
		DistributionEnabled: true,
		Method:              assignment.RoundRobin,
		SLAThreshold:        15 * time.Minute,
		StaleAfter:          72 * time.Hour,
		AlertCooldown:       time.Hour,
		WelcomeTemplate:     "Hi {{name}}, thanks for reaching out!",
	}
}

func newHarness(t *testing.T, members ...team.Member) *harness {
	t.Helper()
	return newHarnessWith(t, defaultTestSettings(), members...)
}

func newHarnessWith(t *testing.T, settings Settings, members ...team.Member) *harness {
	t.Helper()
	h := &harness{
		registry: NewRegistry(DefaultRules()),
		contacts: newMemContacts(),
		team:     &memTeam{members: members},
		tasks:    &memTasks{},
		notifier: &recNotifier{},
		bus:      &recBus{},
		runs:     &recRuns{},
		clock:    clock.NewManual(testNow),
	}
	h.engine = NewEngine(EngineDeps{
		Registry: h.registry,
		Settings: NewSettingsStore(settings, nil),
		Contacts: h.contacts,
		Tasks:    h.tasks,
		Team:     h.team,
		Notifier: h.notifier,
		Bus:      h.bus,
		Runs:     h.runs,
		Clock:    h.clock,
		Log:      logger.NewWithWriter("test", io.Discard),
	})
	return h
}

func salesRep(name string) team.Member {
	return team.Member{ID: uuid.New(), Name: name, Role: team.RoleSales, Status: team.StatusActive}
}

func hasNote(c *contacts.Contact, body string) int {
	n := 0
	for _, note := range c.Notes {
		if note.Body == body {
			n++
		}
	}
	return n
}

func containsName(names []string, name string) bool {
	return slices.Contains(names, name)
}
