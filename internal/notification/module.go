// Package notification delivers the side effects of domain events: in-app
// feed entries, server-sent events, alert e-mails and WhatsApp messages.
// Domain modules publish events and never talk to a provider directly.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/email"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	notifhandler "leadflow_backend/internal/notification/handler"
	"leadflow_backend/internal/notification/inapp"
	"leadflow_backend/internal/notification/sse"
	team "leadflow_backend/internal/team/domain"
	teamrepo "leadflow_backend/internal/team/repository"
	"leadflow_backend/platform/config"
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// MemberDirectory resolves the team members that receive e-mails.
type MemberDirectory interface {
	Find(ctx context.Context, id uuid.UUID) (team.Member, error)
	List(ctx context.Context, params teamrepo.ListParams) ([]team.Member, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender       email.Sender
	cfg          config.NotificationConfig
	log          *logger.Logger
	sse          *sse.Service
	whatsapp     WhatsAppSender
	members      MemberDirectory
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates the notification module backed by the notifications table.
func New(pool *pgxpool.Pool, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return NewWithStore(inapp.NewRepository(pool), sender, cfg, log)
}

// NewWithStore creates the module on top of an arbitrary feed store.
func NewWithStore(store inapp.Store, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	stream := sse.New()
	stream.SetLogger(log)

	inAppService := inapp.NewService(store, log)
	inAppService.SetSSE(stream)

	return &Module{
		sender:       sender,
		cfg:          cfg,
		log:          log,
		sse:          stream,
		inAppService: inAppService,
		inAppHandler: notifhandler.NewHTTPHandler(inAppService),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the feed and the live event stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	group.GET("/stream", m.sse.Handler())
	m.inAppHandler.RegisterRoutes(group)
}

// InAppService returns the feed service automation writes to.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// SSE returns the live event stream.
func (m *Module) SSE() *sse.Service { return m.sse }

// SetWhatsAppSender enables welcome message delivery. Without it queued
// welcome messages are reported as undelivered.
func (m *Module) SetWhatsAppSender(sender WhatsAppSender) { m.whatsapp = sender }

// SetMemberDirectory enables e-mails to owners and managers.
func (m *Module) SetMemberDirectory(members MemberDirectory) { m.members = members }

// RegisterHandlers subscribes the module to the events it delivers.
func (m *Module) RegisterHandlers(bus platformevents.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.ContactStatusChanged{}.EventName(), m)
	bus.Subscribe(events.DealWon{}.EventName(), m)
	bus.Subscribe(events.SLABreached{}.EventName(), m)
	bus.Subscribe(events.WelcomeMessageQueued{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		m.broadcastContact(e.ContactID, "New lead: "+e.Name, e)
		return nil
	case events.ContactStatusChanged:
		m.broadcastContact(e.ContactID, fmt.Sprintf("Moved from %s to %s", e.From, e.To), e)
		return nil
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.DealWon:
		return m.handleDealWon(ctx, e)
	case events.SLABreached:
		return m.handleSLABreached(ctx, e)
	case events.WelcomeMessageQueued:
		return m.handleWelcomeMessage(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) broadcastContact(contactID uuid.UUID, message string, data any) {
	m.sse.Broadcast(sse.Event{
		Type:      sse.EventContactUpdate,
		ContactID: contactID,
		Message:   message,
		Data:      data,
	})
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	m.broadcastContact(e.ContactID, "Lead assigned", e)

	if m.members == nil {
		return nil
	}
	owner, err := m.members.Find(ctx, e.NewOwnerID)
	if err != nil {
		m.log.Warn("lead assigned email skipped, owner not found", "contactId", e.ContactID, "ownerId", e.NewOwnerID, "error", err)
		return nil
	}
	if strings.TrimSpace(owner.Email) == "" {
		return nil
	}

	var previous string
	if e.PreviousOwnerID != nil {
		if prev, err := m.members.Find(ctx, *e.PreviousOwnerID); err == nil {
			previous = prev.Name
		}
	}

	return m.sender.SendLeadAssigned(ctx, owner.Email, email.LeadAssigned{
		AgentName:     owner.Name,
		ContactName:   e.ContactName,
		PreviousOwner: previous,
		ContactURL:    m.contactURL(e.ContactID),
	})
}

func (m *Module) handleDealWon(ctx context.Context, e events.DealWon) error {
	managers := m.activeManagers(ctx)
	if len(managers) == 0 {
		return nil
	}

	won := email.DealWon{
		ContactName: e.Name,
		Value:       automation.FormatCents(e.ValueCents),
		ContactURL:  m.contactURL(e.ContactID),
	}
	for _, manager := range managers {
		if err := m.sender.SendDealWon(ctx, manager.Email, won); err != nil {
			m.log.Error("failed to send deal won email", "contactId", e.ContactID, "to", manager.Email, "error", err)
		}
	}
	return nil
}

// handleSLABreached alerts the owner of the waiting lead. Unowned leads go to
// every active manager instead.
func (m *Module) handleSLABreached(ctx context.Context, e events.SLABreached) error {
	alert := email.SLAAlert{
		ContactName: e.Name,
		Email:       e.Email,
		Phone:       e.Phone,
		Waiting:     formatWaiting(e.Waiting),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC1123),
		ContactURL:  m.contactURL(e.ContactID),
	}

	var recipients []team.Member
	if e.OwnerID != nil && m.members != nil {
		if owner, err := m.members.Find(ctx, *e.OwnerID); err == nil && owner.Email != "" {
			recipients = append(recipients, owner)
		}
	}
	if len(recipients) == 0 {
		recipients = m.activeManagers(ctx)
	}

	for _, r := range recipients {
		if err := m.sender.SendSLAAlert(ctx, r.Email, alert); err != nil {
			m.log.Error("failed to send sla alert email", "contactId", e.ContactID, "to", r.Email, "error", err)
		}
	}
	return nil
}

func (m *Module) handleWelcomeMessage(ctx context.Context, e events.WelcomeMessageQueued) error {
	if m.whatsapp == nil {
		m.log.Info("whatsapp not configured, welcome message not sent", "contactId", e.ContactID)
		m.welcomeFailed(ctx, e.ContactID)
		return nil
	}

	if err := m.whatsapp.SendMessage(ctx, e.Phone, e.Body); err != nil {
		m.log.Warn("welcome message delivery failed", "contactId", e.ContactID, "error", err)
		m.welcomeFailed(ctx, e.ContactID)
		return nil
	}

	m.log.Info("welcome message sent", "contactId", e.ContactID)
	return nil
}

func (m *Module) welcomeFailed(ctx context.Context, contactID uuid.UUID) {
	link := contactID
	m.inAppService.Notify(ctx, inapp.Notification{
		Title:   "Welcome message not delivered",
		Message: "The automated WhatsApp welcome could not be sent. Reach out manually.",
		Type:    inapp.TypeWarning,
		LinkTo:  &link,
	})
}

func (m *Module) activeManagers(ctx context.Context) []team.Member {
	if m.members == nil {
		return nil
	}
	members, err := m.members.List(ctx, teamrepo.ListParams{Role: team.RoleManager, Status: team.StatusActive})
	if err != nil {
		m.log.Error("failed to list managers", "error", err)
		return nil
	}
	out := members[:0]
	for _, member := range members {
		if strings.TrimSpace(member.Email) != "" {
			out = append(out, member)
		}
	}
	return out
}

func (m *Module) contactURL(contactID uuid.UUID) string {
	base := ""
	if m.cfg != nil {
		base = strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	}
	return base + "/contacts/" + contactID.String()
}

func formatWaiting(d time.Duration) string {
	d = d.Round(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}
