package service

import (
	"context"
	"math"

	"github.com/google/uuid"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/contacts/domain"
	"leadflow_backend/internal/contacts/repository"
	"leadflow_backend/internal/contacts/transport"
	"leadflow_backend/platform/sanitize"
)

// Automation is the part of the rule engine the contact API drives.
type Automation interface {
	CreateLead(ctx context.Context, in automation.NewLead) (*domain.Contact, automation.Result, error)
	UpdateDetails(ctx context.Context, in automation.DetailsUpdate) (*domain.Contact, error)
	CanTransition(ctx context.Context, contactID uuid.UUID, to domain.Status) (automation.Decision, error)
	MoveStatus(ctx context.Context, move automation.StatusMove) (*domain.Contact, []automation.Result, error)
	RecordMessage(ctx context.Context, in automation.OutboundMessage) (*domain.Contact, *automation.Result, error)
	AppendNote(ctx context.Context, contactID uuid.UUID, body, author string) (*domain.Contact, error)
}

// Reader is the read side of the contact store.
type Reader interface {
	Find(ctx context.Context, id uuid.UUID) (*domain.Contact, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
}

// Service provides the contact API. Every write goes through the rule engine.
type Service struct {
	engine Automation
	repo   Reader
}

func New(engine Automation, repo Reader) *Service {
	return &Service{engine: engine, repo: repo}
}

// Create enters a lead manually. source defaults to "manual".
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateContactRequest) (transport.ContactWithAutomationResponse, error) {
	source := req.Source
	if source == "" {
		source = "manual"
	}
	c, result, err := s.engine.CreateLead(ctx, automation.NewLead{
		Name:       sanitize.Text(req.Name),
		Email:      req.Email,
		Phone:      req.Phone,
		Company:    sanitize.Text(req.Company),
		ValueCents: ToCents(req.Value),
		Source:     source,
		Tags:       req.Tags,
		OwnerID:    req.OwnerID,
		ActorID:    &actorID,
	})
	if err != nil {
		return transport.ContactWithAutomationResponse{}, err
	}
	return withAutomation(c, result), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ContactResponse, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) List(ctx context.Context, req transport.ListContactsRequest) (transport.ContactListResponse, error) {
	params := repository.ListParams{
		Status:   req.Status,
		Search:   req.Search,
		Tag:      req.Tag,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.OwnerID != "" {
		owner, err := uuid.Parse(req.OwnerID)
		if err == nil {
			params.OwnerID = &owner
		}
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ContactListResponse{}, err
	}

	items := make([]transport.ContactResponse, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, ToResponse(c))
	}
	totalPages := 0
	if result.PageSize > 0 {
		totalPages = (result.Total + result.PageSize - 1) / result.PageSize
	}
	return transport.ContactListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateContactRequest) (transport.ContactResponse, error) {
	in := automation.DetailsUpdate{
		ContactID: id,
		Name:      sanitize.TextPtr(req.Name),
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   sanitize.TextPtr(req.Company),
		Tags:      req.Tags,
	}
	if req.Value != nil {
		cents := ToCents(*req.Value)
		in.ValueCents = &cents
	}
	c, err := s.engine.UpdateDetails(ctx, in)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return ToResponse(c), nil
}

func (s *Service) CheckTransition(ctx context.Context, id uuid.UUID, to string) (transport.TransitionCheckResponse, error) {
	d, err := s.engine.CanTransition(ctx, id, domain.Status(to))
	if err != nil {
		return transport.TransitionCheckResponse{}, err
	}
	return transport.TransitionCheckResponse{Allowed: d.Allowed, RuleID: d.RuleID, Reason: d.Reason}, nil
}

func (s *Service) MoveStatus(ctx context.Context, actorID, id uuid.UUID, req transport.MoveStatusRequest) (transport.ContactWithAutomationResponse, error) {
	c, results, err := s.engine.MoveStatus(ctx, automation.StatusMove{
		ContactID:  id,
		To:         domain.Status(req.Status),
		LostReason: sanitize.Text(req.LostReason),
		ActorID:    &actorID,
	})
	if err != nil {
		return transport.ContactWithAutomationResponse{}, err
	}
	resp := withAutomation(c)
	for _, r := range results {
		resp.Automation = append(resp.Automation, toSummary(r))
	}
	return resp, nil
}

func (s *Service) AddMessage(ctx context.Context, actorID, id uuid.UUID, req transport.MessageRequest) (transport.ContactWithAutomationResponse, error) {
	c, result, err := s.engine.RecordMessage(ctx, automation.OutboundMessage{
		ContactID: id,
		Channel:   req.Channel,
		Sender:    req.Sender,
		Body:      sanitize.Text(req.Body),
		ActorID:   &actorID,
	})
	if err != nil {
		return transport.ContactWithAutomationResponse{}, err
	}
	if result == nil {
		return withAutomation(c), nil
	}
	return withAutomation(c, *result), nil
}

func (s *Service) AddNote(ctx context.Context, actorID, id uuid.UUID, req transport.NoteRequest) (transport.ContactResponse, error) {
	c, err := s.engine.AppendNote(ctx, id, sanitize.Text(req.Body), actorID.String())
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return ToResponse(c), nil
}

// ToCents converts a currency amount to cents, rounding half away from zero.
func ToCents(value float64) int64 {
	return int64(math.Round(value * 100))
}

func withAutomation(c *domain.Contact, results ...automation.Result) transport.ContactWithAutomationResponse {
	resp := transport.ContactWithAutomationResponse{
		Contact:    ToResponse(c),
		Automation: make([]transport.AutomationSummary, 0, len(results)),
	}
	for _, r := range results {
		resp.Automation = append(resp.Automation, toSummary(r))
	}
	return resp
}

func toSummary(r automation.Result) transport.AutomationSummary {
	return transport.AutomationSummary{
		RunID:         r.RunID,
		Trigger:       string(r.Trigger),
		RulesRun:      nonNil(r.RulesRun),
		RulesFailed:   nonNil(r.RulesFailed),
		Notifications: r.Notifications,
		TasksCreated:  r.TasksCreated,
	}
}

// ToResponse maps a contact to its API representation.
func ToResponse(c *domain.Contact) transport.ContactResponse {
	notes := make([]transport.NoteResponse, 0, len(c.Notes))
	for _, n := range c.Notes {
		notes = append(notes, transport.NoteResponse{ID: n.ID, Body: n.Body, Author: n.Author, CreatedAt: n.CreatedAt})
	}
	history := make([]transport.MessageResponse, 0, len(c.History))
	for _, m := range c.History {
		history = append(history, transport.MessageResponse{ID: m.ID, Channel: m.Channel, Sender: m.Sender, Body: m.Body, Automated: m.Automated, CreatedAt: m.CreatedAt})
	}

	return transport.ContactResponse{
		ID:              c.ID,
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		Company:         c.Company,
		Status:          string(c.Status),
		OwnerID:         c.OwnerID,
		Value:           float64(c.ValueCents) / 100,
		ValueCents:      c.ValueCents,
		Notes:           notes,
		History:         history,
		Tags:            nonNil(c.Tags),
		LostReason:      c.LostReason,
		Source:          c.Source,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		StatusChangedAt: c.StatusChangedAt,
		AssignedAt:      c.AssignedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
