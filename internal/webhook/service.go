package webhook

import (
	"context"
	"strings"

	"leadflow_backend/internal/automation"
	contacts "leadflow_backend/internal/contacts/domain"
	contactsvc "leadflow_backend/internal/contacts/service"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultCaptureSource = "webhook"
	captureNoteAuthor    = "Lead capture"
)

// LeadCreator is the automation entry point used for captured leads.
// Satisfied by automation.Engine.
type LeadCreator interface {
	CreateLead(ctx context.Context, in automation.NewLead) (*contacts.Contact, automation.Result, error)
	AppendNote(ctx context.Context, contactID uuid.UUID, body, author string) (*contacts.Contact, error)
}

// Submission represents an inbound lead capture request.
type Submission struct {
	Fields       map[string]string // all form fields as key-value
	SourceDomain string            // origin domain of the form
}

// CaptureResponse is returned to the caller on success.
type CaptureResponse struct {
	ContactID uuid.UUID         `json:"contactId"`
	OwnerID   *uuid.UUID        `json:"ownerId,omitempty"`
	Status    contacts.Status   `json:"status"`
	RunID     string            `json:"runId"`
	RulesRun  []string          `json:"rulesRun"`
	Extracted map[string]string `json:"extractedFields"`
	Message   string            `json:"message"`
}

// Service turns inbound submissions into leads through the same automation
// path as the UI.
type Service struct {
	leads LeadCreator
	log   *logger.Logger
}

// NewService creates a new webhook service.
func NewService(leads LeadCreator, log *logger.Logger) *Service {
	return &Service{leads: leads, log: log}
}

// Capture extracts the lead from sub and creates it. Submissions without a
// name or without any contact method are rejected.
func (s *Service) Capture(ctx context.Context, sub Submission) (CaptureResponse, error) {
	extracted := ExtractFields(sub.Fields)
	if extracted.IsIncomplete() {
		return CaptureResponse{}, apperr.Validation("a name and an email or phone are required").
			WithDetails(buildExtractedMap(extracted))
	}

	source := extracted.Source
	if source == "" {
		source = defaultCaptureSource
	}

	c, result, err := s.leads.CreateLead(ctx, automation.NewLead{
		Name:       sanitize.Text(extracted.Name()),
		Email:      extracted.Email,
		Phone:      extracted.Phone,
		Company:    sanitize.Text(extracted.Company),
		ValueCents: contactsvc.ToCents(extracted.Value),
		Source:     source,
		Tags:       extracted.Tags,
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.log.Info("webhook: duplicate lead rejected", "domain", sub.SourceDomain, "source", source)
		} else {
			s.log.Error("webhook: failed to create lead", "error", err, "domain", sub.SourceDomain)
		}
		return CaptureResponse{}, err
	}

	if msg := sanitize.Text(extracted.Message); msg != "" {
		// Non-fatal: the lead already exists.
		if _, err := s.leads.AppendNote(ctx, c.ID, msg, captureNoteAuthor); err != nil {
			s.log.Error("webhook: failed to store submission message", "error", err, "contactId", c.ID)
		}
	}

	s.log.Info("webhook: lead captured", "contactId", c.ID, "source", source, "domain", sub.SourceDomain, "runId", result.RunID)

	return CaptureResponse{
		ContactID: c.ID,
		OwnerID:   c.OwnerID,
		Status:    c.Status,
		RunID:     result.RunID,
		RulesRun:  result.RulesRun,
		Extracted: buildExtractedMap(extracted),
		Message:   "Lead received",
	}, nil
}

func buildExtractedMap(extracted ExtractedFields) map[string]string {
	m := make(map[string]string)
	if name := extracted.Name(); name != "" {
		m["name"] = name
	}
	if extracted.Email != "" {
		m["email"] = extracted.Email
	}
	if extracted.Phone != "" {
		m["phone"] = extracted.Phone
	}
	if extracted.Company != "" {
		m["company"] = extracted.Company
	}
	if extracted.Source != "" {
		m["source"] = extracted.Source
	}
	if len(extracted.Tags) > 0 {
		m["tags"] = strings.Join(extracted.Tags, ",")
	}
	return m
}
