package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/tasks/domain"
	"leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tasks/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/sanitize"
)

// Store is the task persistence the service needs.
type Store interface {
	Create(ctx context.Context, t *domain.Task) error
	Find(ctx context.Context, id uuid.UUID) (domain.Task, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Task, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Task, error)
}

// Service manages follow-up tasks. Completing the pending tasks of a
// contact is what lifts the task gate on pipeline moves.
type Service struct {
	repo  Store
	clock clock.Clock
}

func New(repo Store, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{repo: repo, clock: clk}
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.CreateTaskRequest) (transport.TaskResponse, error) {
	due, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		return transport.TaskResponse{}, apperr.Validation("dueDate must be YYYY-MM-DD")
	}
	priority := domain.PriorityMedium
	if req.Priority != "" {
		priority = domain.Priority(req.Priority)
	}
	assignee := req.AssignedTo
	if assignee == nil {
		assignee = &actorID
	}

	now := s.clock.Now().UTC()
	t := &domain.Task{
		ID:               uuid.New(),
		Title:            sanitize.Text(req.Title),
		Type:             req.Type,
		DueDate:          domain.Day(due),
		Status:           domain.StatusPending,
		Priority:         priority,
		AssignedTo:       assignee,
		RelatedContactID: req.RelatedContactID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return transport.TaskResponse{}, err
	}
	return ToResponse(*t), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.TaskResponse, error) {
	t, err := s.repo.Find(ctx, id)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return ToResponse(t), nil
}

func (s *Service) List(ctx context.Context, req transport.ListTasksRequest) (transport.TaskListResponse, error) {
	params := repository.ListParams{Status: domain.Status(req.Status), Limit: req.Limit}
	if id, err := uuid.Parse(req.ContactID); err == nil {
		params.ContactID = &id
	}
	if id, err := uuid.Parse(req.AssignedTo); err == nil {
		params.AssignedTo = &id
	}

	items, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.TaskListResponse{}, err
	}
	out := make([]transport.TaskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, ToResponse(t))
	}
	return transport.TaskListResponse{Items: out}, nil
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, req transport.UpdateTaskStatusRequest) (transport.TaskResponse, error) {
	status := domain.Status(req.Status)
	if !domain.IsKnownStatus(status) {
		return transport.TaskResponse{}, apperr.Validation("unknown task status")
	}
	t, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return ToResponse(t), nil
}

func ToResponse(t domain.Task) transport.TaskResponse {
	return transport.TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Type:             t.Type,
		DueDate:          t.DueDate.Format(time.DateOnly),
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		AssignedTo:       t.AssignedTo,
		RelatedContactID: t.RelatedContactID,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
