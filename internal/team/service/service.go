package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow_backend/internal/team/domain"
	"leadflow_backend/internal/team/repository"
	"leadflow_backend/internal/team/transport"
	"leadflow_backend/platform/logger"
)

// Service provides business logic for team members.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context, req transport.ListMembersRequest) (transport.MemberListResponse, error) {
	members, err := s.repo.List(ctx, repository.ListParams{Role: domain.Role(req.Role), Status: domain.Status(req.Status)})
	if err != nil {
		return transport.MemberListResponse{}, err
	}

	items := make([]transport.MemberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, toResponse(m))
	}
	return transport.MemberListResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.MemberResponse, error) {
	m, err := s.repo.Find(ctx, id)
	if err != nil {
		return transport.MemberResponse{}, err
	}
	return toResponse(m), nil
}

func (s *Service) Create(ctx context.Context, req transport.CreateMemberRequest) (transport.MemberResponse, error) {
	status := domain.StatusActive
	if req.Status != "" {
		status = domain.Status(req.Status)
	}

	m, err := s.repo.Create(ctx, domain.Member{
		ID:     uuid.New(),
		Name:   strings.TrimSpace(req.Name),
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Role:   domain.Role(req.Role),
		Status: status,
	})
	if err != nil {
		return transport.MemberResponse{}, err
	}
	s.log.Info("team member created", "member_id", m.ID, "role", m.Role)
	return toResponse(m), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateMemberRequest) (transport.MemberResponse, error) {
	params := repository.UpdateParams{ID: id, Name: trimmed(req.Name), Email: trimmed(req.Email)}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		params.Role = &role
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		params.Status = &status
	}

	m, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.MemberResponse{}, err
	}
	return toResponse(m), nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func toResponse(m domain.Member) transport.MemberResponse {
	return transport.MemberResponse{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Role:       string(m.Role),
		Status:     string(m.Status),
		Assignable: m.IsAssignable(),
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
}
