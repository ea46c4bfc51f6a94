package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/team/domain"
	"leadflow_backend/platform/apperr"
)

const memberNotFoundMessage = "team member not found"

const memberColumns = `id, name, email, role, status, created_at, updated_at`

// Repository is the team member store.
type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (domain.Member, error)
	List(ctx context.Context, params ListParams) ([]domain.Member, error)
	ListActiveSalesReps(ctx context.Context) ([]domain.Member, error)
	Create(ctx context.Context, m domain.Member) (domain.Member, error)
	Update(ctx context.Context, params UpdateParams) (domain.Member, error)
}

// ListParams filters List. Empty fields match everything.
type ListParams struct {
	Role   domain.Role
	Status domain.Status
}

// UpdateParams changes the non-nil fields of a member.
type UpdateParams struct {
	ID     uuid.UUID
	Name   *string
	Email  *string
	Role   *domain.Role
	Status *domain.Status
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time checks: Repo is the member store and the engine's pool source.
var (
	_ Repository               = (*Repo)(nil)
	_ automation.TeamDirectory = (*Repo)(nil)
)

func (r *Repo) Find(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM team_members WHERE id = $1`, id)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, apperr.NotFound(memberNotFoundMessage)
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("get team member: %w", err)
	}
	return m, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM team_members
		WHERE ($1 = '' OR role = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY name ASC, id ASC`, string(params.Role), string(params.Status))
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

// ListActiveSalesReps returns the assignment pool. The order is stable
// (oldest member first) so round robin rotates predictably.
func (r *Repo) ListActiveSalesReps(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+memberColumns+`
		FROM team_members
		WHERE role = $1 AND status = $2
		ORDER BY created_at ASC, id ASC`, string(domain.RoleSales), string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list sales reps: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *Repo) Create(ctx context.Context, m domain.Member) (domain.Member, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO team_members (id, name, email, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+memberColumns, m.ID, m.Name, m.Email, string(m.Role), string(m.Status))
	created, err := scanMember(row)
	if err != nil {
		return domain.Member{}, fmt.Errorf("create team member: %w", err)
	}
	return created, nil
}

func (r *Repo) Update(ctx context.Context, params UpdateParams) (domain.Member, error) {
	var role, status *string
	if params.Role != nil {
		v := string(*params.Role)
		role = &v
	}
	if params.Status != nil {
		v := string(*params.Status)
		status = &v
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE team_members SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			role = COALESCE($4, role),
			status = COALESCE($5, status),
			updated_at = now()
		WHERE id = $1
		RETURNING `+memberColumns, params.ID, params.Name, params.Email, role, status)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Member{}, apperr.NotFound(memberNotFoundMessage)
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("update team member: %w", err)
	}
	return m, nil
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var m domain.Member
	var role, status string
	var createdAt, updatedAt time.Time
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &role, &status, &createdAt, &updatedAt); err != nil {
		return domain.Member{}, err
	}
	m.Role = domain.Role(role)
	m.Status = domain.Status(status)
	m.CreatedAt = createdAt
	m.UpdatedAt = updatedAt
	return m, nil
}

func scanMembers(rows pgx.Rows) ([]domain.Member, error) {
	members := make([]domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return members, nil
}
