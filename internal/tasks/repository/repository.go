package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/tasks/domain"
	"leadflow_backend/platform/apperr"
)

const taskColumns = `id, title, type, due_date, status, priority, assigned_to, related_contact_id, created_at, updated_at`

// ListParams filters List. Nil and empty fields match everything.
type ListParams struct {
	ContactID  *uuid.UUID
	AssignedTo *uuid.UUID
	Status     domain.Status
	Limit      int
}

// Repo implements task persistence with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo serves the automation engine.
var _ automation.TaskStore = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, type, due_date, status, priority, assigned_to, related_contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Type, t.DueDate, string(t.Status), string(t.Priority), t.AssignedTo, t.RelatedContactID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *Repo) CountPendingForContact(ctx context.Context, contactID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks WHERE related_contact_id = $1 AND status = $2`,
		contactID, string(domain.StatusPending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return n, nil
}

func (r *Repo) HasOpenOrDoneTask(ctx context.Context, contactID uuid.UUID, taskType, titlePrefix string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tasks
			WHERE related_contact_id = $1 AND type = $2 AND starts_with(title, $3) AND status <> $4
		)`,
		contactID, taskType, titlePrefix, string(domain.StatusCancelled)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("look up contact tasks: %w", err)
	}
	return exists, nil
}

func (r *Repo) Find(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, apperr.NotFound("task not found")
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]domain.Task, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE ($1::uuid IS NULL OR related_contact_id = $1)
			AND ($2::uuid IS NULL OR assigned_to = $2)
			AND ($3 = '' OR status = $3)
		ORDER BY due_date ASC, created_at ASC
		LIMIT $4`, params.ContactID, params.AssignedTo, string(params.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (r *Repo) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, apperr.NotFound("task not found")
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task status: %w", err)
	}
	return t, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	var status, priority string
	if err := row.Scan(&t.ID, &t.Title, &t.Type, &t.DueDate, &status, &priority, &t.AssignedTo, &t.RelatedContactID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	t.Status = domain.Status(status)
	t.Priority = domain.Priority(priority)
	return t, nil
}
