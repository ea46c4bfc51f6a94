package inapp

import (
	"context"

	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, title, message, type, link_to, is_read, created_at`

// Repository is the Postgres Store for the feed.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Title, n.Message, string(n.Type), n.LinkTo, n.Read, n.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not store notification", err).WithOp("inapp.Create")
	}
	return nil
}

// List returns one page, newest first, plus the total matching the filter.
func (r *Repository) List(ctx context.Context, limit, offset int, unreadOnly bool) ([]Notification, int, error) {
	const op = "inapp.List"

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`, COUNT(*) OVER () AS total
		FROM notifications
		WHERE NOT $1 OR NOT is_read
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "could not list notifications", err).WithOp(op)
	}

	var total int
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
		var n Notification
		var kind string
		err := row.Scan(&n.ID, &n.Title, &n.Message, &kind, &n.LinkTo, &n.Read, &n.CreatedAt, &total)
		n.Type = Type(kind)
		return n, err
	})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "could not read notifications", err).WithOp(op)
	}

	// A page past the end carries no window count.
	if len(items) == 0 && offset > 0 {
		err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT $1 OR NOT is_read`, unreadOnly).Scan(&total)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "could not count notifications", err).WithOp(op)
		}
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT is_read`).Scan(&count); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "could not count unread notifications", err).WithOp("inapp.CountUnread")
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not mark notification read", err).WithOp("inapp.MarkRead")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp("inapp.MarkRead")
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE NOT is_read`); err != nil {
		return apperr.Wrap(apperr.KindInternal, "could not mark notifications read", err).WithOp("inapp.MarkAllRead")
	}
	return nil
}
