package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/contacts/domain"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/phone"
)

const contactColumns = `id, name, email, phone, company, status, owner_id, value_cents,
	notes, history, tags, lost_reason, source, created_at, updated_at, status_changed_at, assigned_at`

// Repo implements the contact store with PostgreSQL. Notes and history are
// kept as JSONB arrays on the contact row.
type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo serves the automation engine.
var _ automation.ContactStore = (*Repo)(nil)

// ListParams filters and pages List.
type ListParams struct {
	Status   string
	OwnerID  *uuid.UUID
	Search   string
	Tag      string
	Page     int
	PageSize int
}

// ListResult is one page of contacts.
type ListResult struct {
	Items    []*domain.Contact
	Total    int
	Page     int
	PageSize int
}

func notFound() error {
	return apperr.Wrap(apperr.KindNotFound, "contact not found", domain.ErrNotFound)
}

func (r *Repo) Find(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// FindByEmailOrPhone returns the oldest contact matching either key.
func (r *Repo) FindByEmailOrPhone(ctx context.Context, emailKey, phoneKey string) (*domain.Contact, error) {
	if emailKey == "" && phoneKey == "" {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE ($1 <> '' AND email_key = $1) OR ($2 <> '' AND phone_key = $2)
		ORDER BY created_at ASC
		LIMIT 1`, emailKey, phoneKey)
	c, err := scanContact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find duplicate contact: %w", err)
	}
	return c, nil
}

func (r *Repo) Create(ctx context.Context, c *domain.Contact) error {
	notes, history, err := encodeTimeline(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO contacts (
			id, name, email, email_key, phone, phone_key, company, status, owner_id, value_cents,
			notes, history, tags, lost_reason, source, created_at, updated_at, status_changed_at, assigned_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		c.ID, c.Name, c.Email, domain.EmailKey(c.Email), c.Phone, phone.MatchKey(c.Phone), c.Company,
		string(c.Status), c.OwnerID, c.ValueCents, notes, history, tagsOrEmpty(c.Tags), c.LostReason,
		c.Source, c.CreatedAt, c.UpdatedAt, c.StatusChangedAt, c.AssignedAt)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, c *domain.Contact) error {
	notes, history, err := encodeTimeline(c)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE contacts SET
			name = $2, email = $3, email_key = $4, phone = $5, phone_key = $6, company = $7,
			status = $8, owner_id = $9, value_cents = $10, notes = $11, history = $12, tags = $13,
			lost_reason = $14, source = $15, updated_at = $16, status_changed_at = $17, assigned_at = $18
		WHERE id = $1`,
		c.ID, c.Name, c.Email, domain.EmailKey(c.Email), c.Phone, phone.MatchKey(c.Phone), c.Company,
		string(c.Status), c.OwnerID, c.ValueCents, notes, history, tagsOrEmpty(c.Tags), c.LostReason,
		c.Source, c.UpdatedAt, c.StatusChangedAt, c.AssignedAt)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound()
	}
	return nil
}

// CountActiveByOwner counts the owner's contacts that are not Won or Lost.
func (r *Repo) CountActiveByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM contacts
		WHERE owner_id = $1 AND status NOT IN ($2, $3)`,
		ownerID, string(domain.StatusWon), string(domain.StatusLost)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active contacts: %w", err)
	}
	return n, nil
}

func (r *Repo) ListUnattended(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE status = $1 AND created_at < $2
			AND NOT EXISTS (
				SELECT 1 FROM jsonb_array_elements(history) AS m
				WHERE m->>'sender' = $3 AND COALESCE((m->>'automated')::boolean, FALSE) = FALSE
			)
		ORDER BY created_at ASC
		LIMIT $4`, string(domain.StatusNew), createdBefore, domain.SenderAgent, limit)
	if err != nil {
		return nil, fmt.Errorf("list unattended contacts: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (r *Repo) ListStale(ctx context.Context, idleSince time.Time, limit int) ([]*domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE owner_id IS NOT NULL AND status NOT IN ($1, $2)
			AND status_changed_at < $3 AND (assigned_at IS NULL OR assigned_at < $3)
		ORDER BY status_changed_at ASC
		LIMIT $4`, string(domain.StatusWon), string(domain.StatusLost), idleSince, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale contacts: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (r *Repo) List(ctx context.Context, params ListParams) (ListResult, error) {
	page, pageSize := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var search *string
	if s := strings.TrimSpace(params.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		search = &pattern
	}

	where := `
		WHERE ($1 = '' OR status = $1)
			AND ($2::uuid IS NULL OR owner_id = $2)
			AND ($3::text IS NULL OR LOWER(name) LIKE $3 OR email_key LIKE $3 OR LOWER(company) LIKE $3)
			AND ($4 = '' OR $4 = ANY(tags))`
	args := []any{params.Status, params.OwnerID, search, params.Tag}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count contacts: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+contactColumns+` FROM contacts`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items, err := scanContacts(rows)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func encodeTimeline(c *domain.Contact) ([]byte, []byte, error) {
	notes := c.Notes
	if notes == nil {
		notes = []domain.Note{}
	}
	history := c.History
	if history == nil {
		history = []domain.Message{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode notes: %w", err)
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("encode history: %w", err)
	}
	return notesJSON, historyJSON, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var (
		c                    domain.Contact
		status               string
		notesRaw, historyRaw []byte
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &status, &c.OwnerID, &c.ValueCents,
		&notesRaw, &historyRaw, &c.Tags, &c.LostReason, &c.Source, &c.CreatedAt, &c.UpdatedAt, &c.StatusChangedAt,
		&c.AssignedAt)
	if err != nil {
		return nil, err
	}
	c.Status = domain.Status(status)
	if len(notesRaw) > 0 {
		if err := json.Unmarshal(notesRaw, &c.Notes); err != nil {
			return nil, fmt.Errorf("decode notes: %w", err)
		}
	}
	if len(historyRaw) > 0 {
		if err := json.Unmarshal(historyRaw, &c.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return &c, nil
}

func scanContacts(rows pgx.Rows) ([]*domain.Contact, error) {
	out := make([]*domain.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return out, nil
}
