package automation

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/automation/assignment"
	"leadflow_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opLoadOverrides    = "automation.repository.load_overrides"
	opSaveRuleState    = "automation.repository.save_rule_state"
	opLoadDistribution = "automation.repository.load_distribution"
	opSaveDistribution = "automation.repository.save_distribution"
	opRecordRun        = "automation.repository.record_run"
	opListRuns         = "automation.repository.list_runs"
)

// Repository persists rule toggles, distribution settings and run audits.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadOverrides implements OverrideSource with the toggles saved by admins.
func (r *Repository) LoadOverrides(ctx context.Context) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, is_active FROM automation_rules`)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("load rule states failed: %v", err)).WithOp(opLoadOverrides)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		var active bool
		if err := rows.Scan(&id, &active); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan rule state failed: %v", err)).WithOp(opLoadOverrides)
		}
		out[id] = active
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate rule states failed: %v", err)).WithOp(opLoadOverrides)
	}
	return out, nil
}

func (r *Repository) SaveRuleState(ctx context.Context, ruleID string, active bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO automation_rules (id, is_active, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET is_active = EXCLUDED.is_active, updated_at = now()
	`, ruleID, active)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("save rule state failed: %v", err)).WithOp(opSaveRuleState)
	}
	return nil
}

// LoadDistribution returns nil, nil when no settings were ever saved.
func (r *Repository) LoadDistribution(ctx context.Context) (*DistributionSettings, error) {
	var enabled bool
	var method string
	err := r.pool.QueryRow(ctx, `
		SELECT distribution_enabled, distribution_method FROM automation_settings WHERE id = 1
	`).Scan(&enabled, &method)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("load settings failed: %v", err)).WithOp(opLoadDistribution)
	}
	return &DistributionSettings{Enabled: enabled, Method: assignment.Method(method)}, nil
}

func (r *Repository) SaveDistribution(ctx context.Context, s DistributionSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO automation_settings (id, distribution_enabled, distribution_method, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			distribution_enabled = EXCLUDED.distribution_enabled,
			distribution_method = EXCLUDED.distribution_method,
			updated_at = now()
	`, s.Enabled, string(s.Method))
	if err != nil {
		return apperr.Internal(fmt.Sprintf("save settings failed: %v", err)).WithOp(opSaveDistribution)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, rec RunRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO automation_runs (id, trigger, contact_id, rules_run, rules_failed, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, string(rec.Trigger), rec.ContactID, rec.RulesRun, rec.RulesFailed, rec.StartedAt, rec.DurationMs)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("record run failed: %v", err)).WithOp(opRecordRun)
	}
	return nil
}

// RunFilter narrows ListRuns. Zero values mean no filter.
type RunFilter struct {
	Trigger   Trigger
	ContactID string
	Limit     int
}

// ListRuns returns the newest runs first.
func (r *Repository) ListRuns(ctx context.Context, f RunFilter) ([]RunRecord, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, trigger, contact_id, rules_run, rules_failed, started_at, duration_ms
		FROM automation_runs
		WHERE ($1 = '' OR trigger = $1)
		  AND ($2 = '' OR contact_id::text = $2)
		ORDER BY started_at DESC, id DESC
		LIMIT $3
	`, string(f.Trigger), f.ContactID, limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list runs failed: %v", err)).WithOp(opListRuns)
	}
	defer rows.Close()

	runs := make([]RunRecord, 0, limit)
	for rows.Next() {
		var rec RunRecord
		var trigger string
		if err := rows.Scan(&rec.ID, &trigger, &rec.ContactID, &rec.RulesRun, &rec.RulesFailed, &rec.StartedAt, &rec.DurationMs); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan run failed: %v", err)).WithOp(opListRuns)
		}
		rec.Trigger = Trigger(trigger)
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate runs failed: %v", err)).WithOp(opListRuns)
	}
	return runs, nil
}
