package scheduler

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/automation"
	"leadflow_backend/platform/logger"
)

const scheduledCheckJob = "scheduled_check"

// CheckEngine runs one SCHEDULED_CHECK pass.
type CheckEngine interface {
	RunScheduledCheck(ctx context.Context) (automation.Result, error)
}

// CheckRunner fires the scheduled check on a fixed interval. A tick that
// finds the previous check still running is dropped, not queued.
type CheckRunner struct {
	engine   CheckEngine
	interval time.Duration
	lease    Lease
	log      *logger.Logger
}

func NewCheckRunner(engine CheckEngine, interval time.Duration, log *logger.Logger) *CheckRunner {
	return &CheckRunner{engine: engine, interval: interval, log: log}
}

// SetLease makes ticks cluster-wide exclusive.
func (r *CheckRunner) SetLease(lease Lease) { r.lease = lease }

func (r *CheckRunner) Run(ctx context.Context) {
	if r == nil || r.engine == nil || r.interval <= 0 {
		return
	}

	r.log.Info("scheduled check loop started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go r.Tick(ctx)
		}
	}
}

// Tick runs a single check. It reports whether the check actually ran.
func (r *CheckRunner) Tick(ctx context.Context) bool {
	if r.lease != nil {
		token, ok, err := r.lease.Acquire(ctx)
		if err != nil {
			r.log.Warn("scheduled check lease unavailable", "error", err)
			return false
		}
		if !ok {
			r.log.TickSkipped(scheduledCheckJob)
			return false
		}
		defer func() {
			if err := r.lease.Release(context.WithoutCancel(ctx), token); err != nil {
				r.log.Warn("scheduled check lease release failed", "error", err)
			}
		}()
	}

	result, err := r.engine.RunScheduledCheck(ctx)
	switch {
	case errors.Is(err, automation.ErrCheckInProgress):
		r.log.TickSkipped(scheduledCheckJob)
		return false
	case err != nil:
		r.log.Error("scheduled check failed", "error", err)
		return false
	}

	r.log.Debug("scheduled check finished",
		"runId", result.RunID,
		"rulesRun", len(result.RulesRun),
		"rulesFailed", len(result.RulesFailed),
		"notifications", result.Notifications,
	)
	return true
}
