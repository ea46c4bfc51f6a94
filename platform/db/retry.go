package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/platform/logger"
)

// Retry calls fn up to attempts times. The n-th wait is n² × base, and ctx
// cancellation stops waiting immediately.
func Retry(ctx context.Context, log *logger.Logger, name string, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: attempts must be positive", name)
	}

	var errs []error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		log.Warn("retrying", "operation", name, "attempt", attempt, "of", attempts, "error", err)

		if attempt == attempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, errors.Join(errs...))
		}

		wait := time.NewTimer(time.Duration(attempt*attempt) * base)
		select {
		case <-ctx.Done():
			wait.Stop()
			return ctx.Err()
		case <-wait.C:
		}
	}
}
