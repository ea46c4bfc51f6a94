package automation

import (
	"errors"
	"fmt"

	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

// ErrUnknownTrigger is a wiring mistake: a caller dispatched a trigger that
// is not part of the catalog.
var ErrUnknownTrigger = errors.New("automation: unknown trigger")

// ValidationError is a missing or invalid field that blocks an operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// DuplicateError rejects a new lead that matches an existing contact.
type DuplicateError struct {
	ExistingID   uuid.UUID
	ExistingName string
	MatchedOn    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate lead: %s matches existing contact %s (%s)", e.MatchedOn, e.ExistingName, e.ExistingID)
}

// GatingVeto is a pipeline move refused by a gating rule.
type GatingVeto struct {
	RuleID  string
	Pending int
	Reason  string
}

func (e *GatingVeto) Error() string {
	return fmt.Sprintf("move blocked by %s: %s", e.RuleID, e.Reason)
}

// HandlerFault is an unexpected error inside one rule handler. It is logged
// and recorded on the run, never returned to callers.
type HandlerFault struct {
	RuleID  string
	Trigger Trigger
	Err     error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("rule %s on %s: %v", e.RuleID, e.Trigger, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }

// toAppErr maps the business errors onto HTTP-aware app errors while
// keeping the typed error reachable through errors.As.
func toAppErr(err error) error {
	var (
		validation *ValidationError
		duplicate  *DuplicateError
		veto       *GatingVeto
	)
	switch {
	case errors.As(err, &validation):
		return apperr.Wrap(apperr.KindValidation, validation.Reason, err).WithDetails(map[string]string{"field": validation.Field})
	case errors.As(err, &duplicate):
		return apperr.Wrap(apperr.KindConflict, "a contact with this email or phone already exists", err).
			WithDetails(map[string]string{"existingId": duplicate.ExistingID.String(), "matchedOn": duplicate.MatchedOn})
	case errors.As(err, &veto):
		return apperr.Wrap(apperr.KindUnprocessable, veto.Reason, err).WithDetails(map[string]string{"ruleId": veto.RuleID})
	default:
		return err
	}
}
