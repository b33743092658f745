package leave

import (
	"errors"
	"fmt"
	"strings"

	"hradmin/internal/domain/core"
)

var (
	ErrEmployeeNotFound  = core.ErrEmployeeNotFound
	ErrLedgerNotFound    = errors.New("ledger entry not found")
	ErrRequestNotFound   = errors.New("leave request not found")
	ErrPolicyNotFound    = errors.New("leave policy not found")
	ErrDuplicatePolicy   = errors.New("leave policy already exists")
	ErrPolicyLocked      = errors.New("leave policy is referenced by a past year grant")
	ErrAlreadyApproved   = errors.New("already approved")
	ErrAlreadyRejected   = errors.New("already rejected")
	ErrAlreadyLapsed     = errors.New("ledger entry already lapsed")
	ErrAlreadyGranted    = errors.New("leave already granted for year")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidSnapshot   = errors.New("invalid policy snapshot")
	ErrEmptyBatch        = errors.New("no items selected")
	ErrNoLeaveTypes      = errors.New("no leave types selected")
	ErrInvalidYear       = errors.New("invalid year")
	ErrNoRecipients      = errors.New("no valid recipient")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned before any read or write when caller input is unusable.
type ValidationError struct {
	Issues []FieldIssue
	cause  error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

type validation struct {
	issues []FieldIssue
	cause  error
}

func (v *validation) add(field, reason string, cause error) {
	v.issues = append(v.issues, FieldIssue{Field: field, Reason: reason})
	if v.cause == nil {
		v.cause = cause
	}
}

func (v *validation) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues, cause: v.cause}
}

// LapseConflictError lists the entries that blocked a lapse batch.
type LapseConflictError struct {
	EntryIDs []string
}

func (e *LapseConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyLapsed, strings.Join(e.EntryIDs, ", "))
}

func (e *LapseConflictError) Unwrap() error {
	return ErrAlreadyLapsed
}

const (
	MinYear = 2000
	MaxYear = 2100
)

func validateYear(v *validation, year int) {
	if year < MinYear || year > MaxYear {
		v.add("year", fmt.Sprintf("must be between %d and %d", MinYear, MaxYear), ErrInvalidYear)
	}
}
