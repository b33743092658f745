package leave

import "fmt"

type Status int

const (
	StatusApproved Status = 2
	StatusRejected Status = 3
	StatusPending  Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusPending:
		return "pending"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusPending:
		return true
	}
	return false
}

type CancelStatus int

const (
	CancelNone      CancelStatus = 0
	CancelRequested CancelStatus = 7
)

func (c CancelStatus) String() string {
	switch c {
	case CancelNone:
		return "none"
	case CancelRequested:
		return "cancel-requested"
	}
	return fmt.Sprintf("cancel(%d)", int(c))
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

type state struct {
	Status Status
	Cancel CancelStatus
}

type transitionKey struct {
	From   state
	Action Action
}

var transitions = map[transitionKey]state{
	{state{StatusPending, CancelNone}, ActionApprove}:      {StatusApproved, CancelNone},
	{state{StatusPending, CancelNone}, ActionReject}:       {StatusRejected, CancelNone},
	{state{StatusApproved, CancelRequested}, ActionReject}: {StatusRejected, CancelRequested},
}

// Transition applies action to a request state. An approved request, with or without
// a pending cancellation, reports ErrAlreadyApproved on approve; a rejected request
// reports ErrAlreadyRejected on reject. Any other pair missing from the table reports
// ErrInvalidTransition.
func Transition(status Status, cancel CancelStatus, action Action) (Status, CancelStatus, error) {
	if next, ok := transitions[transitionKey{state{status, cancel}, action}]; ok {
		return next.Status, next.Cancel, nil
	}
	switch {
	case action == ActionApprove && status == StatusApproved:
		return status, cancel, ErrAlreadyApproved
	case action == ActionReject && status == StatusRejected:
		return status, cancel, ErrAlreadyRejected
	}
	return status, cancel, fmt.Errorf("%w: %s %s/%s", ErrInvalidTransition, action, status, cancel)
}
