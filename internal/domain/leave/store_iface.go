package leave

import (
	"context"
	"time"

	"hradmin/internal/domain/core"
	"hradmin/internal/domain/notifications"
)

type StoreAPI interface {
	ListPolicies(ctx context.Context) ([]LeavePolicy, error)
	PoliciesByIDs(ctx context.Context, ids []string) ([]LeavePolicy, error)
	CreatePolicy(ctx context.Context, policy LeavePolicy) (LeavePolicy, error)
	UpdatePolicy(ctx context.Context, policy LeavePolicy) (LeavePolicy, error)
	PolicyReferencedBefore(ctx context.Context, policyID string, year int) (bool, error)

	UnlapsedEntries(ctx context.Context, empIDs []string, year int) ([]LedgerEntry, error)
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
	LapseEntries(ctx context.Context, entryIDs []string, now time.Time) (int, error)

	ApprovedRequests(ctx context.Context, empID, leaveType string, year int) ([]LeaveRequest, error)
	GetRequest(ctx context.Context, requestID string) (LeaveRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID string, from, to StatusChange) (bool, error)
	PendingRequests(ctx context.Context, empIDs []string, createdOnOrBefore time.Time) ([]LeaveRequest, error)
	CountAwaiting(ctx context.Context, empIDs []string) (int, error)
}

// StatusChange is one side of a conditional status update.
type StatusChange struct {
	Status   Status
	Cancel   CancelStatus
	ActionBy string
	At       time.Time
}

type Directory interface {
	EligibleEmpIDs(ctx context.Context, scope []string) ([]string, error)
	GetEmployee(ctx context.Context, empID string) (core.Employee, error)
	EmployeesByIDs(ctx context.Context, empIDs []string) (map[string]core.Employee, error)
}

type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification) error
	Email(ctx context.Context, to, cc []string, subject, body string) error
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error)
}
