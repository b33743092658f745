package leave

import (
	"fmt"
	"strings"
	"time"

	"hradmin/internal/domain/core"
)

type LeavePolicy struct {
	ID        string    `json:"id"`
	LeaveName string    `json:"leaveName"`
	GrantDays int       `json:"grantDays"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PolicySnapshot is a policy's name and grant days frozen on a ledger entry at grant time.
type PolicySnapshot struct {
	PolicyID  string `json:"policy_id"`
	LeaveName string `json:"leave_name"`
	GrantDays int    `json:"grant_days"`
}

func NewPolicySnapshot(policyID, leaveName string, grantDays int) (PolicySnapshot, error) {
	snap := PolicySnapshot{PolicyID: policyID, LeaveName: strings.TrimSpace(leaveName), GrantDays: grantDays}
	if err := snap.Validate(); err != nil {
		return PolicySnapshot{}, err
	}
	return snap, nil
}

func (p PolicySnapshot) Validate() error {
	if p.LeaveName == "" {
		return fmt.Errorf("%w: leave name required", ErrInvalidSnapshot)
	}
	if p.GrantDays < 0 {
		return fmt.Errorf("%w: %s grant days must not be negative", ErrInvalidSnapshot, p.LeaveName)
	}
	return nil
}

func (p LeavePolicy) Snapshot() (PolicySnapshot, error) {
	return NewPolicySnapshot(p.ID, p.LeaveName, p.GrantDays)
}

type LedgerEntry struct {
	ID             string           `json:"id"`
	EmpID          string           `json:"empId"`
	GrantedForYear int              `json:"grantedForYear"`
	Policies       []PolicySnapshot `json:"policies"`
	IsLapsed       bool             `json:"isLapsed"`
	LapsedDate     *time.Time       `json:"lapsedDate,omitempty"`
	BatchID        string           `json:"batchId"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// GrantFor sums the grant days of snapshots whose name matches exactly.
func (e LedgerEntry) GrantFor(leaveName string) (int, bool) {
	total, found := 0, false
	for _, p := range e.Policies {
		if p.LeaveName == leaveName {
			total += p.GrantDays
			found = true
		}
	}
	return total, found
}

// Covers reports whether the entry grants any of names.
func (e LedgerEntry) Covers(names map[string]struct{}) bool {
	for _, p := range e.Policies {
		if _, ok := names[p.LeaveName]; ok {
			return true
		}
	}
	return false
}

type Recipient struct {
	EmpID string `json:"emp_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LeaveRequest struct {
	ID           string       `json:"id"`
	EmpID        string       `json:"empId"`
	LeaveType    string       `json:"leaveType"`
	FromDate     time.Time    `json:"fromDate"`
	ToDate       time.Time    `json:"toDate"`
	Reason       string       `json:"reason,omitempty"`
	Status       Status       `json:"leaveStatus"`
	CancelStatus CancelStatus `json:"cancelStatus"`
	ApplyingTo   []Recipient  `json:"applyingTo"`
	CCTo         []Recipient  `json:"ccTo"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	ActionBy     string       `json:"actionBy,omitempty"`
}

// AwaitingAction reports whether the request belongs in the pending queue.
func (r LeaveRequest) AwaitingAction() bool {
	return r.Status == StatusPending || (r.Status == StatusApproved && r.CancelStatus == CancelRequested)
}

type LeaveTypeKey string

const (
	KeySick            LeaveTypeKey = "sickLeaveBalance"
	KeyCasual          LeaveTypeKey = "casualLeaveBalance"
	KeyCasualProbation LeaveTypeKey = "casualProbationLeaveBalance"
	KeyMarriage        LeaveTypeKey = "marriageLeaveBalance"
	KeyMaternity       LeaveTypeKey = "maternityLeaveBalance"
	KeyPaternity       LeaveTypeKey = "paternityLeaveBalance"
	KeyLossOfPay       LeaveTypeKey = "lossOfPayBalance"
)

const (
	NameSick            = "Sick Leave"
	NameCasual          = "Casual Leave"
	NameCasualProbation = "Casual Leave Probation"
	NameMarriage        = "Marriage Leave"
	NameMaternity       = "Maternity Leave"
	NamePaternity       = "Paternity Leave"
	NameLossOfPay       = "Loss Of Pay"
)

type balanceType struct {
	Key  LeaveTypeKey
	Name string
}

// grantedTypes is the fixed set reported by Balances; loss of pay is reported as consumption only.
var grantedTypes = []balanceType{
	{KeySick, NameSick},
	{KeyCasual, NameCasual},
	{KeyCasualProbation, NameCasualProbation},
	{KeyMarriage, NameMarriage},
	{KeyMaternity, NameMaternity},
	{KeyPaternity, NamePaternity},
}

// BalanceKey returns the snapshot key for a leave name, if it is one of the fixed types.
func BalanceKey(leaveName string) (LeaveTypeKey, bool) {
	if leaveName == NameLossOfPay {
		return KeyLossOfPay, true
	}
	for _, t := range grantedTypes {
		if t.Name == leaveName {
			return t.Key, true
		}
	}
	return "", false
}

type EmployeeBalanceSnapshot struct {
	EmpID       string               `json:"empId"`
	Year        int                  `json:"year"`
	Balances    map[LeaveTypeKey]int `json:"balances"`
	LedgerFound bool                 `json:"ledgerFound"`
}

type BalanceDetail struct {
	LeaveName        string `json:"leaveName"`
	GrantDays        int    `json:"grantDays"`
	Consumed         int    `json:"consumed"`
	RemainingBalance int    `json:"remainingBalance"`
}

type EmployeeBalanceReport struct {
	EmpID        string          `json:"empId"`
	EmployeeName string          `json:"employeeName"`
	LeaveDetails []BalanceDetail `json:"leaveDetails"`
}

// PendingItem is a queued request with the applicant and their manager.
type PendingItem struct {
	Request  LeaveRequest  `json:"request"`
	Employee core.Contact  `json:"employee"`
	Manager  *core.Contact `json:"manager,omitempty"`
}
