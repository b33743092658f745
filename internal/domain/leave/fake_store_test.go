package leave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"hradmin/internal/domain/core"
	"hradmin/internal/domain/notifications"
)

type fakeStore struct {
	policies   []LeavePolicy
	entries    []LedgerEntry
	requests   map[string]*LeaveRequest
	referenced map[string]bool

	updateErr  error
	insertErr  error
	lapseCalls int
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[string]*LeaveRequest{}, referenced: map[string]bool{}}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) ListPolicies(context.Context) ([]LeavePolicy, error) {
	return f.policies, nil
}

func (f *fakeStore) PoliciesByIDs(_ context.Context, ids []string) ([]LeavePolicy, error) {
	var out []LeavePolicy
	for _, p := range f.policies {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePolicy(_ context.Context, policy LeavePolicy) (LeavePolicy, error) {
	for _, p := range f.policies {
		if p.LeaveName == policy.LeaveName {
			return LeavePolicy{}, ErrDuplicatePolicy
		}
	}
	policy.ID = f.id("policy")
	f.policies = append(f.policies, policy)
	return policy, nil
}

func (f *fakeStore) UpdatePolicy(_ context.Context, policy LeavePolicy) (LeavePolicy, error) {
	for i, p := range f.policies {
		if p.ID == policy.ID {
			f.policies[i] = policy
			return policy, nil
		}
	}
	return LeavePolicy{}, ErrPolicyNotFound
}

func (f *fakeStore) PolicyReferencedBefore(_ context.Context, policyID string, _ int) (bool, error) {
	return f.referenced[policyID], nil
}

func (f *fakeStore) UnlapsedEntries(_ context.Context, empIDs []string, year int) ([]LedgerEntry, error) {
	want := map[string]bool{}
	for _, id := range empIDs {
		want[id] = true
	}
	var out []LedgerEntry
	for _, e := range f.entries {
		if want[e.EmpID] && e.GrantedForYear == year && !e.IsLapsed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertLedgerEntry(_ context.Context, entry LedgerEntry) (LedgerEntry, error) {
	if f.insertErr != nil {
		return LedgerEntry{}, f.insertErr
	}
	entry.ID = f.id("entry")
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeStore) LapseEntries(_ context.Context, ids []string, now time.Time) (int, error) {
	f.lapseCalls++
	index := map[string]int{}
	for i, e := range f.entries {
		index[e.ID] = i
	}
	var conflicts []string
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return 0, ErrLedgerNotFound
		}
		if f.entries[i].IsLapsed {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return 0, &LapseConflictError{EntryIDs: conflicts}
	}
	for _, id := range ids {
		at := now
		f.entries[index[id]].IsLapsed = true
		f.entries[index[id]].LapsedDate = &at
	}
	return len(ids), nil
}

func (f *fakeStore) ApprovedRequests(_ context.Context, empID, leaveType string, year int) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, r := range f.requests {
		if r.EmpID != empID || r.Status != StatusApproved {
			continue
		}
		if leaveType != "" && r.LeaveType != leaveType {
			continue
		}
		if _, _, ok := ClipToYear(r.FromDate, r.ToDate, year); ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (LeaveRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return LeaveRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return *r, nil
}

func (f *fakeStore) UpdateRequestStatus(_ context.Context, id string, from, to StatusChange) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	r, ok := f.requests[id]
	if !ok || r.Status != from.Status || r.CancelStatus != from.Cancel {
		return false, nil
	}
	r.Status, r.CancelStatus, r.ActionBy, r.UpdatedAt = to.Status, to.Cancel, to.ActionBy, to.At
	return true, nil
}

func (f *fakeStore) PendingRequests(_ context.Context, empIDs []string, createdOnOrBefore time.Time) ([]LeaveRequest, error) {
	want := map[string]bool{}
	for _, id := range empIDs {
		want[id] = true
	}
	var out []LeaveRequest
	for _, r := range f.requests {
		if !want[r.EmpID] || !r.AwaitingAction() || dateOnly(r.CreatedAt).After(dateOnly(createdOnOrBefore)) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CountAwaiting(_ context.Context, empIDs []string) (int, error) {
	want := map[string]bool{}
	for _, id := range empIDs {
		want[id] = true
	}
	total := 0
	for _, r := range f.requests {
		if want[r.EmpID] && r.AwaitingAction() {
			total++
		}
	}
	return total, nil
}

type fakeDirectory struct {
	employees map[string]core.Employee
}

func (d *fakeDirectory) EligibleEmpIDs(_ context.Context, scope []string) ([]string, error) {
	var ids []string
	for id, emp := range d.employees {
		if core.IsEligible(emp.Status) && core.InScope(emp.CompanyIDs, scope) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *fakeDirectory) GetEmployee(_ context.Context, empID string) (core.Employee, error) {
	emp, ok := d.employees[empID]
	if !ok {
		return core.Employee{}, fmt.Errorf("%w: %s", core.ErrEmployeeNotFound, empID)
	}
	return emp, nil
}

func (d *fakeDirectory) EmployeesByIDs(_ context.Context, empIDs []string) (map[string]core.Employee, error) {
	out := map[string]core.Employee{}
	for _, id := range empIDs {
		if emp, ok := d.employees[id]; ok {
			out[id] = emp
		}
	}
	return out, nil
}

type sentMail struct {
	To, Cc  []string
	Subject string
}

type fakeNotifier struct {
	notes     []notifications.Notification
	mails     []sentMail
	notifyErr error
	failTo    map[string]bool
}

func (n *fakeNotifier) Notify(_ context.Context, note notifications.Notification) error {
	if n.notifyErr != nil {
		return n.notifyErr
	}
	n.notes = append(n.notes, note)
	return nil
}

func (n *fakeNotifier) Email(_ context.Context, to, cc []string, subject, _ string) error {
	for _, addr := range to {
		if n.failTo[addr] {
			return errors.New("smtp unavailable")
		}
	}
	n.mails = append(n.mails, sentMail{To: to, Cc: cc, Subject: subject})
	return nil
}

type fakeJobs struct {
	runs []string
}

func (j *fakeJobs) RunNow(ctx context.Context, jobType, _ string, run func(context.Context) (any, error)) (any, error) {
	j.runs = append(j.runs, jobType)
	return run(ctx)
}

var testNow = time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *fakeStore
	directory *fakeDirectory
	notifier  *fakeNotifier
	jobs      *fakeJobs
	svc       *Service
}

func newFixture() *fixture {
	employees := map[string]core.Employee{
		"E1":  {EmpID: "E1", FirstName: "Asha", LastName: "Rao", Email: "asha@example.com", Status: core.StatusActive, CompanyIDs: []string{"acme"}, ManagerID: "M1"},
		"E2":  {EmpID: "E2", FirstName: "Ben", LastName: "Cole", Email: "ben@example.com", Status: core.StatusOnProbation, CompanyIDs: []string{"acme"}},
		"E3":  {EmpID: "E3", FirstName: "Cara", Email: "cara@example.com", Status: core.StatusResigned, CompanyIDs: []string{"acme"}},
		"E4":  {EmpID: "E4", FirstName: "Dev", Email: "dev@example.com", Status: core.StatusActive, CompanyIDs: []string{"other"}},
		"M1":  {EmpID: "M1", FirstName: "Mina", LastName: "Shah", Email: "mina@example.com", Status: core.StatusActive, CompanyIDs: []string{"acme"}},
		"HR1": {EmpID: "HR1", FirstName: "Hari", Email: "hr@example.com", Status: core.StatusActive, CompanyIDs: []string{"acme"}},
	}
	f := &fixture{
		store:     newFakeStore(),
		directory: &fakeDirectory{employees: employees},
		notifier:  &fakeNotifier{failTo: map[string]bool{}},
		jobs:      &fakeJobs{},
	}
	f.svc = NewService(f.store, f.directory, f.notifier, f.jobs)
	f.svc.Now = func() time.Time { return testNow }
	f.store.policies = []LeavePolicy{
		{ID: "p-sick", LeaveName: NameSick, GrantDays: 10},
		{ID: "p-casual", LeaveName: NameCasual, GrantDays: 12},
		{ID: "p-marriage", LeaveName: NameMarriage, GrantDays: 5},
	}
	return f
}

func (f *fixture) grant(empID string, year int, snaps ...PolicySnapshot) LedgerEntry {
	entry, _ := f.store.InsertLedgerEntry(context.Background(), LedgerEntry{EmpID: empID, GrantedForYear: year, Policies: snaps, BatchID: "seed"})
	return entry
}

func (f *fixture) request(r LeaveRequest) *LeaveRequest {
	if r.ID == "" {
		r.ID = f.store.id("req")
	}
	f.store.requests[r.ID] = &r
	return f.store.requests[r.ID]
}

func snap(name string, days int) PolicySnapshot {
	return PolicySnapshot{PolicyID: "p-" + name, LeaveName: name, GrantDays: days}
}
