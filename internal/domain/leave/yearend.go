package leave

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hradmin/internal/domain/core"
	"hradmin/internal/platform/jobs"
)

type LapsePreview struct {
	Year       int           `json:"year"`
	LeaveNames []string      `json:"leaveNames"`
	Entries    []LedgerEntry `json:"entries"`
	NoMatches  bool          `json:"noMatches"`
}

type LapseResult struct {
	Lapsed   int       `json:"lapsed"`
	LapsedAt time.Time `json:"lapsedAt"`
}

type RunInput struct {
	CompanyScope []string
	PolicyIDs    []string
	Year         int
	Confirm      bool
	ActorID      string
}

type RunResult struct {
	Preview LapsePreview `json:"preview"`
	Applied *LapseResult `json:"applied,omitempty"`
}

// SelectEligibleEmployees returns the active and on-probation employees inside the scope.
func (s *Service) SelectEligibleEmployees(ctx context.Context, companyScope []string) ([]string, error) {
	scope := core.NormalizeScope(companyScope)
	if len(scope) == 0 {
		return nil, nil
	}
	return s.Directory.EligibleEmpIDs(ctx, scope)
}

// FilterLapseCandidates lists the unlapsed entries of year, for eligible employees, that
// grant at least one of the selected policies.
func (s *Service) FilterLapseCandidates(ctx context.Context, companyScope, policyIDs []string, year int) (LapsePreview, error) {
	preview := LapsePreview{Year: year}
	v := &validation{}
	if len(distinct(policyIDs)) == 0 {
		v.add("policyIds", "select at least one leave type", ErrNoLeaveTypes)
	}
	validateYear(v, year)
	if err := v.err(); err != nil {
		return preview, err
	}

	policies, err := s.GetPolicies(ctx, policyIDs)
	if err != nil {
		return preview, err
	}
	names := make(map[string]struct{}, len(policies))
	for _, p := range policies {
		names[p.LeaveName] = struct{}{}
		preview.LeaveNames = append(preview.LeaveNames, p.LeaveName)
	}

	empIDs, err := s.SelectEligibleEmployees(ctx, companyScope)
	if err != nil {
		return preview, fmt.Errorf("select eligible employees: %w", err)
	}
	entries, err := s.Store.UnlapsedEntries(ctx, empIDs, year)
	if err != nil {
		return preview, fmt.Errorf("load ledger entries: %w", err)
	}
	for _, e := range entries {
		if e.GrantedForYear != year || e.IsLapsed || !e.Covers(names) {
			continue
		}
		preview.Entries = append(preview.Entries, e)
	}
	preview.NoMatches = len(preview.Entries) == 0
	return preview, nil
}

// ApplyLapse marks every entry lapsed at now, or none of them.
func (s *Service) ApplyLapse(ctx context.Context, entries []LedgerEntry, now time.Time) (LapseResult, error) {
	if len(entries) == 0 {
		v := &validation{}
		v.add("entries", "select at least one ledger entry", ErrEmptyBatch)
		return LapseResult{}, v.err()
	}

	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	var conflicts []string
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
		if e.IsLapsed {
			conflicts = append(conflicts, e.ID)
		}
	}
	if len(conflicts) > 0 {
		return LapseResult{}, &LapseConflictError{EntryIDs: conflicts}
	}

	lapsed, err := s.Store.LapseEntries(ctx, ids, now)
	if err != nil {
		return LapseResult{}, err
	}
	return LapseResult{Lapsed: lapsed, LapsedAt: now}, nil
}

// Run previews the lapse candidates and applies them when Confirm is set. Confirmed runs are
// recorded as year-end lapse jobs.
func (s *Service) Run(ctx context.Context, in RunInput) (RunResult, error) {
	if !in.Confirm {
		preview, err := s.FilterLapseCandidates(ctx, in.CompanyScope, in.PolicyIDs, in.Year)
		return RunResult{Preview: preview}, err
	}

	out, err := s.runJob(ctx, jobs.JobYearEndLapse, in.ActorID, func(ctx context.Context) (any, error) {
		preview, err := s.FilterLapseCandidates(ctx, in.CompanyScope, in.PolicyIDs, in.Year)
		if err != nil {
			return RunResult{Preview: preview}, err
		}
		result := RunResult{Preview: preview}
		if preview.NoMatches {
			return result, nil
		}
		applied, err := s.ApplyLapse(ctx, preview.Entries, s.now())
		if err != nil {
			return result, err
		}
		result.Applied = &applied
		return result, nil
	})
	result, _ := out.(RunResult)
	return result, err
}

// BalanceReport lists each eligible employee with ledger entries in year and the remaining
// balance of every granted leave. filter is a case-insensitive substring of the leave name;
// "" and "All" disable it.
func (s *Service) BalanceReport(ctx context.Context, companyScope []string, year int, filter string) ([]EmployeeBalanceReport, error) {
	v := &validation{}
	validateYear(v, year)
	if err := v.err(); err != nil {
		return nil, err
	}

	empIDs, err := s.SelectEligibleEmployees(ctx, companyScope)
	if err != nil {
		return nil, fmt.Errorf("select eligible employees: %w", err)
	}
	entries, err := s.Store.UnlapsedEntries(ctx, empIDs, year)
	if err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	byEmp := map[string][]LedgerEntry{}
	for _, e := range entries {
		byEmp[e.EmpID] = append(byEmp[e.EmpID], e)
	}
	if len(byEmp) == 0 {
		return nil, nil
	}

	withEntries := make([]string, 0, len(byEmp))
	for id := range byEmp {
		withEntries = append(withEntries, id)
	}
	sort.Strings(withEntries)
	employees, err := s.Directory.EmployeesByIDs(ctx, withEntries)
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(filter))
	if strings.EqualFold(needle, "all") {
		needle = ""
	}

	reports := make([]EmployeeBalanceReport, 0, len(withEntries))
	for _, empID := range withEntries {
		requests, err := s.Store.ApprovedRequests(ctx, empID, "", year)
		if err != nil {
			return nil, fmt.Errorf("load approved requests for %s: %w", empID, err)
		}
		var details []BalanceDetail
		for _, d := range balanceDetails(byEmp[empID], consumedByType(requests, year)) {
			if needle != "" && !strings.Contains(strings.ToLower(d.LeaveName), needle) {
				continue
			}
			details = append(details, d)
		}
		if len(details) == 0 {
			continue
		}
		reports = append(reports, EmployeeBalanceReport{
			EmpID:        empID,
			EmployeeName: employees[empID].FullName(),
			LeaveDetails: details,
		})
	}
	return reports, nil
}
